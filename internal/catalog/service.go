package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput marks validation failures. Callers match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ProductInput carries every writable product field. Slug left empty means
// "derive from the name"; a non-empty Slug is an explicit override and is
// stored as given.
type ProductInput struct {
	Name             string
	Slug             string
	Description      string
	ShortDescription string
	Price            decimal.Decimal
	ComparePrice     decimal.NullDecimal
	CostPrice        decimal.NullDecimal
	SKU              string
	StockQuantity    int
	Weight           decimal.NullDecimal
	Dimensions       string
	IsActive         bool
	IsFeatured       bool
	IsBestseller     bool
	MetaTitle        string
	MetaDescription  string
	SortOrder        int
	CategoryID       uuid.NullUUID
	Images           []ProductImage
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    bool
	SortOrder   int
}

type Service interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	GetProductImage(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error)
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ToggleProductActive(ctx context.Context, id uuid.UUID) (*Product, error)

	ListCategories(ctx context.Context, includeHidden bool) ([]Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ToggleCategoryActive(ctx context.Context, id uuid.UUID) (*Category, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

func (s *service) GetProductImage(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error) {
	return s.repo.GetProductImage(ctx, id, position)
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if input.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrInvalidInput)
	}
	if len(input.Images) > MaxProductImages {
		return fmt.Errorf("%w: at most %d images are allowed", ErrInvalidInput, MaxProductImages)
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	slug := input.Slug
	if slug == "" {
		slug = DeriveSlug(input.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidInput, input.Name)
	}

	p := productFromInput(input, slug)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrSlugExists) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("slug", p.Slug).Msg("service: product created")
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	current, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Regenerate the slug only when the name changed and no explicit slug
	// came with the same write.
	slug := current.Slug
	switch {
	case input.Slug != "":
		slug = input.Slug
	case input.Name != current.Name:
		slug = DeriveSlug(input.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidInput, input.Name)
		}
	}

	p := productFromInput(input, slug)
	p.ID = id
	p.CreatedAt = current.CreatedAt

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrSKUExists) || errors.Is(err, ErrSlugExists) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *service) ToggleProductActive(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	p.Images = nil
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("service: failed to toggle product %s: %w", id, err)
	}
	return p, nil
}

func (s *service) ListCategories(ctx context.Context, includeHidden bool) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx, includeHidden)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.GetCategoryByID(ctx, id)
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	slug := input.Slug
	if slug == "" {
		slug = DeriveSlug(input.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidInput, input.Name)
	}

	c := &Category{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		IsActive:    input.IsActive,
		SortOrder:   input.SortOrder,
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryNameExists) || errors.Is(err, ErrSlugExists) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}

	log.Info().Stringer("category_id", c.ID).Str("slug", c.Slug).Msg("service: category created")
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	current, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slug := current.Slug
	switch {
	case input.Slug != "":
		slug = input.Slug
	case input.Name != current.Name:
		slug = DeriveSlug(input.Name)
		if slug == "" {
			return nil, fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidInput, input.Name)
		}
	}

	c := &Category{
		ID:          id,
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		IsActive:    input.IsActive,
		SortOrder:   input.SortOrder,
		CreatedAt:   current.CreatedAt,
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryNameExists) || errors.Is(err, ErrSlugExists) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to update category")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}

	return c, nil
}

// DeleteCategory refuses to remove a category that still has products. The
// repository enforces the guard atomically with the delete.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryInUse) {
			return err
		}
		return fmt.Errorf("service: failed to delete category %s: %w", id, err)
	}
	return nil
}

func (s *service) ToggleCategoryActive(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = !c.IsActive
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service: failed to toggle category %s: %w", id, err)
	}
	return c, nil
}

func productFromInput(input ProductInput, slug string) *Product {
	return &Product{
		Name:             input.Name,
		Slug:             slug,
		Description:      input.Description,
		ShortDescription: input.ShortDescription,
		Price:            input.Price,
		ComparePrice:     input.ComparePrice,
		CostPrice:        input.CostPrice,
		SKU:              input.SKU,
		StockQuantity:    input.StockQuantity,
		Weight:           input.Weight,
		Dimensions:       input.Dimensions,
		IsActive:         input.IsActive,
		IsFeatured:       input.IsFeatured,
		IsBestseller:     input.IsBestseller,
		MetaTitle:        input.MetaTitle,
		MetaDescription:  input.MetaDescription,
		SortOrder:        input.SortOrder,
		CategoryID:       input.CategoryID,
		Images:           input.Images,
	}
}
