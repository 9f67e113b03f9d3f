package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrImageNotFound      = errors.New("product image not found")
	ErrSKUExists          = errors.New("product with this SKU already exists")
	ErrSlugExists         = errors.New("slug already exists")
	ErrCategoryNameExists = errors.New("category with this name already exists")
	ErrCategoryInUse      = errors.New("category still has products")
)

type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProductImage(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error)

	ListCategories(ctx context.Context, includeHidden bool) ([]Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.slug, COALESCE(p.description, ''), COALESCE(p.short_description, ''),
	p.price, p.compare_price, p.cost_price, COALESCE(p.sku, ''), p.stock_quantity,
	p.weight, COALESCE(p.dimensions, ''), p.is_active, p.is_featured, p.is_bestseller,
	COALESCE(p.meta_title, ''), COALESCE(p.meta_description, ''), p.sort_order,
	p.category_id, p.created_at, p.updated_at,
	c.id, c.name, c.slug, c.is_active, c.sort_order`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var catID uuid.NullUUID
	var catName, catSlug *string
	var catActive *bool
	var catSort *int

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription,
		&p.Price, &p.ComparePrice, &p.CostPrice, &p.SKU, &p.StockQuantity,
		&p.Weight, &p.Dimensions, &p.IsActive, &p.IsFeatured, &p.IsBestseller,
		&p.MetaTitle, &p.MetaDescription, &p.SortOrder,
		&p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
		&catID, &catName, &catSlug, &catActive, &catSort,
	)
	if err != nil {
		return nil, err
	}

	if catID.Valid {
		p.Category = &Category{
			ID:        catID.UUID,
			Name:      *catName,
			Slug:      *catSlug,
			IsActive:  *catActive,
			SortOrder: *catSort,
		}
	}

	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`

	var conds []string
	var args []any

	if !filter.IncludeHidden {
		conds = append(conds, "p.is_active")
	}
	if filter.CategoryID.Valid {
		args = append(args, filter.CategoryID.UUID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conds = append(conds, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.FeaturedOnly {
		conds = append(conds, "p.is_featured")
	}
	if filter.BestsellerOnly {
		conds = append(conds, "p.is_bestseller")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.sort_order, p.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) getProduct(ctx context.Context, cond string, arg any) (*Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ` + cond

	p, err := scanProduct(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.getProduct(ctx, "p.id = $1", id)
}

func (r *postgresRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return r.getProduct(ctx, "p.slug = $1", slug)
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product id: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	img := imageArgs(p.Images)

	query := `
		INSERT INTO products (id, name, slug, description, short_description, price,
			compare_price, cost_price, sku, stock_quantity, weight, dimensions,
			is_active, is_featured, is_bestseller, meta_title, meta_description,
			sort_order, category_id,
			image_1, image_1_type, image_2, image_2_type, image_3, image_3_type,
			created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''),
			$10, $11, NULLIF($12, ''), $13, $14, $15, NULLIF($16, ''), NULLIF($17, ''),
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.Price,
		p.ComparePrice, p.CostPrice, p.SKU, p.StockQuantity, p.Weight, p.Dimensions,
		p.IsActive, p.IsFeatured, p.IsBestseller, p.MetaTitle, p.MetaDescription,
		p.SortOrder, p.CategoryID,
		img[0].data, img[0].mime, img[1].data, img[1].mime, img[2].data, img[2].mime,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = NULLIF($3, ''),
			short_description = NULLIF($4, ''), price = $5, compare_price = $6,
			cost_price = $7, sku = NULLIF($8, ''), stock_quantity = $9, weight = $10,
			dimensions = NULLIF($11, ''), is_active = $12, is_featured = $13,
			is_bestseller = $14, meta_title = NULLIF($15, ''),
			meta_description = NULLIF($16, ''), sort_order = $17, category_id = $18,
			updated_at = $19
		WHERE id = $20
	`
	tag, err := r.db.Exec(ctx, query,
		p.Name, p.Slug, p.Description, p.ShortDescription, p.Price, p.ComparePrice,
		p.CostPrice, p.SKU, p.StockQuantity, p.Weight, p.Dimensions,
		p.IsActive, p.IsFeatured, p.IsBestseller, p.MetaTitle, p.MetaDescription,
		p.SortOrder, p.CategoryID, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	if p.Images != nil {
		img := imageArgs(p.Images)
		_, err = r.db.Exec(ctx, `
			UPDATE products
			SET image_1 = $1, image_1_type = $2, image_2 = $3, image_2_type = $4,
				image_3 = $5, image_3_type = $6
			WHERE id = $7`,
			img[0].data, img[0].mime, img[1].data, img[1].mime, img[2].data, img[2].mime,
			p.ID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to update product images %s: %w", p.ID, err)
		}
	}

	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) GetProductImage(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error) {
	if position < 1 || position > MaxProductImages {
		return nil, ErrImageNotFound
	}

	query := fmt.Sprintf(`SELECT image_%d, image_%d_type FROM products WHERE id = $1`, position, position)

	var img ProductImage
	var mime *string
	err := r.db.QueryRow(ctx, query, id).Scan(&img.Data, &mime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product image: %w", err)
	}
	if len(img.Data) == 0 || mime == nil {
		return nil, ErrImageNotFound
	}
	img.MIME = *mime

	return &img, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context, includeHidden bool) ([]Category, error) {
	query := `
		SELECT id, name, slug, COALESCE(description, ''), is_active, sort_order, created_at, updated_at
		FROM categories
	`
	if !includeHidden {
		query += " WHERE is_active"
	}
	query += " ORDER BY sort_order, name"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) getCategory(ctx context.Context, cond string, arg any) (*Category, error) {
	query := `
		SELECT id, name, slug, COALESCE(description, ''), is_active, sort_order, created_at, updated_at
		FROM categories
		WHERE ` + cond

	var c Category
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return r.getCategory(ctx, "id = $1", id)
}

func (r *postgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return r.getCategory(ctx, "slug = $1", slug)
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category id: %w", err)
		}
		c.ID = id
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO categories (id, name, slug, description, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.IsActive, c.SortOrder, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}

	return nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = NULLIF($3, ''), is_active = $4,
			sort_order = $5, updated_at = $6
		WHERE id = $7
	`
	tag, err := r.db.Exec(ctx, query, c.Name, c.Slug, c.Description, c.IsActive, c.SortOrder, c.UpdatedAt, c.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// DeleteCategory removes an empty category. The category row is locked before
// counting so a concurrent product assignment, which takes a key-share lock on
// the same row for its foreign key, cannot slip between the count and the
// delete.
func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("repository: failed to lock category %s: %w", id, err)
		}

		var count int64
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&count)
		if err != nil {
			return fmt.Errorf("repository: failed to count products in category %s: %w", id, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d product(s) still reference it", ErrCategoryInUse, count)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
		}
		return nil
	})
}

type imageArg struct {
	data []byte
	mime *string
}

// imageArgs spreads up to MaxProductImages images over the fixed column slots.
func imageArgs(images []ProductImage) [MaxProductImages]imageArg {
	var out [MaxProductImages]imageArg
	for i := 0; i < len(images) && i < MaxProductImages; i++ {
		if len(images[i].Data) == 0 {
			continue
		}
		mime := images[i].MIME
		out[i] = imageArg{data: images[i].Data, mime: &mime}
	}
	return out
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "products_sku_key":
		return ErrSKUExists
	case "products_slug_key", "categories_slug_key":
		return ErrSlugExists
	case "categories_name_key":
		return ErrCategoryNameExists
	}
	return nil
}
