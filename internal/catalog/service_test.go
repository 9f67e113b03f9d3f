package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	listProductsFunc       func(ctx context.Context, filter ProductFilter) ([]Product, error)
	getProductByIDFunc     func(ctx context.Context, id uuid.UUID) (*Product, error)
	getProductBySlugFunc   func(ctx context.Context, slug string) (*Product, error)
	createProductFunc      func(ctx context.Context, p *Product) error
	updateProductFunc      func(ctx context.Context, p *Product) error
	deleteProductFunc      func(ctx context.Context, id uuid.UUID) error
	getProductImageFunc    func(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error)
	listCategoriesFunc     func(ctx context.Context, includeHidden bool) ([]Category, error)
	getCategoryByIDFunc    func(ctx context.Context, id uuid.UUID) (*Category, error)
	getCategoryBySlugFunc  func(ctx context.Context, slug string) (*Category, error)
	createCategoryFunc     func(ctx context.Context, c *Category) error
	updateCategoryFunc     func(ctx context.Context, c *Category) error
	deleteCategoryFunc     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return m.listProductsFunc(ctx, filter)
}

func (m *mockRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return m.getProductByIDFunc(ctx, id)
}

func (m *mockRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return m.getProductBySlugFunc(ctx, slug)
}

func (m *mockRepository) CreateProduct(ctx context.Context, p *Product) error {
	return m.createProductFunc(ctx, p)
}

func (m *mockRepository) UpdateProduct(ctx context.Context, p *Product) error {
	return m.updateProductFunc(ctx, p)
}

func (m *mockRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.deleteProductFunc(ctx, id)
}

func (m *mockRepository) GetProductImage(ctx context.Context, id uuid.UUID, position int) (*ProductImage, error) {
	return m.getProductImageFunc(ctx, id, position)
}

func (m *mockRepository) ListCategories(ctx context.Context, includeHidden bool) ([]Category, error) {
	return m.listCategoriesFunc(ctx, includeHidden)
}

func (m *mockRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	return m.getCategoryByIDFunc(ctx, id)
}

func (m *mockRepository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return m.getCategoryBySlugFunc(ctx, slug)
}

func (m *mockRepository) CreateCategory(ctx context.Context, c *Category) error {
	return m.createCategoryFunc(ctx, c)
}

func (m *mockRepository) UpdateCategory(ctx context.Context, c *Category) error {
	return m.updateCategoryFunc(ctx, c)
}

func (m *mockRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.deleteCategoryFunc(ctx, id)
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestService_CreateProduct_DerivesSlug(t *testing.T) {
	var created *Product
	repo := &mockRepository{
		createProductFunc: func(_ context.Context, p *Product) error {
			created = p
			return nil
		},
	}
	svc := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Vaso de Cerâmica",
		Price: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "vaso-de-ceramica", created.Slug)
}

func TestService_CreateProduct_ExplicitSlugWins(t *testing.T) {
	var created *Product
	repo := &mockRepository{
		createProductFunc: func(_ context.Context, p *Product) error {
			created = p
			return nil
		},
	}
	svc := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Vaso de Cerâmica",
		Slug:  "custom-slug",
		Price: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", created.Slug)
}

func TestService_CreateProduct_Validation(t *testing.T) {
	svc := NewService(&mockRepository{})

	testCases := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{Price: decimal.NewFromInt(10)}},
		{"negative price", ProductInput{Name: "Vase", Price: decimal.NewFromInt(-1)}},
		{"negative stock", ProductInput{Name: "Vase", Price: decimal.NewFromInt(10), StockQuantity: -5}},
		{"too many images", ProductInput{Name: "Vase", Price: decimal.NewFromInt(10), Images: make([]ProductImage, MaxProductImages+1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_CreateProduct_DuplicateSKU(t *testing.T) {
	repo := &mockRepository{
		createProductFunc: func(context.Context, *Product) error {
			return ErrSKUExists
		},
	}
	svc := NewService(repo)

	_, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:  "Vase",
		SKU:   "VA-1",
		Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrSKUExists)
}

func TestService_UpdateProduct_SlugRules(t *testing.T) {
	testCases := []struct {
		name         string
		currentName  string
		currentSlug  string
		inputName    string
		inputSlug    string
		expectedSlug string
	}{
		{
			name:         "name unchanged keeps slug",
			currentName:  "Vase",
			currentSlug:  "vase",
			inputName:    "Vase",
			expectedSlug: "vase",
		},
		{
			name:         "name change regenerates slug",
			currentName:  "Vase",
			currentSlug:  "vase",
			inputName:    "Large Vase",
			expectedSlug: "large-vase",
		},
		{
			name:         "explicit slug wins over regeneration",
			currentName:  "Vase",
			currentSlug:  "vase",
			inputName:    "Large Vase",
			inputSlug:    "keep-this",
			expectedSlug: "keep-this",
		},
		{
			name:         "explicit slug applies without name change",
			currentName:  "Vase",
			currentSlug:  "vase",
			inputName:    "Vase",
			inputSlug:    "renamed-by-hand",
			expectedSlug: "renamed-by-hand",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id := mustUUID(t)
			var updated *Product
			repo := &mockRepository{
				getProductByIDFunc: func(context.Context, uuid.UUID) (*Product, error) {
					return &Product{ID: id, Name: tc.currentName, Slug: tc.currentSlug, Price: decimal.NewFromInt(10)}, nil
				},
				updateProductFunc: func(_ context.Context, p *Product) error {
					updated = p
					return nil
				},
			}
			svc := NewService(repo)

			_, err := svc.UpdateProduct(context.Background(), id, ProductInput{
				Name:  tc.inputName,
				Slug:  tc.inputSlug,
				Price: decimal.NewFromInt(10),
			})
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.Equal(t, tc.expectedSlug, updated.Slug)
		})
	}
}

func TestService_UpdateProduct_NotFound(t *testing.T) {
	repo := &mockRepository{
		getProductByIDFunc: func(context.Context, uuid.UUID) (*Product, error) {
			return nil, ErrProductNotFound
		},
	}
	svc := NewService(repo)

	_, err := svc.UpdateProduct(context.Background(), mustUUID(t), ProductInput{
		Name:  "Vase",
		Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_ToggleProductActive(t *testing.T) {
	id := mustUUID(t)
	var updated *Product
	repo := &mockRepository{
		getProductByIDFunc: func(context.Context, uuid.UUID) (*Product, error) {
			return &Product{ID: id, Name: "Vase", Slug: "vase", IsActive: true}, nil
		},
		updateProductFunc: func(_ context.Context, p *Product) error {
			updated = p
			return nil
		},
	}
	svc := NewService(repo)

	p, err := svc.ToggleProductActive(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	require.NotNil(t, updated)
	assert.False(t, updated.IsActive)
}

func TestService_DeleteCategory_GuardsNonEmpty(t *testing.T) {
	repo := &mockRepository{
		deleteCategoryFunc: func(context.Context, uuid.UUID) error {
			return fmt.Errorf("%w: 4 product(s) still reference it", ErrCategoryInUse)
		},
	}
	svc := NewService(repo)

	err := svc.DeleteCategory(context.Background(), mustUUID(t))
	assert.ErrorIs(t, err, ErrCategoryInUse)
}

func TestService_DeleteCategory_EmptyCategory(t *testing.T) {
	repo := &mockRepository{
		deleteCategoryFunc: func(context.Context, uuid.UUID) error {
			return nil
		},
	}
	svc := NewService(repo)

	assert.NoError(t, svc.DeleteCategory(context.Background(), mustUUID(t)))
}

func TestService_DeleteCategory_Missing(t *testing.T) {
	repo := &mockRepository{
		deleteCategoryFunc: func(context.Context, uuid.UUID) error {
			return ErrCategoryNotFound
		},
	}
	svc := NewService(repo)

	assert.ErrorIs(t, svc.DeleteCategory(context.Background(), mustUUID(t)), ErrCategoryNotFound)
}

func TestService_CreateCategory_DuplicateName(t *testing.T) {
	repo := &mockRepository{
		createCategoryFunc: func(context.Context, *Category) error {
			return ErrCategoryNameExists
		},
	}
	svc := NewService(repo)

	_, err := svc.CreateCategory(context.Background(), CategoryInput{Name: "Vasos"})
	assert.ErrorIs(t, err, ErrCategoryNameExists)
}

func TestService_CreateCategory_UnsluggableName(t *testing.T) {
	svc := NewService(&mockRepository{})

	_, err := svc.CreateCategory(context.Background(), CategoryInput{Name: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
