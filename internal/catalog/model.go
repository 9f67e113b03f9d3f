package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// MaxProductImages is the number of image slots a product carries.
const MaxProductImages = 3

// ProductImage is one embedded product image with its MIME type.
type ProductImage struct {
	Data []byte
	MIME string
}

type Product struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Slug             string              `json:"slug"`
	Description      string              `json:"description,omitempty"`
	ShortDescription string              `json:"short_description,omitempty"`
	Price            decimal.Decimal     `json:"price"`
	ComparePrice     decimal.NullDecimal `json:"compare_price,omitempty"`
	CostPrice        decimal.NullDecimal `json:"cost_price,omitempty"`
	SKU              string              `json:"sku,omitempty"`
	StockQuantity    int                 `json:"stock_quantity"`
	Weight           decimal.NullDecimal `json:"weight,omitempty"`
	Dimensions       string              `json:"dimensions,omitempty"`
	IsActive         bool                `json:"is_active"`
	IsFeatured       bool                `json:"is_featured"`
	IsBestseller     bool                `json:"is_bestseller"`
	MetaTitle        string              `json:"meta_title,omitempty"`
	MetaDescription  string              `json:"meta_description,omitempty"`
	SortOrder        int                 `json:"sort_order"`
	CategoryID       uuid.NullUUID       `json:"category_id,omitempty"`
	Category         *Category           `json:"category,omitempty"`
	Images           []ProductImage      `json:"-"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductFilter narrows ListProducts. Zero value lists every active product.
type ProductFilter struct {
	CategoryID     uuid.NullUUID
	CategorySlug   string
	Query          string
	FeaturedOnly   bool
	BestsellerOnly bool
	IncludeHidden  bool
	Limit          int
}
