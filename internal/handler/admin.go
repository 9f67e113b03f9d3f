package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/artetradicao/storefront/internal/catalog"
	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/session"
	"github.com/artetradicao/storefront/internal/user"
)

// AdminHandler serves the management surface: catalog CRUD, order status
// changes and user administration. Authorization is enforced by the router's
// admin middleware before any of these run.
type AdminHandler struct {
	catalog  catalog.Service
	orders   order.Service
	users    user.Service
	validate *validator.Validate
}

func NewAdminHandler(catalogSvc catalog.Service, orderSvc order.Service, userSvc user.Service) *AdminHandler {
	return &AdminHandler{
		catalog:  catalogSvc,
		orders:   orderSvc,
		users:    userSvc,
		validate: validator.New(),
	}
}

type imagePayload struct {
	Data string `json:"data" validate:"required"`
	MIME string `json:"mime" validate:"required"`
}

type productPayload struct {
	Name             string           `json:"name" validate:"required"`
	Slug             string           `json:"slug"`
	Description      string           `json:"description"`
	ShortDescription string           `json:"short_description"`
	Price            decimal.Decimal  `json:"price"`
	ComparePrice     *decimal.Decimal `json:"compare_price"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	SKU              string           `json:"sku"`
	StockQuantity    int              `json:"stock_quantity"`
	Weight           *decimal.Decimal `json:"weight"`
	Dimensions       string           `json:"dimensions"`
	IsActive         bool             `json:"is_active"`
	IsFeatured       bool             `json:"is_featured"`
	IsBestseller     bool             `json:"is_bestseller"`
	MetaTitle        string           `json:"meta_title"`
	MetaDescription  string           `json:"meta_description"`
	SortOrder        int              `json:"sort_order"`
	CategoryID       *uuid.UUID       `json:"category_id"`
	Images           []imagePayload   `json:"images" validate:"max=3,dive"`
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func (p productPayload) toInput() (catalog.ProductInput, error) {
	input := catalog.ProductInput{
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		ComparePrice:     nullDecimal(p.ComparePrice),
		CostPrice:        nullDecimal(p.CostPrice),
		SKU:              p.SKU,
		StockQuantity:    p.StockQuantity,
		Weight:           nullDecimal(p.Weight),
		Dimensions:       p.Dimensions,
		IsActive:         p.IsActive,
		IsFeatured:       p.IsFeatured,
		IsBestseller:     p.IsBestseller,
		MetaTitle:        p.MetaTitle,
		MetaDescription:  p.MetaDescription,
		SortOrder:        p.SortOrder,
	}
	if p.CategoryID != nil {
		input.CategoryID = uuid.NullUUID{UUID: *p.CategoryID, Valid: true}
	}
	for _, img := range p.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return catalog.ProductInput{}, err
		}
		input.Images = append(input.Images, catalog.ProductImage{Data: data, MIME: img.MIME})
	}
	return input, nil
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context(), catalog.ProductFilter{IncludeHidden: true})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "images must be base64 encoded")
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), input)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input, err := payload.toInput()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "images must be base64 encoded")
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), id, input)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *AdminHandler) ToggleProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.catalog.ToggleProductActive(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

type categoryPayload struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

func (p categoryPayload) toInput() catalog.CategoryInput {
	return catalog.CategoryInput{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		IsActive:    p.IsActive,
		SortOrder:   p.SortOrder,
	}
}

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context(), true)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	c, err := h.catalog.CreateCategory(r.Context(), payload.toInput())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	c, err := h.catalog.UpdateCategory(r.Context(), id, payload.toInput())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// DeleteCategory refuses to delete a category that still has products; the
// response tells the admin to move or delete them first.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

func (h *AdminHandler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	c, err := h.catalog.ToggleCategoryActive(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

type statusPayload struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
}

// UpdateOrderStatus moves an order along the status machine. Illegal edges
// come back as 409 without touching the order.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	var tracking *order.Tracking
	if payload.TrackingNumber != "" || payload.TrackingURL != "" {
		tracking = &order.Tracking{
			Number: payload.TrackingNumber,
			URL:    payload.TrackingURL,
		}
	}

	next := order.Status(payload.Status)
	if !next.Valid() {
		respondWithError(w, http.StatusBadRequest, "unknown status "+payload.Status)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, next, tracking)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type adminUserPayload struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload adminUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	u, err := h.users.CreateUser(r.Context(), user.AdminInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     user.Role(payload.Role),
		IsActive: payload.IsActive,
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload adminUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	u, err := h.users.UpdateUser(r.Context(), id, user.AdminInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     user.Role(payload.Role),
		IsActive: payload.IsActive,
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.users.DeleteUser(r.Context(), id, s.User.ID); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := h.users.ToggleActive(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}
