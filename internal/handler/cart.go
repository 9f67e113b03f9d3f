package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/artetradicao/storefront/internal/cart"
	"github.com/artetradicao/storefront/internal/catalog"
	"github.com/artetradicao/storefront/internal/session"
)

type CartHandler struct {
	catalog catalog.Service
}

func NewCartHandler(catalogSvc catalog.Service) *CartHandler {
	return &CartHandler{catalog: catalogSvc}
}

type cartView struct {
	Items []cart.Line `json:"items"`
	Count int         `json:"count"`
	Total string      `json:"total"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{
		Items: c.Lines(),
		Count: c.Len(),
		Total: c.Total().StringFixed(2),
	}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}

type cartItemPayload struct {
	Quantity int `json:"quantity"`
}

// Add puts a product into the session cart, snapshotting its current price.
// Adding a product already in the cart increments the quantity instead.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	payload := cartItemPayload{Quantity: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}
	if payload.Quantity < 1 {
		respondWithError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	p, err := h.catalog.GetProductByID(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if !p.IsActive {
		respondWithError(w, http.StatusNotFound, catalog.ErrProductNotFound.Error())
		return
	}

	s.Cart.Add(cart.Line{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		UnitPrice: p.Price,
		Quantity:  payload.Quantity,
		Image:     fmt.Sprintf("/products/%s/images/1", p.ID),
	})

	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}

// Update sets a line's quantity. Zero or less removes the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var payload cartItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	s.Cart.SetQuantity(id, payload.Quantity)
	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	s.Cart.Remove(id)
	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	s.Cart.Clear()
	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}
