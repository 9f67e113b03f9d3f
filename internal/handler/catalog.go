// Package handler exposes the storefront over JSON HTTP. Handlers stay thin:
// decode and validate the payload, call the service, translate domain errors
// into status codes.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/artetradicao/storefront/internal/catalog"
)

type CatalogHandler struct {
	svc catalog.Service
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListProducts serves the public catalog. Hidden products never appear here.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := catalog.ProductFilter{
		CategorySlug:   q.Get("category"),
		Query:          q.Get("q"),
		FeaturedOnly:   q.Get("featured") == "true",
		BestsellerOnly: q.Get("bestseller") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	products, err := h.svc.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// GetProduct resolves {idOrSlug} as a UUID first and falls back to the slug.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "idOrSlug")

	var (
		p   *catalog.Product
		err error
	)
	if id, ok := parseUUIDParam(raw); ok {
		p, err = h.svc.GetProductByID(r.Context(), id)
	} else {
		p, err = h.svc.GetProductBySlug(r.Context(), raw)
	}
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if !p.IsActive {
		respondWithError(w, http.StatusNotFound, catalog.ErrProductNotFound.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// GetProductImage streams one of the product's image slots with its stored
// MIME type.
func (h *CatalogHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 1 || position > catalog.MaxProductImages {
		respondWithError(w, http.StatusBadRequest, "invalid image position")
		return
	}

	img, err := h.svc.GetProductImage(r.Context(), id, position)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), false)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// GetCategory returns one active category with its active products.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	c, err := h.svc.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if !c.IsActive {
		respondWithError(w, http.StatusNotFound, catalog.ErrCategoryNotFound.Error())
		return
	}

	products, err := h.svc.ListProducts(r.Context(), catalog.ProductFilter{
		CategoryID: uuid.NullUUID{UUID: c.ID, Valid: true},
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"category": c,
		"products": products,
	})
}
