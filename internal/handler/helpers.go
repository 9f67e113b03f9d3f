package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/catalog"
	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/user"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

// mapErrorToStatusCode folds the domain error taxonomy into HTTP codes:
// missing entities to 404, validation to 400, duplicates and illegal status
// transitions to 409.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrImageNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, user.ErrNoProfileImage):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrSKUExists),
		errors.Is(err, catalog.ErrSlugExists),
		errors.Is(err, catalog.ErrCategoryNameExists),
		errors.Is(err, catalog.ErrCategoryInUse),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidCustomerInfo),
		errors.Is(err, user.ErrPasswordTooShort),
		errors.Is(err, user.ErrResetTokenInvalid),
		errors.Is(err, user.ErrCannotDeleteSelf):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrAccountDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondWithDomainError logs unexpected failures and hides their detail from
// the client; expected domain errors pass their message through.
func respondWithDomainError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("handler: internal error")
		respondWithError(w, code, "internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

func parseUUIDParam(raw string) (uuid.UUID, bool) {
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func respondWithValidationError(w http.ResponseWriter, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		details[fe.Field()] = fe.Tag()
	}
	respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": details,
	})
}
