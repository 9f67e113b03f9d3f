package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/session"
	"github.com/artetradicao/storefront/internal/user"
)

type AuthHandler struct {
	svc      user.Service
	sessions *session.Manager
	validate *validator.Validate
}

func NewAuthHandler(svc user.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		sessions: sessions,
		validate: validator.New(),
	}
}

type registerPayload struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Phone           string `json:"phone"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}
	if payload.Password != payload.ConfirmPassword {
		respondWithError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	u, err := h.svc.Register(r.Context(), payload.Name, payload.Email, payload.Password, payload.Phone)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, u)
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates and binds the account to the current session. The cart
// collected while browsing anonymously is kept.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	u, err := h.svc.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	s := session.FromContext(r.Context())
	s.User = &session.UserInfo{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}

	respondWithJSON(w, http.StatusOK, s.User)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the signed-in account summary.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	respondWithJSON(w, http.StatusOK, s.User)
}

// GetProfile returns the signed-in user's full account record.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	u, err := h.svc.GetUser(r.Context(), s.User.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

type profilePayload struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// UpdateProfile lets the signed-in user edit their contact details. The
// session copy of the name follows the update.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	s := session.FromContext(r.Context())
	u, err := h.svc.UpdateProfile(r.Context(), s.User.ID, user.ProfileInput{
		Name:    payload.Name,
		Phone:   payload.Phone,
		Address: payload.Address,
		City:    payload.City,
		State:   payload.State,
		ZipCode: payload.ZipCode,
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	s.User.Name = u.Name

	respondWithJSON(w, http.StatusOK, u)
}

type profileImagePayload struct {
	Data string `json:"data" validate:"required"`
	MIME string `json:"mime" validate:"required"`
}

func (h *AuthHandler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	var payload profileImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "image must be base64 encoded")
		return
	}

	s := session.FromContext(r.Context())
	if err := h.svc.UpdateProfileImage(r.Context(), s.User.ID, data, payload.MIME); err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "profile image updated"})
}

func (h *AuthHandler) GetProfileImage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	data, mimeType, err := h.svc.GetProfileImage(r.Context(), s.User.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("handler: failed to write profile image")
	}
}

type resetRequestPayload struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset always answers 202 so the endpoint cannot be used to
// probe which emails have accounts.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

type resetConfirmPayload struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload resetConfirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
