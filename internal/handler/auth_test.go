package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artetradicao/storefront/internal/session"
	"github.com/artetradicao/storefront/internal/user"
)

type mockUserService struct {
	registerFunc           func(ctx context.Context, name, email, password, phone string) (*user.User, error)
	authenticateFunc       func(ctx context.Context, email, password string) (*user.User, error)
	getUserFunc            func(ctx context.Context, id uuid.UUID) (*user.User, error)
	updateProfileFunc      func(ctx context.Context, id uuid.UUID, input user.ProfileInput) (*user.User, error)
	updateProfileImageFunc func(ctx context.Context, id uuid.UUID, data []byte, mimeType string) error
	getProfileImageFunc    func(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	requestResetFunc       func(ctx context.Context, email string) error
	resetPasswordFunc      func(ctx context.Context, token, newPassword string) error
	listUsersFunc          func(ctx context.Context) ([]user.User, error)
	createUserFunc         func(ctx context.Context, input user.AdminInput) (*user.User, error)
	updateUserFunc         func(ctx context.Context, id uuid.UUID, input user.AdminInput) (*user.User, error)
	toggleActiveFunc       func(ctx context.Context, id uuid.UUID) (*user.User, error)
	deleteUserFunc         func(ctx context.Context, id, actorID uuid.UUID) error
}

func (m *mockUserService) Register(ctx context.Context, name, email, password, phone string) (*user.User, error) {
	return m.registerFunc(ctx, name, email, password, phone)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	return m.authenticateFunc(ctx, email, password)
}

func (m *mockUserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.getUserFunc(ctx, id)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, input user.ProfileInput) (*user.User, error) {
	return m.updateProfileFunc(ctx, id, input)
}

func (m *mockUserService) UpdateProfileImage(ctx context.Context, id uuid.UUID, data []byte, mimeType string) error {
	return m.updateProfileImageFunc(ctx, id, data, mimeType)
}

func (m *mockUserService) GetProfileImage(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	return m.getProfileImageFunc(ctx, id)
}

func (m *mockUserService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.requestResetFunc(ctx, email)
}

func (m *mockUserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.resetPasswordFunc(ctx, token, newPassword)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]user.User, error) {
	return m.listUsersFunc(ctx)
}

func (m *mockUserService) CreateUser(ctx context.Context, input user.AdminInput) (*user.User, error) {
	return m.createUserFunc(ctx, input)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id uuid.UUID, input user.AdminInput) (*user.User, error) {
	return m.updateUserFunc(ctx, id, input)
}

func (m *mockUserService) ToggleActive(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.toggleActiveFunc(ctx, id)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id, actorID uuid.UUID) error {
	return m.deleteUserFunc(ctx, id, actorID)
}

func signedIn(id uuid.UUID) func(s *session.Session) {
	return func(s *session.Session) {
		s.User = &session.UserInfo{ID: id, Name: "Maria", Email: "maria@example.com", Role: user.RoleUser}
	}
}

func TestAuthHandler_GetProfile(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	svc := &mockUserService{
		getUserFunc: func(_ context.Context, got uuid.UUID) (*user.User, error) {
			assert.Equal(t, id, got)
			return &user.User{ID: id, Name: "Maria", Email: "maria@example.com", Address: "Rua das Flores 1"}, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	withSession(signedIn(id), h.GetProfile).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rua das Flores 1")
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	var gotInput user.ProfileInput
	svc := &mockUserService{
		updateProfileFunc: func(_ context.Context, _ uuid.UUID, input user.ProfileInput) (*user.User, error) {
			gotInput = input
			return &user.User{ID: id, Name: input.Name, City: input.City}, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	body := []byte(`{"name": "Maria Silva", "phone": "11999990000", "city": "Sao Paulo"}`)

	var sess *session.Session
	prep := func(s *session.Session) {
		signedIn(id)(s)
		sess = s
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	withSession(prep, h.UpdateProfile).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Maria Silva", gotInput.Name)
	assert.Equal(t, "Sao Paulo", gotInput.City)

	// The session keeps showing the freshly saved name.
	assert.Equal(t, "Maria Silva", sess.User.Name)
}

func TestAuthHandler_UpdateProfile_MissingName(t *testing.T) {
	h := NewAuthHandler(&mockUserService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader([]byte(`{"city": "Sao Paulo"}`)))
	withSession(signedIn(uuid.Must(uuid.NewV4())), h.UpdateProfile).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_UpdateProfileImage(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	var gotData []byte
	var gotMIME string
	svc := &mockUserService{
		updateProfileImageFunc: func(_ context.Context, _ uuid.UUID, data []byte, mimeType string) error {
			gotData = data
			gotMIME = mimeType
			return nil
		},
	}
	h := NewAuthHandler(svc, nil)

	encoded := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8})
	body := []byte(`{"data": "` + encoded + `", "mime": "image/jpeg"}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/profile/image", bytes.NewReader(body))
	withSession(signedIn(id), h.UpdateProfileImage).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{0xFF, 0xD8}, gotData)
	assert.Equal(t, "image/jpeg", gotMIME)
}

func TestAuthHandler_UpdateProfileImage_BadEncoding(t *testing.T) {
	h := NewAuthHandler(&mockUserService{}, nil)

	body := []byte(`{"data": "not base64 ###", "mime": "image/jpeg"}`)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/profile/image", bytes.NewReader(body))
	withSession(signedIn(uuid.Must(uuid.NewV4())), h.UpdateProfileImage).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_GetProfileImage(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	t.Run("stored image", func(t *testing.T) {
		svc := &mockUserService{
			getProfileImageFunc: func(context.Context, uuid.UUID) ([]byte, string, error) {
				return []byte{0xFF, 0xD8}, "image/jpeg", nil
			},
		}
		h := NewAuthHandler(svc, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/profile/image", nil)
		withSession(signedIn(id), h.GetProfileImage).ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, []byte{0xFF, 0xD8}, w.Body.Bytes())
	})

	t.Run("no image set", func(t *testing.T) {
		svc := &mockUserService{
			getProfileImageFunc: func(context.Context, uuid.UUID) ([]byte, string, error) {
				return nil, "", user.ErrNoProfileImage
			},
		}
		h := NewAuthHandler(svc, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/profile/image", nil)
		withSession(signedIn(id), h.GetProfileImage).ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
