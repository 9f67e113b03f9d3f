// Package transport wires the HTTP surface: routes, session injection and the
// auth guards in front of account and admin areas.
package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artetradicao/storefront/internal/handler"
	"github.com/artetradicao/storefront/internal/session"
)

type Handlers struct {
	Catalog *handler.CatalogHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
	Webhook *handler.WebhookHandler
}

// NewRouter assembles the full route tree. Everything except the payment
// webhook runs behind the session middleware.
func NewRouter(sessions *session.Manager, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The gateway posts here server-to-server; no session cookie involved.
	r.Post("/webhooks/payment", h.Webhook.PaymentNotification)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/products", h.Catalog.ListProducts)
		r.Get("/products/{idOrSlug}", h.Catalog.GetProduct)
		r.Get("/products/{id}/images/{position}", h.Catalog.GetProductImage)
		r.Get("/categories", h.Catalog.ListCategories)
		r.Get("/categories/{slug}", h.Catalog.GetCategory)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Post("/items/{id}", h.Cart.Add)
			r.Put("/items/{id}", h.Cart.Update)
			r.Delete("/items/{id}", h.Cart.Remove)
		})

		// Checkout stays public: guests may buy without an account.
		r.Get("/orders/checkout", h.Order.GetCheckout)
		r.Post("/orders/checkout", h.Order.PostCheckout)
		r.Get("/orders/track/{number}", h.Order.TrackOrder)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.Post("/password-reset", h.Auth.RequestPasswordReset)
			r.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/auth/me", h.Auth.Me)
			r.Get("/profile", h.Auth.GetProfile)
			r.Put("/profile", h.Auth.UpdateProfile)
			r.Get("/profile/image", h.Auth.GetProfileImage)
			r.Put("/profile/image", h.Auth.UpdateProfileImage)
			r.Get("/orders", h.Order.ListOrders)
			r.Get("/orders/{id}", h.Order.GetOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/products", h.Admin.ListProducts)
			r.Post("/products", h.Admin.CreateProduct)
			r.Put("/products/{id}", h.Admin.UpdateProduct)
			r.Delete("/products/{id}", h.Admin.DeleteProduct)
			r.Post("/products/{id}/toggle", h.Admin.ToggleProduct)

			r.Get("/categories", h.Admin.ListCategories)
			r.Post("/categories", h.Admin.CreateCategory)
			r.Put("/categories/{id}", h.Admin.UpdateCategory)
			r.Delete("/categories/{id}", h.Admin.DeleteCategory)
			r.Post("/categories/{id}/toggle", h.Admin.ToggleCategory)

			r.Get("/orders", h.Admin.ListOrders)
			r.Put("/orders/{id}/status", h.Admin.UpdateOrderStatus)

			r.Get("/users", h.Admin.ListUsers)
			r.Post("/users", h.Admin.CreateUser)
			r.Put("/users/{id}", h.Admin.UpdateUser)
			r.Delete("/users/{id}", h.Admin.DeleteUser)
			r.Post("/users/{id}/toggle", h.Admin.ToggleUser)
		})
	})

	return r
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if s == nil || s.User == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if s == nil || s.User == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		if !s.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
