package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/catalog"
	"github.com/artetradicao/storefront/internal/config"
	"github.com/artetradicao/storefront/internal/db"
	"github.com/artetradicao/storefront/internal/handler"
	"github.com/artetradicao/storefront/internal/notify"
	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/payment"
	"github.com/artetradicao/storefront/internal/session"
	"github.com/artetradicao/storefront/internal/transport"
	"github.com/artetradicao/storefront/internal/user"
)

const (
	shutdownTimeout    = 10 * time.Second
	sessionPurgePeriod = 10 * time.Minute
	readHeaderTimeout  = 5 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.App.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	var dispatcher *notify.Dispatcher
	if cfg.SMTP.Host != "" {
		dispatcher = notify.NewDispatcher(notify.NewSMTPSender(cfg.SMTP))
		defer dispatcher.Close()
	} else {
		log.Warn().Msg("SMTP not configured, customer emails disabled")
	}

	var gateway payment.Gateway
	if cfg.Payment.BaseURL != "" {
		gateway = payment.NewHTTPGateway(cfg.Payment, cfg.App.BaseURL)
	} else {
		log.Warn().Msg("Payment gateway not configured, checkout will skip payment redirect")
	}

	catalogSvc := catalog.NewService(catalog.NewRepository(pg.Pool))
	orderSvc := order.NewService(order.NewRepository(pg.Pool), order.ZeroPricing(), orderNotifier(dispatcher))
	userSvc := user.NewService(user.NewRepository(pg.Pool), userNotifier(dispatcher), cfg.App.BaseURL)

	sessions := session.NewManager(cfg.Session.CookieName, cfg.Session.TTL)
	go purgeSessions(ctx, sessions)

	router := transport.NewRouter(sessions, transport.Handlers{
		Catalog: handler.NewCatalogHandler(catalogSvc),
		Cart:    handler.NewCartHandler(catalogSvc),
		Order:   handler.NewOrderHandler(orderSvc, gateway),
		Auth:    handler.NewAuthHandler(userSvc, sessions),
		Admin:   handler.NewAdminHandler(catalogSvc, orderSvc, userSvc),
		Webhook: handler.NewWebhookHandler(orderSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("Starting storefront server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// A nil *Dispatcher wrapped in a non-nil interface would defeat the services'
// nil checks, so the conversion happens here.
func orderNotifier(d *notify.Dispatcher) order.Notifier {
	if d == nil {
		return nil
	}
	return d
}

func userNotifier(d *notify.Dispatcher) user.Notifier {
	if d == nil {
		return nil
	}
	return d
}

func purgeSessions(ctx context.Context, m *session.Manager) {
	ticker := time.NewTicker(sessionPurgePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Purge()
		}
	}
}
