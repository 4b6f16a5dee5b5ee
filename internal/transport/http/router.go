package http

import (
	"net/http"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/config"
	"github.com/go-accounts-api/internal/transport/http/handler"
	appmiddleware "github.com/go-accounts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.TokenProvider)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo: deps.UserRepo,
		Mailer:   deps.Mailer,
		Tokens:   deps.TokenProvider,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	pwH := handler.NewPasswordRecoveryHandler(accountSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users/register", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/users/verify", accountH.Verify)
		r.With(sensitiveRL.Limit).Post("/users/login", accountH.Login)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", accountH.Me)
			r.Post("/users/logout", accountH.Logout)
		})
	})

	return r
}
