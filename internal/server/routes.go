package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/outreach/internal/server/handlers"
	"github.com/iudanet/outreach/internal/server/middleware"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

func (a *App) routes() http.Handler {
	var revoker handlers.TokenRevoker
	if a.revoked != nil {
		revoker = a.revoked
	}

	authHandler := handlers.NewAuthHandler(a.logger, a.renderer, handlers.AuthConfig{
		Users:      a.store,
		Files:      a.files,
		Tokens:     a.tokens,
		Revoker:    revoker,
		Metrics:    a.metrics,
		Cookie:     handlers.CookieConfig{Secure: a.cfg.Auth.CookieSecure},
		BcryptCost: a.cfg.Auth.BcryptCost,
	})
	companyHandler := handlers.NewCompanyHandler(a.logger, a.renderer, a.store)
	profileHandler := handlers.NewProfileHandler(a.logger, a.renderer, a.store, a.files, a.cfg.Auth.BcryptCost)
	mailHandler := handlers.NewMailHandler(a.logger, a.store, a.store, a.files, a.dispatcher)
	healthHandler := handlers.NewHealthHandler(a.logger, a.store, a.version)

	resolver := a.identityResolver()
	pageAuth := middleware.RequireIdentity(a.logger, resolver, a.metrics, middleware.ModePage)
	apiAuth := middleware.RequireIdentity(a.logger, resolver, a.metrics, middleware.ModeAPI)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Logging(a.logger, a.metrics, healthPath, metricsPath))

	// Публичные маршруты
	r.Get("/", authHandler.LoginPage)
	r.Get("/user_registration", authHandler.RegistrationPage)
	r.Post("/register", authHandler.Register)
	r.With(middleware.RateLimit(a.limiter, a.logger, a.metrics)).Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)

	r.Get(healthPath, healthHandler.Health)
	r.Handle(metricsPath, a.metrics.Handler())

	// Страницы: без сессии редирект на вход
	r.Group(func(r chi.Router) {
		r.Use(pageAuth)
		r.Get("/dashboard", profileHandler.Dashboard)
		r.Get("/company_registration", companyHandler.RegistrationPage)
		r.Get("/edit_company/{id}", companyHandler.EditPage)
		r.Get("/updateprofile", profileHandler.Page)
	})

	// Действия: без сессии 401 JSON
	r.Group(func(r chi.Router) {
		r.Use(apiAuth)
		r.Post("/register_company", companyHandler.Register)
		r.Get("/my_companies", companyHandler.List)
		r.Post("/delete_company/{id}", companyHandler.Delete)
		r.Post("/update_company/{id}", companyHandler.Update)
		r.Post("/updateprofile", profileHandler.Update)
		r.Post("/send_mail/{id}", mailHandler.Send)
	})

	return r
}
