package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/handlers"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/middleware"
)

// Handlers bundles the HTTP surface of the security gate.
type Handlers struct {
	Auth      *handlers.AuthHandler
	TwoFactor *handlers.TwoFactorHandler
	Devices   *handlers.DeviceHandler
	Telemetry *handlers.TelemetryHandler
	Contact   *handlers.ContactHandler
	Admin     *handlers.AdminHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	userFetcher auth.UserFetcher,
	revocationChecker auth.TokenRevocationChecker,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	telemetryLimit := middleware.RateLimitByIP(middleware.DefaultTelemetryRateLimit())

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", h.Auth.Register)
	router.With(authLimit).Post("/auth/login", h.Auth.Login)
	router.With(authLimit).Post("/auth/2fa/verify", h.Auth.TwoFactorVerify)
	router.With(authLimit).Post("/auth/2fa/cancel", h.Auth.TwoFactorCancel)
	router.With(authLimit).Post("/auth/refresh", h.Auth.RefreshToken)
	router.With(authLimit).Post("/auth/contact-admin", h.Contact.Submit)
	router.With(telemetryLimit).Post("/auth/telemetry", h.Telemetry.Ingest)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager, revocationChecker))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/session", h.Auth.Session)

		r.Get("/account/2fa", h.TwoFactor.Status)
		r.Post("/account/2fa/setup", h.TwoFactor.Setup)
		r.Post("/account/2fa/confirm", h.TwoFactor.Confirm)
		r.Post("/account/2fa/disable", h.TwoFactor.Disable)

		r.Get("/account/devices", h.Devices.List)
		r.Delete("/account/devices/{token}", h.Devices.Revoke)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userFetcher, "admin"))
			r.Get("/admin/contact-requests", h.Admin.ListContactRequests)
			r.Post("/admin/contact-requests/{id}/resolve", h.Admin.ResolveContactRequest)
			r.Get("/admin/security-events", h.Admin.ListSecurityEvents)
			r.Post("/admin/accounts/unlock", h.Admin.UnlockAccount)
		})
	})
}
