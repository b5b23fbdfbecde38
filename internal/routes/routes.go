package routes

import (
	"time"

	"github.com/denizyilmazer/mingle-backend/internal/handlers"
	"github.com/denizyilmazer/mingle-backend/internal/middleware"
	"github.com/denizyilmazer/mingle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	sessions *services.SessionService,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth endpoints are public with a stricter per-IP limit. The per-identifier
	// lockout lives in the attempt guard; this limiter only shields the
	// endpoints themselves.
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/provider", authHandler.ProviderLogin)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-verification", authHandler.ResendVerification)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Protected routes (valid session required)
	protected := middleware.SessionProtected(sessions)
	api.Get("/me", protected, authHandler.Me)
	api.Post("/auth/logout", protected, authHandler.Logout)
	api.Post("/auth/link", protected, authHandler.LinkProvider)
	api.Delete("/auth/link/:provider", protected, authHandler.UnlinkProvider)
	api.Delete("/auth/account", protected, authHandler.DeleteAccount)

	// Admin moderation (session + admin flag)
	admin := api.Group("/admin", protected, middleware.AdminRequired())
	admin.Post("/users/:id/block", adminHandler.BlockUser)
	admin.Post("/users/:id/unblock", adminHandler.UnblockUser)
}
