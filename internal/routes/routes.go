package routes

import (
	"github.com/gin-gonic/gin"

	"legaltrainer/internal/handlers"
	"legaltrainer/internal/middleware"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Codes        *handlers.CodeHandler
	Progress     *handlers.ProgressHandler
	Attempts     *handlers.AttemptHandler
	Integrations *handlers.IntegrationsHandler // может быть nil
}

func SetupRoutes(r *gin.Engine, h Handlers, tokens middleware.TokenParser, codeLimiter *middleware.RateLimiter) *gin.Engine {
	// ---- public
	r.GET("/healthz", handlers.Healthz)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)

		limited := codeLimiter.Middleware()
		auth.POST("/email/request", limited, h.Codes.RequestEmail)
		auth.POST("/email/verify", h.Codes.VerifyEmail)
		auth.POST("/sms/request", limited, h.Codes.RequestSMS)
		auth.POST("/sms/verify", h.Codes.VerifySMS)
		auth.POST("/bot/request", limited, h.Codes.RequestBot)
		auth.POST("/bot/verify", h.Codes.VerifyBot)
	}

	// Telegram webhook публикуем только если есть интеграция
	if h.Integrations != nil {
		r.POST("/integrations/telegram/webhook", h.Integrations.Webhook)
	}

	// ---- protected
	protected := r.Group("/", middleware.AuthMiddleware(tokens))
	protected.GET("/me", middleware.WithIdentity(h.Auth.Me))

	progress := protected.Group("/progress")
	{
		progress.POST("/grade", middleware.WithIdentity(h.Progress.Grade))
		progress.GET("/due", middleware.WithIdentity(h.Progress.Due))
		progress.GET("/summary", middleware.WithIdentity(h.Progress.Summary))
		progress.GET("/report.pdf", middleware.WithIdentity(h.Progress.Report))
	}

	attempts := protected.Group("/attempts")
	{
		attempts.POST("", middleware.WithIdentity(h.Attempts.Create))
		attempts.GET("", middleware.WithIdentity(h.Attempts.List))
	}

	return r
}
