package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "legaltrainer/docs"
	"legaltrainer/internal/config"
	"legaltrainer/internal/handlers"
	"legaltrainer/internal/middleware"
	"legaltrainer/internal/pdf"
	"legaltrainer/internal/repositories"
	"legaltrainer/internal/routes"
	"legaltrainer/internal/scheduler"
	"legaltrainer/internal/services"
	"legaltrainer/internal/utils"
	"legaltrainer/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API until ctx is cancelled, then drains requests,
// stops background jobs and waits for pending code deliveries.
func Run(ctx context.Context, cfg *config.Config) error {
	// === DB ===
	db, err := repositories.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[db] close: %v", err)
		}
	}()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	srv, err := build(cfg, db)
	if err != nil {
		return err
	}
	if err := srv.sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer srv.sched.Stop()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[http] shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		log.Printf("[http] shutdown: %v", err)
	}
	srv.otp.Wait()
	return nil
}

// Migrate applies the schema and exits.
func Migrate(ctx context.Context, cfg *config.Config) error {
	db, err := repositories.Open(cfg.Database.DSN, 1, 1)
	if err != nil {
		return err
	}
	defer db.Close()
	return repositories.Migrate(ctx, db)
}

type server struct {
	router *gin.Engine
	sched  *scheduler.Scheduler
	otp    services.OTPService
}

func build(cfg *config.Config, db *sqlx.DB) (*server, error) {
	if err := validation.RegisterGin(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	progressRepo := repositories.NewProgressRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)

	// === Outbound channels ===
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	mobizonClient := utils.NewClientWithOptions(
		cfg.Mobizon.BaseURL,
		cfg.Mobizon.APIKey,
		cfg.Mobizon.SenderID,
		cfg.Mobizon.DryRun,
	)

	// бот опционален: без токена или при ошибке getMe работаем без него
	var bot services.BotSender
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramService(cfg.Telegram.BotToken, "")
		if err != nil {
			log.Printf("[tg][init] disabled: %v", err)
		} else {
			bot = tg
			if err := tg.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
				log.Printf("[tg][init] %v", err)
			}
		}
	}

	// === Services ===
	authService := services.NewAuthService(userRepo, services.AuthOptions{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	userService := services.NewUserService(userRepo, emailService, authService)
	reviewService := services.NewReviewService(progressRepo, attemptRepo, services.ReviewOptions{
		Policy:     services.DuePolicy(cfg.Review.DuePolicy),
		MasteredAt: cfg.Review.MasteredAt,
		DueLimit:   cfg.Review.DueLimit,
	})
	attemptService := services.NewAttemptService(attemptRepo)

	registry := services.NewMemoryCodeRegistry()
	delivery := services.NewChannelDelivery(emailService, mobizonClient, bot, cfg.Auth.CodeTTL)
	otpService := services.NewOTPService(registry, delivery, userRepo, services.OTPOptions{TTL: cfg.Auth.CodeTTL})

	// === Handlers ===
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(userService, authService),
		Codes:    handlers.NewCodeHandler(otpService, authService),
		Progress: handlers.NewProgressHandler(reviewService, userService, pdf.NewReportGenerator(cfg.Report.FontPath)),
		Attempts: handlers.NewAttemptHandler(attemptService),
	}
	if bot != nil {
		h.Integrations = handlers.NewIntegrationsHandler(bot, otpService, userRepo, reviewService)
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, h, authService, middleware.NewRateLimiter(cfg.Auth.CodeRequestsPerMinute))

	return &server{
		router: router,
		sched:  scheduler.New(registry, cfg.Auth.CodeSweepInterval),
		otp:    otpService,
	}, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
