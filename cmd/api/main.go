package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formdrop-api/config"
	"formdrop-api/controllers"
	"formdrop-api/middleware"
	"formdrop-api/routes"
	"formdrop-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, logWriter := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	settings := config.LoadSettings()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	store := services.NewGormStore(db)
	if settings.AutoMigrate {
		if err := store.AutoMigrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Database schema migrated")
	}

	notifier, closeNotifier := buildNotifier(ctx, settings)
	defer closeNotifier()

	limiter := buildLimiter(ctx, settings)

	ingest := services.NewIngestService(store, store, notifier, services.IngestOptions{
		Limits: services.PayloadLimits{
			MaxBytes:  settings.MaxSubmissionBytes,
			MaxFields: settings.MaxSubmissionFields,
		},
		NotifyTimeout: settings.NotifyTimeout,
	})

	// Set Gin mode
	if settings.GinMode == gin.ReleaseMode || settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logWriter

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	if err := router.SetTrustedProxies(settings.TrustedProxies); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	routes.SetupRoutes(router, routes.Dependencies{
		Submit:      controllers.NewSubmitController(ingest),
		Forms:       controllers.NewFormController(services.NewFormService(store)),
		Submissions: controllers.NewSubmissionController(services.NewSubmissionService(store)),
		JWTSecret:   settings.JWTSecret,
		CORSOrigins: settings.CORSOrigins,
		Limiter:     limiter,
	})

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (notify mode: %s)", settings.ServerPort, settings.NotifyMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// buildNotifier picks the delivery path for owner emails. The returned func
// drains whatever background work the notifier owns.
func buildNotifier(ctx context.Context, settings config.Settings) (services.Notifier, func()) {
	noop := func() {}
	if settings.NotifyMode == config.NotifyOff {
		log.Println("Email notifications disabled")
		return services.NopNotifier{}, noop
	}

	if settings.NotifyMode == config.NotifyQueue {
		client, err := config.NewRedisClient(ctx, settings.RedisAddr, settings.RedisPassword)
		if err != nil {
			log.Fatalf("Notification queue unavailable: %v", err)
		}
		return services.NewQueueNotifier(client, settings.NotifyQueueKey), func() { _ = client.Close() }
	}

	mailer := config.LoadMailer()
	if !mailer.Configured() {
		log.Println("Warning: SMTP is not configured; notification emails will fail")
	}
	mail := services.NewMailNotifier(mailer)
	if settings.NotifyMode == config.NotifySync {
		return mail, noop
	}

	async := services.NewAsyncNotifier(mail, settings.NotifyWorkers, settings.NotifyBuffer, settings.NotifyTimeout)
	return async, async.Close
}

func buildLimiter(ctx context.Context, settings config.Settings) *middleware.FixedWindowLimiter {
	addr := settings.RateLimitRedisAddr
	if addr == "" {
		addr = settings.RedisAddr
	}
	if addr == "" || settings.RateLimitPerMinute <= 0 {
		log.Println("Rate limiting disabled")
		return nil
	}

	client, err := config.NewRedisClient(ctx, addr, settings.RedisPassword)
	if err != nil {
		log.Printf("Warning: rate limiting disabled: %v", err)
		return nil
	}
	limiter, err := middleware.NewFixedWindowLimiter(client, "formdrop:ratelimit", settings.RateLimitPerMinute, time.Minute)
	if err != nil {
		log.Printf("Warning: rate limiting disabled: %v", err)
		return nil
	}
	return limiter
}
