package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saazebharat/internal/admin"
	"saazebharat/internal/api"
	"saazebharat/internal/audit"
	"saazebharat/internal/config"
	"saazebharat/internal/content"
	"saazebharat/internal/database"
	"saazebharat/internal/mailer"
	"saazebharat/internal/registration"
	"saazebharat/internal/storage"
	"saazebharat/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.NewConfig()

	logLevel := slog.LevelInfo
	if cfg.Server.Environment == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" || cfg.Auth.TicketHMACKey == "" {
		logger.Error("JWT_SECRET and TICKET_HMAC_KEY must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(cfg.Database.DSN()); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", "error", err)
			cache = nil
		}
	}

	documents, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error("storage setup failed", "error", err)
		os.Exit(1)
	}

	sender := mailer.NewMailer(cfg.SMTP)
	recorder := audit.NewRecorder(&db, logger)
	contentSvc := content.NewService(&db, recorder, logger)
	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	registrations := registration.NewManager(&db, sender, contentSvc, recorder,
		cache, cfg.Registration, cfg.Auth.TicketHMACKey, logger)
	admins := admin.NewAuthenticator(&db, tokens, recorder, cfg.Auth.TOTPIssuer, logger)

	handler := api.NewHandler(registrations, admins, tokens, documents, contentSvc, &db, &db, logger)

	app := fiber.New(fiber.Config{
		AppName:      "saazebharat",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    10 * 1024 * 1024,
	})
	handler.RegisterRoutes(app)

	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("server listening", "addr", addr, "environment", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if cache != nil {
		cache.Close()
	}
}
