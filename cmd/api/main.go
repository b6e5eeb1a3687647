package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/background"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/cache"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/config"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/handlers"
	middlewareCustom "github.com/yayasalr/shalomjobcenter-27-sub004/internal/middleware"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/repositories"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/routes"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
	pkgauth "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/auth"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
	pkglogger "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := cache.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	deviceRepo := repositories.NewDeviceTrustRepository(db)
	twoFactorRepo := repositories.NewTwoFactorRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)
	contactRepo := repositories.NewContactRequestRepository(db)

	// Redis-backed session state
	challengeStore := cache.NewChallengeStore(redisClient)
	riskStore := cache.NewRiskStore(redisClient)

	cleanupManager := background.NewCleanupManager(
		revokeRepo,
		attemptRepo,
		eventRepo,
		logger,
		cfg.Security.CleanupInterval,
		cfg.Security.AttemptRetention,
		cfg.Security.EventRetention,
	)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Security.ChallengeTTL,
	)

	totpManager, err := auth.NewTOTPManager(cfg.Security.TOTPEncryptionKey, cfg.Security.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs: cfg.Auth.TimingDelayBaseMs,
		JitterMs:    cfg.Auth.TimingDelayJitterMs,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Contact notifications go out over SES when enabled; the noop service
	// keeps the escape hatch working without AWS credentials.
	var emailService services.EmailService
	if cfg.Email.Enabled {
		emailService, err = services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.OperatorAddress,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		emailService = services.NewNoopEmailService(logger)
	}

	// Services
	auditService := services.NewAuditService(eventRepo, logger)
	lockoutService := services.NewLockoutService(attemptRepo, auditService, auditLogger, services.LockoutConfig{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		LockoutDuration: cfg.Security.LockoutDuration,
	}, logger)
	twoFactorService := services.NewTwoFactorService(twoFactorRepo, userRepo, challengeStore, totpManager, auditService, cfg.Security.ChallengeTTL, logger)
	deviceTrustService := services.NewDeviceTrustService(deviceRepo, auditService, logger)
	riskService := services.NewRiskService(riskStore, auditService, cfg.Security.SessionTTL, logger)
	contactService := services.NewContactService(contactRepo, emailService, auditService, logger)
	authService := services.NewAuthService(
		userRepo,
		revokeRepo,
		lockoutService,
		twoFactorService,
		deviceTrustService,
		tokenManager,
		timingDelay,
		auditService,
		auditLogger,
		logger,
	)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: parseTrustedProxies()}
	cookieConfig := auth.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}

	// Handlers
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig, cookieConfig),
		TwoFactor: handlers.NewTwoFactorHandler(twoFactorService, deviceTrustService, ipConfig),
		Devices:   handlers.NewDeviceHandler(deviceTrustService, ipConfig),
		Telemetry: handlers.NewTelemetryHandler(riskService, ipConfig),
		Contact:   handlers.NewContactHandler(contactService, ipConfig),
		Admin:     handlers.NewAdminHandler(contactService, auditService, lockoutService, ipConfig),
	}

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, tokenManager, userRepo, revokeRepo)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")

		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		if err := redisClient.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","redis":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up","redis":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// parseTrustedProxies reads the comma-separated TRUSTED_PROXIES CIDR list.
// Empty means no proxy is trusted and forwarded headers are ignored.
func parseTrustedProxies() []string {
	raw := os.Getenv("TRUSTED_PROXIES")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	proxies := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
		Status:       "active",
	}

	_, err = userRepo.Create(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
