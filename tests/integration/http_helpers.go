package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/config"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/database"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/handlers"
	middlewareCustom "github.com/yayasalr/shalomjobcenter-27-sub004/internal/middleware"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/routes"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
	pkglogger "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/logger"
)

// SentNotification represents a captured operator notification
type SentNotification struct {
	Identifier string
	Message    string
	CreatedAt  time.Time
}

// MockEmailService captures operator notifications for test assertions
type MockEmailService struct {
	Sent []SentNotification
	mu   sync.Mutex
}

// SendContactNotification records the notification
func (m *MockEmailService) SendContactNotification(ctx context.Context, identifier, message string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sent = append(m.Sent, SentNotification{
		Identifier: identifier,
		Message:    message,
		CreatedAt:  createdAt,
	})
	return nil
}

// GetLastNotification returns the most recent notification sent
func (m *MockEmailService) GetLastNotification() *SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Client       *http.Client
	Pool         *database.DB
	EmailService *MockEmailService
	Config       *config.Config

	// Dependency references for inspection in tests. Challenges and Risk are
	// map-backed stores, so the suite needs no Redis container.
	TokenManager *auth.TokenManager
	TOTPManager  *auth.TOTPManager
	Challenges   *services.InMemoryChallengeStore
	Risk         *services.InMemoryRiskStore
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Create test config
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:   15 * time.Minute,
			RefreshTokenExpiry:  7 * 24 * time.Hour,
			TimingDelayBaseMs:   0,
			TimingDelayJitterMs: 0,
		},
		Security: config.SecurityConfig{
			MaxLoginAttempts:  5,
			LockoutDuration:   20 * time.Minute,
			ChallengeTTL:      5 * time.Minute,
			SessionTTL:        30 * time.Minute,
			AttemptRetention:  24 * time.Hour,
			EventRetention:    90 * 24 * time.Hour,
			CleanupInterval:   1 * time.Hour,
			TOTPIssuer:        "SecurityGateTest",
			TOTPEncryptionKey: []byte("test-totp-encryption-key-32bytes"),
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	// Initialize repositories
	userRepo, revokeRepo, attemptRepo, deviceRepo, twoFactorRepo, eventRepo, contactRepo :=
		InitializeRepositories(db)

	// Create mock email service
	mockEmail := &MockEmailService{}

	// Session state stores
	challengeStore := services.NewInMemoryChallengeStore()
	riskStore := services.NewInMemoryRiskStore()

	// Initialize TokenManager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Security.ChallengeTTL,
	)

	totpManager, err := auth.NewTOTPManager(cfg.Security.TOTPEncryptionKey, cfg.Security.TOTPIssuer)
	if err != nil {
		panic(fmt.Sprintf("failed to create TOTP manager: %v", err))
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs: cfg.Auth.TimingDelayBaseMs,
		JitterMs:    cfg.Auth.TimingDelayJitterMs,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	auditService := services.NewAuditService(eventRepo, logger)
	lockoutService := services.NewLockoutService(attemptRepo, auditService, auditLogger, services.LockoutConfig{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		LockoutDuration: cfg.Security.LockoutDuration,
	}, logger)
	twoFactorService := services.NewTwoFactorService(twoFactorRepo, userRepo, challengeStore, totpManager, auditService, cfg.Security.ChallengeTTL, logger)
	deviceTrustService := services.NewDeviceTrustService(deviceRepo, auditService, logger)
	riskService := services.NewRiskService(riskStore, auditService, cfg.Security.SessionTTL, logger)
	contactService := services.NewContactService(contactRepo, mockEmail, auditService, logger)
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

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{}}
	cookieConfig := auth.CookieConfig{SameSite: "strict"}

	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, ipConfig, cookieConfig),
		TwoFactor: handlers.NewTwoFactorHandler(twoFactorService, deviceTrustService, ipConfig),
		Devices:   handlers.NewDeviceHandler(deviceTrustService, ipConfig),
		Telemetry: handlers.NewTelemetryHandler(riskService, ipConfig),
		Contact:   handlers.NewContactHandler(contactService, ipConfig),
		Admin:     handlers.NewAdminHandler(contactService, auditService, lockoutService, ipConfig),
	}

	// Setup Chi router with middleware
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Setup routes using production pattern
	routes.RegisterRoutes(r, h, tokenManager, userRepo, revokeRepo)

	// Create httptest.Server
	server := httptest.NewServer(r)

	// Cookie jar keeps the session and trust cookies across requests,
	// the way a browser would through a login flow.
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	return &TestServer{
		Server:       server,
		Client:       client,
		Pool:         db,
		EmailService: mockEmail,
		Config:       cfg,
		TokenManager: tokenManager,
		TOTPManager:  totpManager,
		Challenges:   challengeStore,
		Risk:         riskStore,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	if headers != nil {
		for key, value := range headers {
			req.Header.Set(key, value)
		}
	}

	return ts.Client.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractLoginResult extracts tokens and step state from a login response
func ExtractLoginResult(resp *http.Response) (state, accessToken, refreshToken, challengeToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if s, ok := authResp["state"].(string); ok {
		state = s
	}
	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}
	if challenge, ok := authResp["challenge_token"].(string); ok {
		challengeToken = challenge
	}

	return
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
