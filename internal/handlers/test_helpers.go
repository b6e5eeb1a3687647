package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   models.TokenTypeAccess,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc             func(ctx context.Context, email, password string, client models.ClientContext) (*services.LoginResult, error)
	CompleteTwoFactorFunc func(ctx context.Context, challengeToken, code string, trustDevice bool, client models.ClientContext) (*services.LoginResult, error)
	CancelTwoFactorFunc   func(ctx context.Context, challengeToken string, client models.ClientContext) error
	RegisterFunc          func(ctx context.Context, email, password, name string, client models.ClientContext) (*services.LoginResult, error)
	RefreshTokenFunc      func(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	LogoutFunc            func(ctx context.Context, accessToken string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, client models.ClientContext) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, client)
}

func (m *MockAuthService) CompleteTwoFactor(ctx context.Context, challengeToken, code string, trustDevice bool, client models.ClientContext) (*services.LoginResult, error) {
	if m.CompleteTwoFactorFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.CompleteTwoFactorFunc(ctx, challengeToken, code, trustDevice, client)
}

func (m *MockAuthService) CancelTwoFactor(ctx context.Context, challengeToken string, client models.ClientContext) error {
	if m.CancelTwoFactorFunc == nil {
		return nil
	}
	return m.CancelTwoFactorFunc(ctx, challengeToken, client)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string, client models.ClientContext) (*services.LoginResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name, client)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.LoginResult, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, accessToken)
}

// MockTwoFactorService implements TwoFactorServiceInterface for testing
type MockTwoFactorService struct {
	InitiateSetupFunc func(ctx context.Context, accountID, email string) (*services.SetupResponse, error)
	ConfirmSetupFunc  func(ctx context.Context, accountID, code string, client models.ClientContext) error
	DisableFunc       func(ctx context.Context, accountID, code string, client models.ClientContext) error
	EnabledFunc       func(ctx context.Context, accountID string) (bool, error)
}

func (m *MockTwoFactorService) InitiateSetup(ctx context.Context, accountID, email string) (*services.SetupResponse, error) {
	if m.InitiateSetupFunc == nil {
		return &services.SetupResponse{QRCode: "data:image/png;base64,test"}, nil
	}
	return m.InitiateSetupFunc(ctx, accountID, email)
}

func (m *MockTwoFactorService) ConfirmSetup(ctx context.Context, accountID, code string, client models.ClientContext) error {
	if m.ConfirmSetupFunc == nil {
		return nil
	}
	return m.ConfirmSetupFunc(ctx, accountID, code, client)
}

func (m *MockTwoFactorService) Disable(ctx context.Context, accountID, code string, client models.ClientContext) error {
	if m.DisableFunc == nil {
		return nil
	}
	return m.DisableFunc(ctx, accountID, code, client)
}

func (m *MockTwoFactorService) Enabled(ctx context.Context, accountID string) (bool, error) {
	if m.EnabledFunc == nil {
		return false, nil
	}
	return m.EnabledFunc(ctx, accountID)
}

// MockDeviceTrustService implements DeviceTrustServiceInterface for testing
type MockDeviceTrustService struct {
	ListFunc      func(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error)
	RevokeFunc    func(ctx context.Context, accountID, token string, client models.ClientContext) error
	RevokeAllFunc func(ctx context.Context, accountID string, client models.ClientContext) error
}

func (m *MockDeviceTrustService) List(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error) {
	if m.ListFunc == nil {
		return []*models.DeviceTrustEntry{}, nil
	}
	return m.ListFunc(ctx, accountID)
}

func (m *MockDeviceTrustService) Revoke(ctx context.Context, accountID, token string, client models.ClientContext) error {
	if m.RevokeFunc == nil {
		return nil
	}
	return m.RevokeFunc(ctx, accountID, token, client)
}

func (m *MockDeviceTrustService) RevokeAll(ctx context.Context, accountID string, client models.ClientContext) error {
	if m.RevokeAllFunc == nil {
		return nil
	}
	return m.RevokeAllFunc(ctx, accountID, client)
}

// MockRiskService implements RiskServiceInterface for testing
type MockRiskService struct {
	ObserveInteractionFunc func(ctx context.Context, sessionID string, sinceLast time.Duration, client models.ClientContext) (models.SessionRisk, error)
	ScanEnvironmentFunc    func(ctx context.Context, sessionID string, scan models.EnvironmentScan, client models.ClientContext) (models.SessionRisk, error)
}

func (m *MockRiskService) ObserveInteraction(ctx context.Context, sessionID string, sinceLast time.Duration, client models.ClientContext) (models.SessionRisk, error) {
	if m.ObserveInteractionFunc == nil {
		return models.SessionRisk{}, nil
	}
	return m.ObserveInteractionFunc(ctx, sessionID, sinceLast, client)
}

func (m *MockRiskService) ScanEnvironment(ctx context.Context, sessionID string, scan models.EnvironmentScan, client models.ClientContext) (models.SessionRisk, error) {
	if m.ScanEnvironmentFunc == nil {
		return models.SessionRisk{}, nil
	}
	return m.ScanEnvironmentFunc(ctx, sessionID, scan, client)
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	SubmitFunc func(ctx context.Context, identifier, message string, client models.ClientContext) (*models.ContactRequest, error)
}

func (m *MockContactService) Submit(ctx context.Context, identifier, message string, client models.ClientContext) (*models.ContactRequest, error) {
	if m.SubmitFunc == nil {
		return &models.ContactRequest{ID: "req-1", Status: "pending"}, nil
	}
	return m.SubmitFunc(ctx, identifier, message, client)
}

// MockContactAdminService implements ContactAdminServiceInterface for testing
type MockContactAdminService struct {
	ListPendingFunc func(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error)
	ResolveFunc     func(ctx context.Context, id string) error
}

func (m *MockContactAdminService) ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error) {
	if m.ListPendingFunc == nil {
		return []*models.ContactRequest{}, nil
	}
	return m.ListPendingFunc(ctx, limit, offset)
}

func (m *MockContactAdminService) Resolve(ctx context.Context, id string) error {
	if m.ResolveFunc == nil {
		return nil
	}
	return m.ResolveFunc(ctx, id)
}

// MockAuditQueryService implements AuditQueryServiceInterface for testing
type MockAuditQueryService struct {
	ListRecentFunc        func(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error)
	ListForIdentifierFunc func(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error)
}

func (m *MockAuditQueryService) ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.ListRecentFunc == nil {
		return []*models.SecurityEvent{}, nil
	}
	return m.ListRecentFunc(ctx, eventType, limit, offset)
}

func (m *MockAuditQueryService) ListForIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.ListForIdentifierFunc == nil {
		return []*models.SecurityEvent{}, nil
	}
	return m.ListForIdentifierFunc(ctx, identifier, limit, offset)
}

// MockUnlockService implements UnlockServiceInterface for testing
type MockUnlockService struct {
	UnlockFunc func(ctx context.Context, identifier string, client models.ClientContext) error
}

func (m *MockUnlockService) Unlock(ctx context.Context, identifier string, client models.ClientContext) error {
	if m.UnlockFunc == nil {
		return nil
	}
	return m.UnlockFunc(ctx, identifier, client)
}
