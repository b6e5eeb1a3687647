package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/handlers"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
)

func newTwoFactorHandler(service *handlers.MockTwoFactorService, devices *handlers.MockDeviceTrustService) *handlers.TwoFactorHandler {
	if devices == nil {
		devices = &handlers.MockDeviceTrustService{}
	}
	return handlers.NewTwoFactorHandler(service, devices, nil)
}

func TestTwoFactorStatus_Enabled(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		EnabledFunc: func(ctx context.Context, accountID string) (bool, error) {
			assert.Equal(t, "user123", accountID)
			return true, nil
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "GET", "/account/2fa", nil)
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Status(w, req)

	var resp map[string]bool
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp["enabled"])
}

func TestTwoFactorStatus_Unauthenticated(t *testing.T) {
	handler := newTwoFactorHandler(&handlers.MockTwoFactorService{}, nil)
	req := handlers.NewTestRequest(t, "GET", "/account/2fa", nil)

	w := httptest.NewRecorder()
	handler.Status(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestTwoFactorSetup_ReturnsQRCode(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		InitiateSetupFunc: func(ctx context.Context, accountID, email string) (*services.SetupResponse, error) {
			assert.Equal(t, "user@example.com", email)
			return &services.SetupResponse{QRCode: "data:image/png;base64,abc123"}, nil
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/setup", nil)
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	var resp services.SetupResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Contains(t, resp.QRCode, "data:image/png;base64,")
}

func TestTwoFactorSetup_AlreadyEnabled(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		InitiateSetupFunc: func(ctx context.Context, accountID, email string) (*services.SetupResponse, error) {
			return nil, models.ErrTwoFactorConflict
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/setup", nil)
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestTwoFactorConfirm_Success(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		ConfirmSetupFunc: func(ctx context.Context, accountID, code string, client models.ClientContext) error {
			assert.Equal(t, "123456", code)
			return nil
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/confirm", handlers.TwoFactorCodeRequest{Code: "123456"})
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Confirm(w, req)

	var resp map[string]bool
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp["enabled"])
}

func TestTwoFactorConfirm_MalformedCode(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		ConfirmSetupFunc: func(ctx context.Context, accountID, code string, client models.ClientContext) error {
			return models.ErrInvalidCodeFormat
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/confirm", handlers.TwoFactorCodeRequest{Code: "12345"})
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Confirm(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestTwoFactorConfirm_WrongCode(t *testing.T) {
	mock := &handlers.MockTwoFactorService{
		ConfirmSetupFunc: func(ctx context.Context, accountID, code string, client models.ClientContext) error {
			return models.ErrInvalidCode
		},
	}

	handler := newTwoFactorHandler(mock, nil)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/confirm", handlers.TwoFactorCodeRequest{Code: "654321"})
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Confirm(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestTwoFactorDisable_RevokesTrustedDevices(t *testing.T) {
	revoked := false
	mock := &handlers.MockTwoFactorService{
		DisableFunc: func(ctx context.Context, accountID, code string, client models.ClientContext) error {
			return nil
		},
	}
	devices := &handlers.MockDeviceTrustService{
		RevokeAllFunc: func(ctx context.Context, accountID string, client models.ClientContext) error {
			assert.Equal(t, "user123", accountID)
			revoked = true
			return nil
		},
	}

	handler := newTwoFactorHandler(mock, devices)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/disable", handlers.TwoFactorCodeRequest{Code: "123456"})
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Disable(w, req)

	assert.Equal(t, 200, w.Code)
	assert.True(t, revoked, "disabling the factor should clear the trust list")
}

func TestTwoFactorDisable_RequiresValidCode(t *testing.T) {
	revoked := false
	mock := &handlers.MockTwoFactorService{
		DisableFunc: func(ctx context.Context, accountID, code string, client models.ClientContext) error {
			return models.ErrInvalidCode
		},
	}
	devices := &handlers.MockDeviceTrustService{
		RevokeAllFunc: func(ctx context.Context, accountID string, client models.ClientContext) error {
			revoked = true
			return nil
		},
	}

	handler := newTwoFactorHandler(mock, devices)
	req := handlers.NewTestRequest(t, "POST", "/account/2fa/disable", handlers.TwoFactorCodeRequest{Code: "000000"})
	req = handlers.WithAuthContext(req, "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Disable(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
	assert.False(t, revoked, "trust list must survive a refused disable")
}

// Type assertions to ensure implementations satisfy interfaces
var (
	_ handlers.TwoFactorServiceInterface   = (*handlers.MockTwoFactorService)(nil)
	_ handlers.DeviceTrustServiceInterface = (*handlers.MockDeviceTrustService)(nil)
)
