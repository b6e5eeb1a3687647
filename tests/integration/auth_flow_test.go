package integration

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		log.Fatalf("failed to set up test database: %v", err)
	}
	testDB = db

	code := m.Run()

	if err := db.Teardown(ctx); err != nil {
		log.Printf("failed to tear down test database: %v", err)
	}
	os.Exit(code)
}

func resetDatabase(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func registerUser(t *testing.T, ts *TestServer, email, password string) (userID, accessToken string) {
	t.Helper()

	resp, err := ts.Request(http.MethodPost, "/auth/register", map[string]interface{}{
		"email":       email,
		"password":    password,
		"name":        "Test User",
		"locale":      "fr-FR",
		"screen_size": "1920x1080",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &body))

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok, "register response should include the user")

	userID, _ = user["id"].(string)
	accessToken, _ = body["access_token"].(string)
	require.NotEmpty(t, userID)
	require.NotEmpty(t, accessToken)
	return userID, accessToken
}

func login(t *testing.T, ts *TestServer, email, password string) *http.Response {
	t.Helper()

	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]interface{}{
		"email":       email,
		"password":    password,
		"locale":      "fr-FR",
		"screen_size": "1920x1080",
	}, nil)
	require.NoError(t, err)
	return resp
}

// =============================================================================
// Login flow
// =============================================================================

func TestLoginFlow_RegisterThenLogin(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("login")
	registerUser(t, ts, email, password)

	resp := login(t, ts, email, password)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state, accessToken, refreshToken, _, err := ExtractLoginResult(resp)
	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, state)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	// The granted token works against an authenticated endpoint.
	sessResp, err := ts.RequestWithAuth(http.MethodGet, "/auth/session", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, sessResp.StatusCode)

	var session map[string]interface{}
	require.NoError(t, ParseJSONResponse(sessResp, &session))
	assert.Equal(t, email, session["email"])
}

func TestLoginFlow_WrongPassword_GenericRefusal(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("wrongpw")
	registerUser(t, ts, email, password)

	resp := login(t, ts, email, "WrongPassword999!")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Equal(t, "Authentication failed", msg)
}

func TestLoginFlow_UnknownEmail_SameRefusalAsWrongPassword(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp := login(t, ts, "nobody@example.com", "TestPassword123!")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Equal(t, "Authentication failed", msg)
}

// =============================================================================
// Lockout
// =============================================================================

func TestLockout_ImposedAfterRepeatedFailures(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("lockout")
	_, err := SeedUser(context.Background(), testDB.Pool, email, password, "user")
	require.NoError(t, err)

	// The first failures are refused without any lock.
	for i := 0; i < ts.Config.Security.MaxLoginAttempts-1; i++ {
		resp := login(t, ts, email, "WrongPassword999!")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d should not yet lock", i+1)
		resp.Body.Close()
	}

	// The attempt that reaches the threshold comes back locked.
	resp := login(t, ts, email, "WrongPassword999!")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var locked struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		LockStatus struct {
			Locked           bool `json:"locked"`
			RemainingMinutes int  `json:"remaining_minutes"`
		} `json:"lock_status"`
	}
	require.NoError(t, ParseJSONResponse(resp, &locked))
	assert.Equal(t, "account_locked", locked.Error)
	assert.True(t, locked.LockStatus.Locked)
	assert.Greater(t, locked.LockStatus.RemainingMinutes, 0)

	// The correct password does not break the lock.
	resp = login(t, ts, email, password)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// Two-factor enrollment, challenge, and device trust
// =============================================================================

// currentTOTPCode reads the enrolled secret back from the database and derives
// the code an authenticator app would show right now.
func currentTOTPCode(t *testing.T, ts *TestServer, userID string) string {
	t.Helper()

	_, _, _, _, twoFactorRepo, _, _ := InitializeRepositories(testDB.DB)
	cfg, err := twoFactorRepo.GetByAccountID(context.Background(), userID)
	require.NoError(t, err)

	secret, err := ts.TOTPManager.DecryptSecret(cfg.SecretEncrypted, cfg.SecretNonce)
	require.NoError(t, err)

	code, err := totp.GenerateCode(string(secret), time.Now())
	require.NoError(t, err)
	return code
}

func TestTwoFactor_EnrollChallengeAndTrustDevice(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("twofactor")
	userID, accessToken := registerUser(t, ts, email, password)

	// Enroll: setup returns a QR code, confirm activates the factor.
	setupResp, err := ts.RequestWithAuth(http.MethodPost, "/account/2fa/setup", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, setupResp.StatusCode)

	var setup map[string]interface{}
	require.NoError(t, ParseJSONResponse(setupResp, &setup))
	assert.Contains(t, setup["qr_code"], "data:image/png;base64,")

	confirmResp, err := ts.RequestWithAuth(http.MethodPost, "/account/2fa/confirm", accessToken, map[string]interface{}{
		"code": currentTOTPCode(t, ts, userID),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
	confirmResp.Body.Close()

	// The next login stops at the second step.
	resp := login(t, ts, email, password)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state, _, _, challengeToken, err := ExtractLoginResult(resp)
	require.NoError(t, err)
	require.Equal(t, models.StateTwoFactorRequired, state)
	require.NotEmpty(t, challengeToken)

	// Resolving the challenge with trust_device grants the session and
	// plants the trust cookie in the jar.
	verifyResp, err := ts.Request(http.MethodPost, "/auth/2fa/verify", map[string]interface{}{
		"challenge_token": challengeToken,
		"code":            currentTOTPCode(t, ts, userID),
		"trust_device":    true,
		"locale":          "fr-FR",
		"screen_size":     "1920x1080",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, verifyResp.StatusCode)

	state, accessToken2, _, _, err := ExtractLoginResult(verifyResp)
	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, state)
	assert.NotEmpty(t, accessToken2)

	serverURL, err := url.Parse(ts.Server.URL)
	require.NoError(t, err)
	var trustCookie *http.Cookie
	for _, c := range ts.Client.Jar.Cookies(serverURL) {
		if c.Name == "trusted_device" {
			trustCookie = c
		}
	}
	require.NotNil(t, trustCookie, "verify with trust_device should set the trust cookie")

	// A trusted device skips the second step on the next login.
	resp = login(t, ts, email, password)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state, accessToken3, _, _, err := ExtractLoginResult(resp)
	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, state)
	assert.NotEmpty(t, accessToken3)
}

func TestTwoFactor_WrongCodeRefused(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("twofactor-wrong")
	userID, accessToken := registerUser(t, ts, email, password)

	setupResp, err := ts.RequestWithAuth(http.MethodPost, "/account/2fa/setup", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, setupResp.StatusCode)
	setupResp.Body.Close()

	confirmResp, err := ts.RequestWithAuth(http.MethodPost, "/account/2fa/confirm", accessToken, map[string]interface{}{
		"code": currentTOTPCode(t, ts, userID),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, confirmResp.StatusCode)
	confirmResp.Body.Close()

	resp := login(t, ts, email, password)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, _, _, challengeToken, err := ExtractLoginResult(resp)
	require.NoError(t, err)

	verifyResp, err := ts.Request(http.MethodPost, "/auth/2fa/verify", map[string]interface{}{
		"challenge_token": challengeToken,
		"code":            "000000",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, verifyResp.StatusCode)
	verifyResp.Body.Close()
}
