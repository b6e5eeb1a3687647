package integration

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionID(t *testing.T, ts *TestServer) string {
	t.Helper()

	serverURL, err := url.Parse(ts.Server.URL)
	require.NoError(t, err)
	for _, c := range ts.Client.Jar.Cookies(serverURL) {
		if c.Name == "sid" {
			return c.Value
		}
	}
	t.Fatal("no session cookie in jar")
	return ""
}

func TestTelemetry_EnvironmentScanRaisesRisk(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	email, password := TestUser("telemetry")
	registerUser(t, ts, email, password)

	// The sid cookie is minted on the login attempt.
	resp0 := login(t, ts, email, password)
	require.Equal(t, http.StatusOK, resp0.StatusCode)
	resp0.Body.Close()

	sid := sessionID(t, ts)

	resp, err := ts.Request(http.MethodPost, "/auth/telemetry", map[string]interface{}{
		"environment": map[string]interface{}{
			"user_agent":         "HeadlessChrome/120.0",
			"web_driver":         true,
			"automation_globals": true,
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	risk, err := ts.Risk.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Greater(t, risk.Counter, 0)
}

func TestTelemetry_WithoutSessionIsIgnored(t *testing.T) {
	resetDatabase(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	// No login, so the jar holds no session cookie. The endpoint still
	// answers 202 and records nothing.
	resp, err := ts.Request(http.MethodPost, "/auth/telemetry", map[string]interface{}{
		"interaction_gap_ms": 40,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
}
