package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkgauth "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/auth"
	pkglogger "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/logger"
)

type authFixture struct {
	svc         *AuthService
	users       *MockUserRepository
	attempts    *InMemoryAttemptRepository
	devices     *inMemoryDeviceTrustRepo
	twoFactor   *twoFactorFixture
	revocations *MockTokenRevocationRepository
	eventRepo   *MockSecurityEventRepository
	tm          *auth.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	logger := slog.Default()
	auditLogger := pkglogger.NewAuditLogger(logger)
	eventRepo := &MockSecurityEventRepository{}
	audit := NewAuditService(eventRepo, logger)

	attempts := NewInMemoryAttemptRepository()
	lockout := NewLockoutService(attempts, audit, auditLogger, LockoutConfig{
		MaxAttempts:     5,
		LockoutDuration: 30 * time.Minute,
	}, logger)

	twoFactor := newTwoFactorFixture(t)
	// Share one audit trail across the fixture.
	twoFactor.svc = NewTwoFactorService(
		twoFactor.configRepo, twoFactor.userRepo, twoFactor.challenges,
		twoFactor.totpMgr, audit, 5*time.Minute, logger,
	)
	twoFactor.eventRepo = eventRepo

	deviceRepo := newInMemoryDeviceTrustRepo()
	devices := NewDeviceTrustService(deviceRepo, audit, logger)

	tm := auth.NewTokenManager("test-secret-0123456789-0123456789",
		15*time.Minute, 7*24*time.Hour, 5*time.Minute)
	timing := auth.NewTimingDelay(auth.TimingConfig{})

	users := &MockUserRepository{}
	revocations := &MockTokenRevocationRepository{}

	svc := NewAuthService(users, revocations, lockout, twoFactor.svc, devices,
		tm, timing, audit, auditLogger, logger)

	return &authFixture{
		svc:         svc,
		users:       users,
		attempts:    attempts,
		devices:     deviceRepo,
		twoFactor:   twoFactor,
		revocations: revocations,
		eventRepo:   eventRepo,
		tm:          tm,
	}
}

// withUser wires the mock user repo to serve one account.
func (f *authFixture) withUser(user *models.User) {
	f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		if email == user.Email {
			return user, nil
		}
		return nil, models.ErrNotFound
	}
	f.users.GetByIDFunc = func(ctx context.Context, id string) (*models.User, error) {
		if id == user.ID {
			return user, nil
		}
		return nil, models.ErrNotFound
	}
}

func hashTestPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

// ============================================================================
// Login Tests
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	result, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)

	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, result.State)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "user123", result.User.ID)
	assert.True(t, f.eventRepo.HasEvent(models.EventTypeLoginSuccess))
}

func TestAuthService_Login_WrongPasswordCountsFailure(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	result, err := f.svc.Login(context.Background(), "user@example.com", "wrong", testClient)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, result)
	assert.Equal(t, 1, f.attempts.Records["user@example.com"].Count)
	assert.True(t, f.eventRepo.HasEvent(models.EventTypeLoginFailed))
}

func TestAuthService_Login_UnknownIdentifierCounted(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "ghost@example.com", "whatever", testClient)

	// Same error and same counting as a wrong password, so responses never
	// reveal whether the account exists.
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, 1, f.attempts.Records["ghost@example.com"].Count)
}

func TestAuthService_Login_FifthFailureLocks(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	var result *LoginResult
	var err error
	for i := 0; i < 5; i++ {
		result, err = f.svc.Login(context.Background(), "user@example.com", "wrong", testClient)
	}

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	require.NotNil(t, result)
	require.NotNil(t, result.LockStatus)
	assert.True(t, result.LockStatus.Locked)
	assert.Equal(t, 30, result.LockStatus.RemainingMinutes)
	assert.True(t, f.eventRepo.HasEvent(models.EventTypeAccountLocked))
}

func TestAuthService_Login_LockedBlocksBeforeCredentialCheck(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	for i := 0; i < 5; i++ {
		f.svc.Login(context.Background(), "user@example.com", "wrong", testClient)
	}

	// The correct password gets the same refusal while the lock holds.
	result, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	require.NotNil(t, result)
	assert.True(t, result.LockStatus.Locked)
	assert.True(t, f.eventRepo.HasEvent(models.EventTypeLockoutBlocked))
	// The blocked attempt did not grow the counter.
	assert.Equal(t, 5, f.attempts.Records["user@example.com"].Count)
}

func TestAuthService_Login_SuccessResetsCounter(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	for i := 0; i < 4; i++ {
		f.svc.Login(context.Background(), "user@example.com", "wrong", testClient)
	}

	_, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)
	require.NoError(t, err)

	// The slate is clean: the next failure starts over at one.
	f.svc.Login(context.Background(), "user@example.com", "wrong", testClient)
	assert.Equal(t, 1, f.attempts.Records["user@example.com"].Count)
}

func TestAuthService_Login_SuspendedAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithStatus("user123", "user@example.com", "Test User", "suspended")
	user.PasswordHash = hashTestPassword(t, "SecurePassword123")
	f.withUser(user)

	_, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)

	assert.ErrorIs(t, err, models.ErrAccountSuspended)
}

func TestAuthService_Login_ExpiredLockAllowsRetry(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithPassword("user123", "user@example.com", "Test User",
		hashTestPassword(t, "SecurePassword123"))
	f.withUser(user)

	lockUntil := time.Now().Add(-time.Minute)
	f.attempts.Records["user@example.com"] = &models.AttemptRecord{
		Identifier:  "user@example.com",
		Count:       5,
		WindowStart: time.Now().Add(-40 * time.Minute),
		LockUntil:   &lockUntil,
		UpdatedAt:   time.Now().Add(-31 * time.Minute),
	}

	result, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)

	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, result.State)
}

// ============================================================================
// Two-Factor Flow Tests
// ============================================================================

func TestAuthService_Login_TwoFactorRequired(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithTwoFactor("user123", "user@example.com", "Test User")
	user.PasswordHash = hashTestPassword(t, "SecurePassword123")
	f.withUser(user)
	f.twoFactor.enroll(t, "user123")

	result, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)

	require.NoError(t, err)
	assert.Equal(t, models.StateTwoFactorRequired, result.State)
	assert.NotEmpty(t, result.ChallengeToken)
	assert.Empty(t, result.AccessToken)
}

func TestAuthService_CompleteTwoFactor_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithTwoFactor("user123", "user@example.com", "Test User")
	user.PasswordHash = hashTestPassword(t, "SecurePassword123")
	f.withUser(user)
	f.twoFactor.enroll(t, "user123")

	login, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)
	require.NoError(t, err)

	result, err := f.svc.CompleteTwoFactor(context.Background(), login.ChallengeToken, validTestCode(t), false, testClient)

	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, result.State)
	assert.NotEmpty(t, result.AccessToken)
	assert.Empty(t, result.TrustToken)
}

func TestAuthService_CompleteTwoFactor_TrustDevice(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithTwoFactor("user123", "user@example.com", "Test User")
	user.PasswordHash = hashTestPassword(t, "SecurePassword123")
	f.withUser(user)
	f.twoFactor.enroll(t, "user123")

	login, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)
	require.NoError(t, err)

	result, err := f.svc.CompleteTwoFactor(context.Background(), login.ChallengeToken, validTestCode(t), true, testClient)
	require.NoError(t, err)
	require.NotEmpty(t, result.TrustToken)

	// The trusted device skips the second factor on its next login.
	trusted := testClient
	trusted.TrustToken = result.TrustToken
	second, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", trusted)
	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, second.State)
}

func TestAuthService_CompleteTwoFactor_InvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.CompleteTwoFactor(context.Background(), "garbage", "123456", false, testClient)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_CompleteTwoFactor_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)

	accessToken, err := f.tm.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	_, err = f.svc.CompleteTwoFactor(context.Background(), accessToken, "123456", false, testClient)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_CancelTwoFactor(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUserWithTwoFactor("user123", "user@example.com", "Test User")
	user.PasswordHash = hashTestPassword(t, "SecurePassword123")
	f.withUser(user)
	f.twoFactor.enroll(t, "user123")

	login, err := f.svc.Login(context.Background(), "user@example.com", "SecurePassword123", testClient)
	require.NoError(t, err)

	err = f.svc.CancelTwoFactor(context.Background(), login.ChallengeToken, testClient)
	require.NoError(t, err)
	assert.True(t, f.eventRepo.HasEvent(models.EventTypeTwoFactorCancelled))

	_, err = f.svc.CompleteTwoFactor(context.Background(), login.ChallengeToken, validTestCode(t), false, testClient)
	assert.ErrorIs(t, err, models.ErrChallengeNotFound)
}

// ============================================================================
// Register / Logout Tests
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.users.GetByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return nil, models.ErrNotFound
	}
	f.users.CreateFunc = func(ctx context.Context, user *models.User) (*models.User, error) {
		user.ID = "user123"
		user.CreatedAt = time.Now()
		user.UpdatedAt = time.Now()
		return user, nil
	}

	result, err := f.svc.Register(context.Background(), "new@example.com", "SecurePassword123", "New User", testClient)

	require.NoError(t, err)
	assert.Equal(t, models.StateSessionGranted, result.State)
	assert.NotEmpty(t, result.AccessToken)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	existing := NewTestUser("user123", "taken@example.com", "Existing User")
	f.withUser(existing)

	result, err := f.svc.Register(context.Background(), "taken@example.com", "SecurePassword123", "New User", testClient)

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Nil(t, result)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), "new@example.com", "short", "New User", testClient)

	assert.Error(t, err)
}

func TestAuthService_Logout_RevokesToken(t *testing.T) {
	f := newAuthFixture(t)

	revokedJTI := ""
	f.revocations.RevokeTokenFunc = func(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
		revokedJTI = jti
		return nil
	}

	accessToken, err := f.tm.GenerateAccessToken("user123", "user@example.com")
	require.NoError(t, err)

	err = f.svc.Logout(context.Background(), accessToken)

	require.NoError(t, err)
	assert.NotEmpty(t, revokedJTI)
}

func TestAuthService_RefreshToken_RevokedRejected(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUser("user123", "user@example.com", "Test User")
	f.withUser(user)
	f.revocations.IsTokenRevokedFunc = func(ctx context.Context, jti string) (bool, error) {
		return true, nil
	}

	refreshToken, err := f.tm.GenerateRefreshToken("user123", "user@example.com")
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_RefreshToken_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := NewTestUser("user123", "user@example.com", "Test User")
	f.withUser(user)

	refreshToken, err := f.tm.GenerateRefreshToken("user123", "user@example.com")
	require.NoError(t, err)

	result, err := f.svc.RefreshToken(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
}
