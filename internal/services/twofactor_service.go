package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// TwoFactorConfigRepository defines the interface for second-factor config access
type TwoFactorConfigRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*models.TwoFactorConfig, error)
	Upsert(ctx context.Context, cfg *models.TwoFactorConfig) error
	Delete(ctx context.Context, accountID string) error
}

// ChallengeStore defines the interface for pending two-factor challenges
type ChallengeStore interface {
	Put(ctx context.Context, challenge *models.TwoFactorChallenge, ttl time.Duration) error
	Get(ctx context.Context, challengeID string) (*models.TwoFactorChallenge, error)
	Delete(ctx context.Context, challengeID string) error
}

// TwoFactorService handles TOTP enrollment and the challenge step between
// password verification and session grant.
type TwoFactorService struct {
	configRepo   TwoFactorConfigRepository
	userRepo     UserRepository
	challenges   ChallengeStore
	totpMgr      *auth.TOTPManager
	audit        *AuditService
	challengeTTL time.Duration
	logger       *slog.Logger
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(
	configRepo TwoFactorConfigRepository,
	userRepo UserRepository,
	challenges ChallengeStore,
	totpMgr *auth.TOTPManager,
	audit *AuditService,
	challengeTTL time.Duration,
	logger *slog.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		configRepo:   configRepo,
		userRepo:     userRepo,
		challenges:   challenges,
		totpMgr:      totpMgr,
		audit:        audit,
		challengeTTL: challengeTTL,
		logger:       logger,
	}
}

// SetupResponse carries the enrollment material shown to the user once.
type SetupResponse struct {
	QRCode string `json:"qr_code"`
}

// InitiateSetup generates a fresh TOTP secret for the account and returns
// the provisioning QR code. The config stays disabled until the user proves
// possession with ConfirmSetup.
func (s *TwoFactorService) InitiateSetup(ctx context.Context, accountID, email string) (*SetupResponse, error) {
	existing, err := s.configRepo.GetByAccountID(ctx, accountID)
	if err == nil && existing.Enabled {
		return nil, models.ErrTwoFactorConflict
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to read two-factor config", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	encrypted, nonce, qrCode, err := s.totpMgr.GenerateSecretWithQR(email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cfg := &models.TwoFactorConfig{
		AccountID:       accountID,
		Enabled:         false,
		SecretEncrypted: encrypted,
		SecretNonce:     nonce,
	}

	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		s.logger.Error("failed to store two-factor config", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("two-factor setup initiated", slog.String("account_id", accountID))

	return &SetupResponse{QRCode: qrCode}, nil
}

// ConfirmSetup verifies the first code against the pending secret and
// enables the second factor for the account.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, accountID, code string, client models.ClientContext) error {
	if !validCodeFormat(code) {
		return models.ErrInvalidCodeFormat
	}

	cfg, err := s.configRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTwoFactorNotSetUp
		}
		s.logger.Error("failed to read two-factor config", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if cfg.Enabled {
		return models.ErrTwoFactorConflict
	}

	ok, err := s.validateAgainstConfig(cfg, code)
	if err != nil {
		return models.ErrInternalServer
	}
	if !ok {
		return models.ErrInvalidCode
	}

	now := time.Now()
	cfg.Enabled = true
	cfg.EnrolledAt = &now
	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		s.logger.Error("failed to enable two-factor config", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.SetTwoFactorEnabled(ctx, accountID, true, &now); err != nil {
		s.logger.Error("failed to flag account two-factor", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("two-factor enabled", slog.String("account_id", accountID))
	s.audit.Record(ctx, models.EventTypeTwoFactorVerified, accountID, client, models.EventMetadata{
		"phase": "enrollment",
	})

	return nil
}

// Disable turns the second factor off. A valid current code is required so a
// hijacked session cannot silently weaken the account.
func (s *TwoFactorService) Disable(ctx context.Context, accountID, code string, client models.ClientContext) error {
	if !validCodeFormat(code) {
		return models.ErrInvalidCodeFormat
	}

	cfg, err := s.configRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTwoFactorNotSetUp
		}
		s.logger.Error("failed to read two-factor config", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !cfg.Enabled {
		return models.ErrTwoFactorNotSetUp
	}

	ok, err := s.validateAgainstConfig(cfg, code)
	if err != nil {
		return models.ErrInternalServer
	}
	if !ok {
		return models.ErrInvalidCode
	}

	if err := s.configRepo.Delete(ctx, accountID); err != nil {
		s.logger.Error("failed to delete two-factor config", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.SetTwoFactorEnabled(ctx, accountID, false, nil); err != nil {
		s.logger.Error("failed to unflag account two-factor", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("two-factor disabled", slog.String("account_id", accountID))
	return nil
}

// CreateChallenge opens the pending step for a password-verified account.
// The challenge lives in the session cache under a bounded TTL; once it
// lapses the login must restart from the password.
func (s *TwoFactorService) CreateChallenge(ctx context.Context, user *models.User) (*models.TwoFactorChallenge, error) {
	challenge := &models.TwoFactorChallenge{
		ID:        uuid.New().String(),
		AccountID: user.ID,
		Email:     user.Email,
		State:     models.StateTwoFactorPending,
		CreatedAt: time.Now(),
	}

	if err := s.challenges.Put(ctx, challenge, s.challengeTTL); err != nil {
		s.logger.Error("failed to store two-factor challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return challenge, nil
}

// VerifyChallenge resolves a pending challenge with a submitted code. The
// format gate runs before anything else: a malformed code is rejected
// locally and never reaches the verifier, while any six-digit string does
// reach it. A verified challenge is consumed; a failed one stays pending
// until its TTL runs out.
func (s *TwoFactorService) VerifyChallenge(ctx context.Context, challengeID, code string, client models.ClientContext) (*models.TwoFactorChallenge, error) {
	if !validCodeFormat(code) {
		return nil, models.ErrInvalidCodeFormat
	}

	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, models.ErrChallengeNotFound) {
			return nil, models.ErrChallengeNotFound
		}
		s.logger.Error("failed to read two-factor challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cfg, err := s.configRepo.GetByAccountID(ctx, challenge.AccountID)
	if err != nil || !cfg.Enabled {
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to read two-factor config", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		// Config vanished mid-challenge; nothing left to verify against.
		return nil, models.ErrTwoFactorNotSetUp
	}

	ok, err := s.validateAgainstConfig(cfg, code)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	if !ok {
		s.audit.Record(ctx, models.EventTypeTwoFactorFailed, challenge.Email, client, nil)
		return nil, models.ErrInvalidCode
	}

	if err := s.challenges.Delete(ctx, challengeID); err != nil {
		s.logger.Error("failed to consume two-factor challenge", slog.Any("error", err))
	}

	challenge.State = models.StateSessionGranted
	s.audit.Record(ctx, models.EventTypeTwoFactorVerified, challenge.Email, client, nil)

	return challenge, nil
}

// CancelChallenge abandons a pending challenge and sends the login back to
// the password step. Cancelling an unknown or expired challenge is a no-op.
func (s *TwoFactorService) CancelChallenge(ctx context.Context, challengeID string, client models.ClientContext) error {
	challenge, err := s.challenges.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, models.ErrChallengeNotFound) {
			return nil
		}
		s.logger.Error("failed to read two-factor challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.challenges.Delete(ctx, challengeID); err != nil {
		s.logger.Error("failed to delete two-factor challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, models.EventTypeTwoFactorCancelled, challenge.Email, client, nil)
	return nil
}

// Enabled reports whether the account has an active second factor.
func (s *TwoFactorService) Enabled(ctx context.Context, accountID string) (bool, error) {
	cfg, err := s.configRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("failed to read two-factor config", slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return cfg.Enabled, nil
}

func (s *TwoFactorService) validateAgainstConfig(cfg *models.TwoFactorConfig, code string) (bool, error) {
	secret, err := s.totpMgr.DecryptSecret(cfg.SecretEncrypted, cfg.SecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
		return false, err
	}

	ok, err := s.totpMgr.ValidateCode(secret, code)
	if err != nil {
		s.logger.Error("failed to validate TOTP code", slog.Any("error", err))
		return false, err
	}
	return ok, nil
}

// validCodeFormat accepts exactly six ASCII digits. Anything else fails
// locally before the verifier is consulted.
func validCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
