package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// DeviceTrustRepository defines the interface for trust list access
type DeviceTrustRepository interface {
	Create(ctx context.Context, entry *models.DeviceTrustEntry) error
	GetByToken(ctx context.Context, token string) (*models.DeviceTrustEntry, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error)
	Touch(ctx context.Context, token string, usedAt time.Time) error
	Delete(ctx context.Context, accountID, token string) error
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}

// DeviceTrustService manages the per-account list of recognized devices. A
// recognized device skips the second factor on login. The list is bounded;
// trusting a sixth device silently drops the oldest entry.
type DeviceTrustService struct {
	repo   DeviceTrustRepository
	audit  *AuditService
	logger *slog.Logger
}

// NewDeviceTrustService creates a new DeviceTrustService
func NewDeviceTrustService(repo DeviceTrustRepository, audit *AuditService, logger *slog.Logger) *DeviceTrustService {
	return &DeviceTrustService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// Fingerprint derives the coarse device fingerprint from the client's
// user-agent, locale, and screen geometry. Collisions are acceptable: the
// fingerprint only corroborates a trust token, it never authenticates.
func Fingerprint(client models.ClientContext) string {
	sum := sha256.Sum256([]byte(client.UserAgent + "|" + client.Locale + "|" + client.ScreenSize))
	return hex.EncodeToString(sum[:16])
}

// Trust registers the client's device on the account and returns the opaque
// token the client holds to be recognized later.
func (s *DeviceTrustService) Trust(ctx context.Context, accountID string, client models.ClientContext) (string, error) {
	token, err := generateTrustToken()
	if err != nil {
		s.logger.Error("failed to generate trust token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	now := time.Now()
	entry := &models.DeviceTrustEntry{
		Token:       token,
		AccountID:   accountID,
		Fingerprint: Fingerprint(client),
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to store trusted device",
			slog.String("account_id", accountID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("device trusted", slog.String("account_id", accountID))
	s.audit.Record(ctx, models.EventTypeDeviceTrusted, accountID, client, models.EventMetadata{
		"fingerprint": entry.Fingerprint,
	})

	return token, nil
}

// IsTrusted reports whether the presenting client is a recognized device on
// the account. The token must exist, belong to the account, and carry a
// fingerprint matching the current client. Any lookup failure reads as
// untrusted: the worst outcome is an extra second-factor prompt.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, accountID string, client models.ClientContext) bool {
	if client.TrustToken == "" {
		return false
	}

	entry, err := s.repo.GetByToken(ctx, client.TrustToken)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up trust token", slog.Any("error", err))
		}
		return false
	}

	if entry.AccountID != accountID || entry.Fingerprint != Fingerprint(client) {
		return false
	}

	if err := s.repo.Touch(ctx, entry.Token, time.Now()); err != nil {
		s.logger.Error("failed to touch trusted device", slog.Any("error", err))
	}

	return true
}

// List returns the account's trust entries, newest first.
func (s *DeviceTrustService) List(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error) {
	entries, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list trusted devices",
			slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return entries, nil
}

// Revoke removes one device from the account's trust list.
func (s *DeviceTrustService) Revoke(ctx context.Context, accountID, token string, client models.ClientContext) error {
	if err := s.repo.Delete(ctx, accountID, token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to revoke trusted device",
			slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, models.EventTypeDeviceRevoked, accountID, client, nil)
	return nil
}

// RevokeAll clears the account's trust list. Used when the second factor is
// disabled or on operator demand.
func (s *DeviceTrustService) RevokeAll(ctx context.Context, accountID string, client models.ClientContext) error {
	removed, err := s.repo.DeleteByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to revoke trusted devices",
			slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if removed > 0 {
		s.audit.Record(ctx, models.EventTypeDeviceRevoked, accountID, client, models.EventMetadata{
			"revoked": removed,
		})
	}
	return nil
}

func generateTrustToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
