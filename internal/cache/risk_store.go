package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

const (
	riskCounterPrefix = "risk:counter:"
	riskFlagPrefix    = "risk:flag:"
	riskScannedPrefix = "risk:scanned:"
)

// RiskStore keeps the per-session suspicious-activity state. Counters only
// grow (INCRBY) and flags latch once (SETNX); both expire with the session
// TTL, which stands in for "cleared on new browser session".
type RiskStore struct {
	client *Client
}

func NewRiskStore(client *Client) *RiskStore {
	return &RiskStore{client: client}
}

// Increment adds weight to the session counter and returns the new value.
func (s *RiskStore) Increment(ctx context.Context, sessionID string, weight int, ttl time.Duration) (int, error) {
	key := riskCounterPrefix + sessionID

	value, err := s.client.rdb.IncrBy(ctx, key, int64(weight)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment risk counter: %w", err)
	}

	// Expiry is only set when the key is fresh so activity cannot extend the session
	if value == int64(weight) {
		_ = s.client.rdb.Expire(ctx, key, ttl).Err()
	}

	return int(value), nil
}

// RaiseFlag latches the session risk flag. Returns true only for the call
// that actually raised it; callers use that to fire one-shot side effects.
func (s *RiskStore) RaiseFlag(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	raised, err := s.client.rdb.SetNX(ctx, riskFlagPrefix+sessionID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to raise risk flag: %w", err)
	}
	return raised, nil
}

// MarkScanned records that the one-time environment scan ran for this
// session. Returns true on the first call only.
func (s *RiskStore) MarkScanned(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	first, err := s.client.rdb.SetNX(ctx, riskScannedPrefix+sessionID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark session scanned: %w", err)
	}
	return first, nil
}

// Get returns the session's current counter and flag state.
func (s *RiskStore) Get(ctx context.Context, sessionID string) (models.SessionRisk, error) {
	var risk models.SessionRisk

	counter, err := s.client.rdb.Get(ctx, riskCounterPrefix+sessionID).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return risk, fmt.Errorf("failed to read risk counter: %w", err)
	}
	risk.Counter = counter

	flagged, err := s.client.rdb.Exists(ctx, riskFlagPrefix+sessionID).Result()
	if err != nil {
		return risk, fmt.Errorf("failed to read risk flag: %w", err)
	}
	risk.Flagged = flagged > 0

	return risk, nil
}
