package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

const challengeKeyPrefix = "2fa:challenge:"

// ChallengeStore persists pending two-factor challenges. Entries expire with
// the configured challenge TTL; a missing entry means the pending state was
// cancelled or timed out, and a verify against it grants nothing.
type ChallengeStore struct {
	client *Client
}

func NewChallengeStore(client *Client) *ChallengeStore {
	return &ChallengeStore{client: client}
}

func (s *ChallengeStore) Put(ctx context.Context, challenge *models.TwoFactorChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.rdb.Set(ctx, challengeKeyPrefix+challenge.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, challengeID string) (*models.TwoFactorChallenge, error) {
	payload, err := s.client.rdb.Get(ctx, challengeKeyPrefix+challengeID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge models.TwoFactorChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		// Unreadable entries are treated the same as expired ones
		return nil, models.ErrChallengeNotFound
	}

	return &challenge, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, challengeID string) error {
	if err := s.client.rdb.Del(ctx, challengeKeyPrefix+challengeID).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
