package services

import (
	"context"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	SetTwoFactorEnabledFunc func(ctx context.Context, id string, enabled bool, enrolledAt *time.Time) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool, enrolledAt *time.Time) error {
	if m.SetTwoFactorEnabledFunc != nil {
		return m.SetTwoFactorEnabledFunc(ctx, id, enabled, enrolledAt)
	}
	return nil
}

// MockAttemptRepository implements AttemptRepository for testing
type MockAttemptRepository struct {
	GetFunc       func(ctx context.Context, identifier string) (*models.AttemptRecord, bool, error)
	IncrementFunc func(ctx context.Context, identifier string, now time.Time) (*models.AttemptRecord, error)
	SetLockFunc   func(ctx context.Context, identifier string, lockUntil, now time.Time) error
	ResetFunc     func(ctx context.Context, identifier string) error
}

func (m *MockAttemptRepository) Get(ctx context.Context, identifier string) (*models.AttemptRecord, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identifier)
	}
	return models.ZeroAttemptRecord(identifier), false, nil
}

func (m *MockAttemptRepository) Increment(ctx context.Context, identifier string, now time.Time) (*models.AttemptRecord, error) {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, identifier, now)
	}
	return &models.AttemptRecord{Identifier: identifier, Count: 1, WindowStart: now, UpdatedAt: now}, nil
}

func (m *MockAttemptRepository) SetLock(ctx context.Context, identifier string, lockUntil, now time.Time) error {
	if m.SetLockFunc != nil {
		return m.SetLockFunc(ctx, identifier, lockUntil, now)
	}
	return nil
}

func (m *MockAttemptRepository) Reset(ctx context.Context, identifier string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identifier)
	}
	return nil
}

// InMemoryAttemptRepository is a map-backed AttemptRepository for flow tests
// that need real counting semantics rather than stubbed responses.
type InMemoryAttemptRepository struct {
	Records map[string]*models.AttemptRecord
}

func NewInMemoryAttemptRepository() *InMemoryAttemptRepository {
	return &InMemoryAttemptRepository{Records: make(map[string]*models.AttemptRecord)}
}

func (m *InMemoryAttemptRepository) Get(ctx context.Context, identifier string) (*models.AttemptRecord, bool, error) {
	if rec, ok := m.Records[identifier]; ok {
		copied := *rec
		return &copied, false, nil
	}
	return models.ZeroAttemptRecord(identifier), false, nil
}

func (m *InMemoryAttemptRepository) Increment(ctx context.Context, identifier string, now time.Time) (*models.AttemptRecord, error) {
	rec, ok := m.Records[identifier]
	if !ok {
		rec = &models.AttemptRecord{Identifier: identifier, WindowStart: now}
		m.Records[identifier] = rec
	}
	rec.Count++
	rec.UpdatedAt = now
	copied := *rec
	return &copied, nil
}

func (m *InMemoryAttemptRepository) SetLock(ctx context.Context, identifier string, lockUntil, now time.Time) error {
	if rec, ok := m.Records[identifier]; ok {
		rec.LockUntil = &lockUntil
		rec.UpdatedAt = now
	}
	return nil
}

func (m *InMemoryAttemptRepository) Reset(ctx context.Context, identifier string) error {
	delete(m.Records, identifier)
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, tokenType, expiresAt, reason)
	}
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	return false, nil
}

// MockDeviceTrustRepository implements DeviceTrustRepository for testing
type MockDeviceTrustRepository struct {
	CreateFunc          func(ctx context.Context, entry *models.DeviceTrustEntry) error
	GetByTokenFunc      func(ctx context.Context, token string) (*models.DeviceTrustEntry, error)
	ListByAccountFunc   func(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error)
	TouchFunc           func(ctx context.Context, token string, usedAt time.Time) error
	DeleteFunc          func(ctx context.Context, accountID, token string) error
	DeleteByAccountFunc func(ctx context.Context, accountID string) (int64, error)
}

func (m *MockDeviceTrustRepository) Create(ctx context.Context, entry *models.DeviceTrustEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return nil
}

func (m *MockDeviceTrustRepository) GetByToken(ctx context.Context, token string) (*models.DeviceTrustEntry, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceTrustRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID)
	}
	return []*models.DeviceTrustEntry{}, nil
}

func (m *MockDeviceTrustRepository) Touch(ctx context.Context, token string, usedAt time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, token, usedAt)
	}
	return nil
}

func (m *MockDeviceTrustRepository) Delete(ctx context.Context, accountID, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, accountID, token)
	}
	return nil
}

func (m *MockDeviceTrustRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	if m.DeleteByAccountFunc != nil {
		return m.DeleteByAccountFunc(ctx, accountID)
	}
	return 0, nil
}

// MockTwoFactorConfigRepository implements TwoFactorConfigRepository for testing
type MockTwoFactorConfigRepository struct {
	GetByAccountIDFunc func(ctx context.Context, accountID string) (*models.TwoFactorConfig, error)
	UpsertFunc         func(ctx context.Context, cfg *models.TwoFactorConfig) error
	DeleteFunc         func(ctx context.Context, accountID string) error
}

func (m *MockTwoFactorConfigRepository) GetByAccountID(ctx context.Context, accountID string) (*models.TwoFactorConfig, error) {
	if m.GetByAccountIDFunc != nil {
		return m.GetByAccountIDFunc(ctx, accountID)
	}
	return nil, models.ErrNotFound
}

func (m *MockTwoFactorConfigRepository) Upsert(ctx context.Context, cfg *models.TwoFactorConfig) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, cfg)
	}
	return nil
}

func (m *MockTwoFactorConfigRepository) Delete(ctx context.Context, accountID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, accountID)
	}
	return nil
}

// InMemoryChallengeStore is a map-backed ChallengeStore for flow tests.
// TTLs are tracked but only enforced when ExpireNow is called.
type InMemoryChallengeStore struct {
	Challenges map[string]*models.TwoFactorChallenge
}

func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{Challenges: make(map[string]*models.TwoFactorChallenge)}
}

func (s *InMemoryChallengeStore) Put(ctx context.Context, challenge *models.TwoFactorChallenge, ttl time.Duration) error {
	copied := *challenge
	s.Challenges[challenge.ID] = &copied
	return nil
}

func (s *InMemoryChallengeStore) Get(ctx context.Context, challengeID string) (*models.TwoFactorChallenge, error) {
	challenge, ok := s.Challenges[challengeID]
	if !ok {
		return nil, models.ErrChallengeNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (s *InMemoryChallengeStore) Delete(ctx context.Context, challengeID string) error {
	delete(s.Challenges, challengeID)
	return nil
}

// ExpireNow simulates the TTL lapsing for a challenge.
func (s *InMemoryChallengeStore) ExpireNow(challengeID string) {
	delete(s.Challenges, challengeID)
}

// InMemoryRiskStore is a map-backed RiskStore for testing the scoring flow.
type InMemoryRiskStore struct {
	Counters map[string]int
	Flags    map[string]bool
	Scanned  map[string]bool
}

func NewInMemoryRiskStore() *InMemoryRiskStore {
	return &InMemoryRiskStore{
		Counters: make(map[string]int),
		Flags:    make(map[string]bool),
		Scanned:  make(map[string]bool),
	}
}

func (s *InMemoryRiskStore) Increment(ctx context.Context, sessionID string, weight int, ttl time.Duration) (int, error) {
	s.Counters[sessionID] += weight
	return s.Counters[sessionID], nil
}

func (s *InMemoryRiskStore) RaiseFlag(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if s.Flags[sessionID] {
		return false, nil
	}
	s.Flags[sessionID] = true
	return true, nil
}

func (s *InMemoryRiskStore) MarkScanned(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if s.Scanned[sessionID] {
		return false, nil
	}
	s.Scanned[sessionID] = true
	return true, nil
}

func (s *InMemoryRiskStore) Get(ctx context.Context, sessionID string) (models.SessionRisk, error) {
	return models.SessionRisk{
		Counter: s.Counters[sessionID],
		Flagged: s.Flags[sessionID],
	}, nil
}

// MockSecurityEventRepository implements SecurityEventRepository for testing.
// Created events accumulate in Events for assertions.
type MockSecurityEventRepository struct {
	Events []*models.SecurityEvent

	CreateFunc           func(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	ListRecentFunc       func(ctx context.Context, limit, offset int) ([]*models.SecurityEvent, error)
	ListByIdentifierFunc func(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error)
	ListByEventTypeFunc  func(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error)
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.Events = append(m.Events, event)
	return event, nil
}

func (m *MockSecurityEventRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit, offset)
	}
	return m.Events, nil
}

func (m *MockSecurityEventRepository) ListByIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.ListByIdentifierFunc != nil {
		return m.ListByIdentifierFunc(ctx, identifier, limit, offset)
	}
	matched := make([]*models.SecurityEvent, 0)
	for _, event := range m.Events {
		if event.Identifier == identifier {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (m *MockSecurityEventRepository) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.ListByEventTypeFunc != nil {
		return m.ListByEventTypeFunc(ctx, eventType, limit, offset)
	}
	matched := make([]*models.SecurityEvent, 0)
	for _, event := range m.Events {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

// HasEvent reports whether an event of the given type was recorded.
func (m *MockSecurityEventRepository) HasEvent(eventType string) bool {
	for _, event := range m.Events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

// CountEvents counts recorded events of the given type.
func (m *MockSecurityEventRepository) CountEvents(eventType string) int {
	count := 0
	for _, event := range m.Events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

// NewTestUser creates an active user for tests
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:                id,
		Email:             email,
		Name:              name,
		Status:            "active",
		Role:              "user",
		PreferredLanguage: "fr",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewTestUserWithPassword creates a user with hashed password
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestUserWithStatus creates a user with specified status
func NewTestUserWithStatus(id, email, name, status string) *models.User {
	user := NewTestUser(id, email, name)
	user.Status = status
	return user
}

// NewTestUserWithTwoFactor creates a user with the second factor enabled
func NewTestUserWithTwoFactor(id, email, name string) *models.User {
	user := NewTestUser(id, email, name)
	now := time.Now()
	user.TwoFactorEnabled = true
	user.TwoFactorEnrolledAt = &now
	return user
}

// MockContactRequestRepository implements ContactRequestRepository for testing
type MockContactRequestRepository struct {
	CreateFunc                   func(ctx context.Context, req *models.ContactRequest) (*models.ContactRequest, error)
	ListPendingFunc              func(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error)
	ResolveFunc                  func(ctx context.Context, id string) error
	CountPendingByIdentifierFunc func(ctx context.Context, identifier string) (int64, error)
}

func (m *MockContactRequestRepository) Create(ctx context.Context, req *models.ContactRequest) (*models.ContactRequest, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	created := *req
	created.ID = "req_123"
	created.Status = models.ContactRequestPending
	created.CreatedAt = time.Now()
	return &created, nil
}

func (m *MockContactRequestRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit, offset)
	}
	return []*models.ContactRequest{}, nil
}

func (m *MockContactRequestRepository) Resolve(ctx context.Context, id string) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id)
	}
	return nil
}

func (m *MockContactRequestRepository) CountPendingByIdentifier(ctx context.Context, identifier string) (int64, error) {
	if m.CountPendingByIdentifierFunc != nil {
		return m.CountPendingByIdentifierFunc(ctx, identifier)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendContactNotificationFunc func(ctx context.Context, identifier, message string, createdAt time.Time) error
	Sent                        int
}

func (m *MockEmailService) SendContactNotification(ctx context.Context, identifier, message string, createdAt time.Time) error {
	m.Sent++
	if m.SendContactNotificationFunc != nil {
		return m.SendContactNotificationFunc(ctx, identifier, message, createdAt)
	}
	return nil
}
