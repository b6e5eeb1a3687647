package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

func newTestContactService(repo ContactRequestRepository, email EmailService) (*ContactService, *MockSecurityEventRepository) {
	logger := slog.Default()
	eventRepo := &MockSecurityEventRepository{}
	audit := NewAuditService(eventRepo, logger)

	return NewContactService(repo, email, audit, logger), eventRepo
}

func TestContactService_Submit_Success(t *testing.T) {
	email := &MockEmailService{}
	svc, eventRepo := newTestContactService(&MockContactRequestRepository{}, email)

	req, err := svc.Submit(context.Background(), "User@Example.com", "  please unlock my account  ", testClient)

	require.NoError(t, err)
	assert.Equal(t, models.ContactRequestPending, req.Status)
	assert.Equal(t, "user@example.com", req.Identifier)
	assert.Equal(t, "please unlock my account", req.Message)
	assert.Equal(t, 1, email.Sent)
	assert.True(t, eventRepo.HasEvent(models.EventTypeContactRequest))
}

func TestContactService_Submit_EmptyFields(t *testing.T) {
	svc, _ := newTestContactService(&MockContactRequestRepository{}, &MockEmailService{})

	_, err := svc.Submit(context.Background(), "", "message", testClient)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.Submit(context.Background(), "user@example.com", "   ", testClient)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestContactService_Submit_MessageTooLong(t *testing.T) {
	svc, _ := newTestContactService(&MockContactRequestRepository{}, &MockEmailService{})

	_, err := svc.Submit(context.Background(), "user@example.com",
		strings.Repeat("a", maxContactMessageLen+1), testClient)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestContactService_Submit_PendingCap(t *testing.T) {
	repo := &MockContactRequestRepository{
		CountPendingByIdentifierFunc: func(ctx context.Context, identifier string) (int64, error) {
			return maxPendingPerIdentifier, nil
		},
	}
	svc, _ := newTestContactService(repo, &MockEmailService{})

	_, err := svc.Submit(context.Background(), "user@example.com", "again", testClient)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestContactService_Submit_EmailFailureStillQueues(t *testing.T) {
	email := &MockEmailService{
		SendContactNotificationFunc: func(ctx context.Context, identifier, message string, createdAt time.Time) error {
			return assert.AnError
		},
	}
	svc, _ := newTestContactService(&MockContactRequestRepository{}, email)

	req, err := svc.Submit(context.Background(), "user@example.com", "help", testClient)

	require.NoError(t, err)
	assert.NotNil(t, req)
}

func TestContactService_Resolve_NotFound(t *testing.T) {
	repo := &MockContactRequestRepository{
		ResolveFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	svc, _ := newTestContactService(repo, &MockEmailService{})

	err := svc.Resolve(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
