package services

import (
	"context"
	"log/slog"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// SecurityEventRepository defines the interface for security event persistence
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityEvent, error)
	ListByIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error)
	ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error)
}

// AuditService records security events with a dual-write pattern (slog + database).
// Every entry carries the identifier, timestamp, and the client signature of
// the request that produced it.
type AuditService struct {
	repo   SecurityEventRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo SecurityEventRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one security event. Persistence failures are logged and
// swallowed: the audit trail never blocks the flow that produced the event.
func (s *AuditService) Record(ctx context.Context, eventType, identifier string, client models.ClientContext, metadata models.EventMetadata) {
	event := &models.SecurityEvent{
		EventType:       eventType,
		Identifier:      identifier,
		ClientSignature: client.UserAgent,
		Metadata:        metadata,
	}
	if client.IPAddress != "" {
		event.IPAddress = &client.IPAddress
	}

	// Dual-write: immediate slog output
	s.logger.InfoContext(ctx, "security event",
		slog.String("event_type", eventType),
		slog.String("identifier", identifier),
		slog.String("client_signature", client.UserAgent),
		slog.Any("metadata", metadata),
	)

	if _, err := s.repo.Create(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist security event",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
	}
}

// ListRecent returns the newest events for the admin view.
func (s *AuditService) ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var events []*models.SecurityEvent
	var err error
	if eventType != "" {
		events, err = s.repo.ListByEventType(ctx, eventType, limit, offset)
	} else {
		events, err = s.repo.ListRecent(ctx, limit, offset)
	}
	if err != nil {
		s.logger.Error("failed to list security events", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return events, nil
}

// ListForIdentifier returns the event history for one identifier.
func (s *AuditService) ListForIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.repo.ListByIdentifier(ctx, identifier, limit, offset)
	if err != nil {
		s.logger.Error("failed to list security events",
			slog.String("identifier", identifier), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return events, nil
}
