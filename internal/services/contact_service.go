package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// ContactRequestRepository defines the interface for contact request persistence
type ContactRequestRepository interface {
	Create(ctx context.Context, req *models.ContactRequest) (*models.ContactRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error)
	Resolve(ctx context.Context, id string) error
	CountPendingByIdentifier(ctx context.Context, identifier string) (int64, error)
}

const maxContactMessageLen = 2000

// maxPendingPerIdentifier caps open requests so a locked-out user cannot
// flood the operator queue while waiting.
const maxPendingPerIdentifier = 3

// ContactService is the escape hatch offered alongside the lockout message:
// a locked-out user leaves a note for the operator instead of waiting out
// the timer.
type ContactService struct {
	repo   ContactRequestRepository
	email  EmailService
	audit  *AuditService
	logger *slog.Logger
}

// NewContactService creates a new ContactService
func NewContactService(repo ContactRequestRepository, email EmailService, audit *AuditService, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:   repo,
		email:  email,
		audit:  audit,
		logger: logger,
	}
}

// Submit files a pending contact request and notifies the operator. The
// request is accepted regardless of whether the identifier is locked or even
// exists; the operator triages.
func (s *ContactService) Submit(ctx context.Context, identifier, message string, client models.ClientContext) (*models.ContactRequest, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	message = strings.TrimSpace(message)

	if identifier == "" || message == "" {
		return nil, models.ErrBadRequest
	}
	if len(message) > maxContactMessageLen {
		return nil, models.ErrBadRequest
	}

	pending, err := s.repo.CountPendingByIdentifier(ctx, identifier)
	if err != nil {
		s.logger.Error("failed to count pending contact requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if pending >= maxPendingPerIdentifier {
		return nil, models.ErrConflict
	}

	req, err := s.repo.Create(ctx, &models.ContactRequest{
		Identifier: identifier,
		Message:    message,
	})
	if err != nil {
		s.logger.Error("failed to create contact request", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("contact request filed", slog.String("request_id", req.ID))
	s.audit.Record(ctx, models.EventTypeContactRequest, identifier, client, models.EventMetadata{
		"request_id": req.ID,
	})

	// Notification is best-effort; the request is already queued.
	if err := s.email.SendContactNotification(ctx, identifier, message, req.CreatedAt); err != nil {
		s.logger.Error("failed to notify operator of contact request",
			slog.String("request_id", req.ID), slog.Any("error", err))
	}

	return req, nil
}

// ListPending returns the operator's queue, oldest first.
func (s *ContactService) ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	requests, err := s.repo.ListPending(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list contact requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return requests, nil
}

// Resolve marks a request handled. Resolving twice returns ErrNotFound.
func (s *ContactService) Resolve(ctx context.Context, id string) error {
	if err := s.repo.Resolve(ctx, id); err != nil {
		if err == models.ErrNotFound {
			return models.ErrNotFound
		}
		s.logger.Error("failed to resolve contact request",
			slog.String("request_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("contact request resolved", slog.String("request_id", id))
	return nil
}
