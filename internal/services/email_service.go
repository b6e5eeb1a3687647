package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for operator notifications
type EmailService interface {
	SendContactNotification(ctx context.Context, identifier, message string, createdAt time.Time) error
}

// AWSSESEmailService sends operator notifications using AWS SES
type AWSSESEmailService struct {
	sesClient    *ses.Client
	fromAddress  string
	adminAddress string
	logger       *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, adminAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		adminAddress: adminAddress,
		logger:       logger,
	}, nil
}

// SendContactNotification tells the operator a locked-out user asked for
// help. The notice is bilingual like the rest of the user-facing surface.
func (s *AWSSESEmailService) SendContactNotification(ctx context.Context, identifier, message string, createdAt time.Time) error {
	textBody := fmt.Sprintf(`Nouvelle demande de déblocage / New unlock request

Identifiant / Identifier: %s
Reçue le / Received at: %s

Message:
%s

Cette demande est en attente dans la file de l'administrateur.
This request is pending in the admin queue.
`, identifier, createdAt.Format(time.RFC3339), message)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.adminAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Demande de déblocage de compte / Account unlock request"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send contact notification via SES",
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("contact notification sent",
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopEmailService is used in environments without SES credentials.
type NoopEmailService struct {
	logger *slog.Logger
}

// NewNoopEmailService creates an email service that only logs.
func NewNoopEmailService(logger *slog.Logger) *NoopEmailService {
	return &NoopEmailService{logger: logger}
}

func (s *NoopEmailService) SendContactNotification(ctx context.Context, identifier, message string, createdAt time.Time) error {
	s.logger.Info("contact notification suppressed (email disabled)")
	return nil
}
