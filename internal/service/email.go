package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendgridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendgridEmailService) send(to, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *sendgridEmailService) SendOtpCode(ctx context.Context, email, name, code string, expiresAt time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour contract signing code is: %s\n\nIt expires at %s.\n\nIf you did not request this code, ignore this email.",
		name, code, expiresAt.Format(time.RFC1123))
	return s.send(email, name, "Your contract signing code", body)
}

func (s *sendgridEmailService) SendLifecycleNotification(ctx context.Context, email, name, subject, body string) error {
	return s.send(email, name, subject, fmt.Sprintf("Hello %s,\n\n%s", name, body))
}
