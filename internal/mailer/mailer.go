package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Inbox Assistant"

// Mailer delivers generated briefs and summaries via SendGrid
type Mailer struct {
	apiKey    string
	fromEmail string
	host      string // overrides the SendGrid API host in tests
}

// New creates a new mailer instance
func New(apiKey, fromEmail string) *Mailer {
	if fromEmail == "" {
		fromEmail = "assistant@inboxai.app"
	}
	return &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
	}
}

// Send delivers content to a single recipient as plain text
func (m *Mailer) Send(to, subject, content string) error {
	if m.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}
	if subject == "" {
		subject = "From your inbox assistant"
	}

	from := mail.NewEmail(senderName, m.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, content, content)

	client := sendgrid.NewSendClient(m.apiKey)
	if m.host != "" {
		client.Request.BaseURL = m.host + "/v3/mail/send"
	}

	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return nil
}
