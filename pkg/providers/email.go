package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/gridflow/gridflow/pkg/config"
)

var (
	// ErrEmailNotConfigured is returned when no SMTP host is set.
	ErrEmailNotConfigured = errors.New("email provider not configured")
	// ErrEmailAddressMissing is returned when the row has no email value.
	ErrEmailAddressMissing = errors.New("row has no email address")
)

// EmailProvider sends a notification email to the row's email address
// over SMTP.
type EmailProvider struct {
	config config.EmailConfig

	// send is swapped in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailProvider(cfg config.EmailConfig) *EmailProvider {
	return &EmailProvider{
		config: cfg,
		send:   smtp.SendMail,
	}
}

func (p *EmailProvider) ID() string {
	return "email"
}

// Execute sends an email with the configured subject. The recipient address
// is read from the column named by email_column, defaulting to "email".
func (p *EmailProvider) Execute(ctx context.Context, actionConfig map[string]any, rowData map[string]any, logger *slog.Logger) (*Result, error) {
	logger = logger.With("module", "email_provider")

	if p.config.Host == "" {
		return nil, ErrEmailNotConfigured
	}

	subject, _ := actionConfig["subject"].(string)
	emailColumn := stringOrDefault(actionConfig, "email_column", "email")

	to, ok := rowData[emailColumn].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("column %q: %w", emailColumn, ErrEmailAddressMissing)
	}

	templateID, _ := actionConfig["template_id"].(string)

	msg := buildEmailMessage(p.config.From, to, subject, templateID, rowData)
	addr := fmt.Sprintf("%s:%d", p.config.Host, p.config.Port)

	var auth smtp.Auth
	if p.config.Username != "" {
		auth = smtp.PlainAuth("", p.config.Username, p.config.Password, p.config.Host)
	}

	err := p.send(addr, auth, p.config.From, []string{to}, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email dispatched", "subject", subject)

	return &Result{
		Detail: map[string]any{
			"to":      to,
			"subject": subject,
		},
	}, nil
}

func buildEmailMessage(from, to, subject, templateID string, rowData map[string]any) []byte {
	var builder strings.Builder

	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + to + "\r\n")
	builder.WriteString("Subject: " + subject + "\r\n")
	builder.WriteString("\r\n")

	if templateID != "" {
		builder.WriteString("Template: " + templateID + "\r\n")
	}

	if name, ok := rowData["name"].(string); ok && name != "" {
		builder.WriteString("Hello " + name + ",\r\n\r\n")
	}

	builder.WriteString(subject + "\r\n")

	return []byte(builder.String())
}
