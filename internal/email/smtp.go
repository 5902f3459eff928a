package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/tcmflow/clinic-api/internal/config"
	"github.com/tcmflow/clinic-api/internal/model"
)

type smtpService struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
}

// NewSMTPService sends mail through the configured SMTP relay.
func NewSMTPService(cfg config.SMTPConfig, frontendURL string) Service {
	return &smtpService{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:        cfg.From,
		frontendURL: frontendURL,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open the link below to choose a new password. The link expires in one hour.\n\n"+
			"%s/reset-password?token=%s\n\n"+
			"If you did not request this, you can ignore this email.",
		s.frontendURL, token)
	return s.send(to, "Password reset", body)
}

func (s *smtpService) SendLowStockAlert(ctx context.Context, to string, items []*model.StockLevel) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d medicines are below their safety stock:\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&sb, "  %s %s: %.1f %s (safety stock %.1f)\n",
			item.MedicineCode, item.MedicineName, item.Quantity, item.Unit, item.SafetyStock)
	}
	sb.WriteString("\nPlease review and reorder as needed.")
	return s.send(to, "Low stock alert", sb.String())
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	return s.send(to, subject, body)
}
