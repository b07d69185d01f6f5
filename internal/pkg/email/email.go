package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/gradbridge/presence-backend-go/internal/config"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service sends transactional mail. Implementations must be safe for
// concurrent use; the notifier calls them from job ticks and requests alike.
type Service interface {
	SendNotification(to, subject, message string) error
}

type smtpService struct {
	cfg       config.SMTPConfig
	dialer    *gomail.Dialer
	templates *template.Template
}

// NewEmailService builds an SMTP-backed sender with the embedded templates.
func NewEmailService(cfg config.SMTPConfig) (Service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &smtpService{
		cfg:       cfg,
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		templates: tmpl,
	}, nil
}

type notificationEmailData struct {
	Subject string
	Message string
}

// SendNotification renders the generic notification template and sends it.
func (s *smtpService) SendNotification(to, subject, message string) error {
	var body bytes.Buffer
	err := s.templates.ExecuteTemplate(&body, "notification.html", notificationEmailData{
		Subject: subject,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
