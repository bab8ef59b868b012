package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendEmail(to, subject, htmlBody string) error
	SendWelcomeEmail(email, name string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService returns an SMTP sender. With an empty smtpHost messages are only logged.
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	var dialer *gomail.Dialer
	if smtpHost != "" {
		dialer = gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	}
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendEmail(to, subject, htmlBody string) error {
	if s.dialer == nil {
		log.Printf("[email][dry-run] to=%s subject=%q body=%q", to, subject, htmlBody)
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email %q: %w", subject, err)
	}
	return nil
}

func (s *emailService) SendWelcomeEmail(email, name string) error {
	body := fmt.Sprintf(`
		<h2>Welcome to Legal Trainer, %s!</h2>
		<p>Your account has been created. Pick a subject and start your first quiz.</p>
		<p>Good luck with your studies,<br>The Legal Trainer Team</p>
	`, name)
	return s.SendEmail(email, "Welcome to Legal Trainer!", body)
}
