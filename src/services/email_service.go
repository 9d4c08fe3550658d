package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/logger"
)

type EmailService interface {
	SendVerificationEmail(toEmail, name, token string) error
}

// NewEmailService picks the provider from configuration, falling back to
// the mock sender when the provider is not fully configured.
func NewEmailService() EmailService {
	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("mailgun configuration incomplete, falling back to mock email service")
			return &MockEmailService{VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		return &MailgunEmailService{
			mg:                       mg,
			senderEmail:              config.Cfg.SenderEmail,
			senderName:               config.Cfg.SenderName,
			verificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("smtp configuration incomplete, falling back to mock email service")
			return &MockEmailService{VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL}
		}
		return &SMTPEmailService{
			SMTPServer:               config.Cfg.SMTPServer,
			SMTPPort:                 config.Cfg.SMTPPort,
			SMTPUser:                 config.Cfg.SMTPUser,
			SMTPPassword:             config.Cfg.SMTPPassword,
			SenderEmail:              config.Cfg.SenderEmail,
			VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
		}
	default:
		return &MockEmailService{VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL}
	}
}

type MailgunEmailService struct {
	mg                       mailgun.Mailgun
	senderEmail              string
	senderName               string
	verificationEmailBaseURL string
}

func (s *MailgunEmailService) SendVerificationEmail(toEmail, name, token string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := "Verify your email address"
	verificationLink := fmt.Sprintf("%s?token=%s", s.verificationEmailBaseURL, token)

	plainTextBody := fmt.Sprintf(`Hi %s,

Welcome! Please verify your email address by clicking the link below:
%s

If you did not create an account using this email address, please ignore this email.`, name, verificationLink)

	htmlBody := fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Hi %s,</p>
			<p>Welcome! Please verify your email address by clicking the link below:</p>
			<p><a href="%s" target="_blank" style="color: #1a73e8; font-weight: bold;">Verify email address</a></p>
			<p>If the link above doesn't work, copy and paste this URL into your browser:</p>
			<p>%s</p>
			<p>If you did not create an account using this email address, please ignore this email.</p>
		</body>
	</html>`, name, verificationLink, verificationLink)

	message := s.mg.NewMessage(from, subject, plainTextBody, toEmail)
	message.SetHtml(htmlBody)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("failed to send verification email via mailgun", "error", err, "to", toEmail, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("verification email sent via mailgun", "to", toEmail, "id", id)
	return nil
}

type SMTPEmailService struct {
	SMTPServer               string
	SMTPPort                 int
	SMTPUser                 string
	SMTPPassword             string
	SenderEmail              string
	VerificationEmailBaseURL string
}

func (s *SMTPEmailService) SendVerificationEmail(toEmail, name, token string) error {
	verificationLink := fmt.Sprintf("%s?token=%s", s.VerificationEmailBaseURL, token)
	body := fmt.Sprintf("Hi %s, please verify your email by clicking this link: %s", name, verificationLink)

	header := map[string]string{
		"From":         s.SenderEmail,
		"To":           toEmail,
		"Subject":      "Verify your email address",
		"MIME-version": "1.0",
		"Content-Type": `text/plain; charset="UTF-8"`,
	}
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, []byte(message)); err != nil {
		logger.L.Error("failed to send verification email via smtp", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send verification email via smtp: %w", err)
	}
	logger.L.Info("verification email sent via smtp", "to", toEmail)
	return nil
}

// MockEmailService logs instead of sending, for local development.
type MockEmailService struct {
	VerificationEmailBaseURL string
}

func (m *MockEmailService) SendVerificationEmail(toEmail, name, token string) error {
	verificationLink := fmt.Sprintf("%s?token=%s", m.VerificationEmailBaseURL, token)
	logger.L.Info("mock email service: would send verification email",
		"to", toEmail, "name", name, "verificationLink", verificationLink)
	return nil
}
