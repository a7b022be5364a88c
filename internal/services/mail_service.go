package services

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"regexp"

	"github.com/auma/compliance-gate/internal/config"
	"github.com/auma/compliance-gate/internal/logger"
)

// ErrSMTPNotConfigured is returned when no SMTP host or sender is set.
var ErrSMTPNotConfigured = errors.New("SMTP not configured")

var headerControlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// MailService handles sending emails via SMTP.
type MailService struct {
	cfg config.SMTPConfig
}

// NewMailService creates a new mail service instance.
func NewMailService(cfg config.SMTPConfig) *MailService {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Encryption == "" {
		cfg.Encryption = "starttls"
	}
	return &MailService{cfg: cfg}
}

// IsConfigured returns true if SMTP is properly configured.
func (s *MailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.FromAddress != ""
}

// TestConnection tests the SMTP connection without sending an email.
func (s *MailService) TestConnection() error {
	if !s.IsConfigured() {
		return ErrSMTPNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	switch s.cfg.Encryption {
	case "ssl":
		conn, err := tls.Dial("tcp", addr, s.tlsConfig())
		if err != nil {
			return fmt.Errorf("SSL connection failed: %w", err)
		}
		defer conn.Close()
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("SMTP connection failed: %w", err)
		}
		defer client.Close()

		if s.cfg.Encryption == "starttls" {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
		if auth := s.auth(); auth != nil {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
		}
	}

	return nil
}

// SendEmail sends an HTML email using the configured SMTP settings.
func (s *MailService) SendEmail(to, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrSMTPNotConfigured
	}
	if err := validateEmailAddress(to); err != nil {
		return err
	}

	msg := s.buildEmail(s.cfg.FromAddress, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	logger.Log().WithField("to", to).Debug("Sending email")

	switch s.cfg.Encryption {
	case "ssl":
		return s.sendSSL(addr, to, msg)
	case "starttls":
		return s.sendSTARTTLS(addr, to, msg)
	default:
		return smtp.SendMail(addr, s.auth(), s.cfg.FromAddress, []string{to}, msg)
	}
}

func (s *MailService) auth() smtp.Auth {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
}

func (s *MailService) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// buildEmail constructs a properly formatted email message. Header values
// are stripped of control characters so user supplied text (borrower names
// in subjects) cannot inject headers.
func (s *MailService) buildEmail(from, to, subject, htmlBody string) []byte {
	headers := [][2]string{
		{"From", sanitizeEmailHeader(from)},
		{"To", sanitizeEmailHeader(to)},
		{"Subject", sanitizeEmailHeader(subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg bytes.Buffer
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return msg.Bytes()
}

func sanitizeEmailHeader(v string) string {
	return headerControlChars.ReplaceAllString(v, "")
}

func validateEmailAddress(addr string) error {
	if addr == "" {
		return errors.New("email address is empty")
	}
	if headerControlChars.MatchString(addr) {
		return errors.New("email address contains control characters")
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	return nil
}

// sendSSL sends email using direct SSL/TLS connection.
func (s *MailService) sendSSL(addr, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, s.tlsConfig())
	if err != nil {
		return fmt.Errorf("SSL connection failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return s.deliver(client, to, msg)
}

// sendSTARTTLS sends email using STARTTLS.
func (s *MailService) sendSTARTTLS(addr, to string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("SMTP connection failed: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(s.tlsConfig()); err != nil {
		return fmt.Errorf("STARTTLS failed: %w", err)
	}

	return s.deliver(client, to, msg)
}

func (s *MailService) deliver(client *smtp.Client, to string, msg []byte) error {
	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.FromAddress); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
