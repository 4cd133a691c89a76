package email

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"html/template"
	"math/big"
	"net/smtp"
	"time"

	"contact-gateway/config"

	"github.com/rs/zerolog/log"
)

// Sender delivers verification codes out of band. The verification gate only
// needs this contract; SMTP is the production implementation.
type Sender interface {
	SendVerificationCode(toEmail, toName, code string, expiresAt time.Time) error
}

// Service sends transactional email over SMTP.
type Service struct {
	cfg config.SMTPConfig

	verificationTmpl *template.Template
	contactCopyTmpl  *template.Template
}

type verificationData struct {
	RecipientName string
	Code          string
	ExpiresAt     string
}

const verificationEmailHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #667eea; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .code { background: #667eea; color: white; font-size: 32px; font-weight: bold; padding: 20px; text-align: center; border-radius: 8px; letter-spacing: 8px; margin: 20px 0; font-family: monospace; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Email Verification</h1>
        </div>
        <div class="content">
            <p>Hello {{.RecipientName}},</p>
            <p>Thank you for contacting us! To complete your message submission, please verify your email address using the code below:</p>
            <div class="code">{{.Code}}</div>
            <p><strong>Important:</strong> this code will expire at {{.ExpiresAt}}.</p>
            <p>If you didn't request this verification, please ignore this email.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
`

// NewService creates an SMTP email service.
func NewService(cfg config.SMTPConfig) (*Service, error) {
	tmpl, err := template.New("verification").Parse(verificationEmailHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification email template: %w", err)
	}

	copyTmpl, err := template.New("contact_copy").Parse(contactCopyHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contact copy template: %w", err)
	}

	return &Service{cfg: cfg, verificationTmpl: tmpl, contactCopyTmpl: copyTmpl}, nil
}

// SendVerificationCode emails a one-time code to toEmail. When the service is
// disabled the code is logged instead and delivery reports success, so local
// setups can exercise the gate without an SMTP server.
func (s *Service) SendVerificationCode(toEmail, toName, code string, expiresAt time.Time) error {
	if !s.cfg.Enabled {
		log.Warn().Msg("Email service disabled - verification code not sent")
		log.Info().
			Str("email", toEmail).
			Str("code", code).
			Time("expires_at", expiresAt).
			Msg("Verification code (email disabled)")
		return nil
	}

	var body bytes.Buffer
	err := s.verificationTmpl.Execute(&body, verificationData{
		RecipientName: toName,
		Code:          code,
		ExpiresAt:     expiresAt.Format(time.RFC1123),
	})
	if err != nil {
		return fmt.Errorf("failed to execute verification template: %w", err)
	}

	return s.send(toEmail, "Your Verification Code", body.String())
}

// send delivers one HTML email over SMTP.
func (s *Service) send(to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		from, to, subject, body,
	))

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, msg); err != nil {
		log.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent successfully")
	return nil
}

const contactCopyHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .meta { background: #f0f0f0; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .message { background: #f9f9f9; padding: 20px; border-radius: 8px; white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="container">
        <h2>New contact message</h2>
        <div class="meta">
            <p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
            <p><strong>Subject:</strong> {{.Subject}}</p>
            <p><strong>Received:</strong> {{.SubmittedAt}}</p>
        </div>
        <div class="message">{{.Message}}</div>
    </div>
</body>
</html>
`

type contactCopyData struct {
	Name        string
	Email       string
	Subject     string
	Message     string
	SubmittedAt string
}

// SendContactCopy forwards a copy of an accepted message to the site owner.
// The upstream form service already stores the message; this is a
// convenience so the owner sees it in their inbox immediately.
func (s *Service) SendContactCopy(name, fromEmail, subject, message string, submittedAt time.Time) error {
	if !s.cfg.Enabled || s.cfg.OwnerEmail == "" {
		log.Debug().Msg("Owner copy skipped (email disabled or no owner address)")
		return nil
	}

	var body bytes.Buffer
	err := s.contactCopyTmpl.Execute(&body, contactCopyData{
		Name:        name,
		Email:       fromEmail,
		Subject:     subject,
		Message:     message,
		SubmittedAt: submittedAt.Format(time.RFC1123),
	})
	if err != nil {
		return fmt.Errorf("failed to execute contact copy template: %w", err)
	}

	return s.send(s.cfg.OwnerEmail, fmt.Sprintf("[Contact] %s", subject), body.String())
}

// GenerateCode returns a uniformly random 6-digit code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
