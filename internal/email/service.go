package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"
)

// Service sends transactional mail over SMTP.
// Dispatch is awaited by the caller, so every send is bounded by sendTimeout;
// a hanging relay surfaces as an error instead of stalling the request.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	sendTimeout  time.Duration
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword string, sendTimeout time.Duration) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		sendTimeout:  sendTimeout,
	}
}

// SendOTPEmail delivers a one-time verification code to the user
func (s *Service) SendOTPEmail(ctx context.Context, toEmail, code string) error {
	subject := "Your verification code"
	body, err := renderOTPEmailTemplate(code)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(ctx, toEmail, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	// Build message
	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	// smtp.SendMail has no context support, so run it in a goroutine and
	// give up when the context expires. The goroutine is left to finish
	// on its own; the buffered channel keeps it from leaking.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp dispatch aborted: %w", ctx.Err())
	}
}

func renderOTPEmailTemplate(code string) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .code {
            font-size: 28px;
            font-weight: bold;
            letter-spacing: 6px;
            color: #111;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Task Hub</h1>
    </div>
    <div class="content">
        <h2>Verify your email address</h2>
        <p>Enter this code to verify your email address and activate your account:</p>

        <div class="code">{{.Code}}</div>

        <p>This code will expire in <strong>10 minutes</strong>.</p>

        <p style="margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
    </div>
    <div class="footer">
        <p>&copy; 2026 Task Hub. All rights reserved.</p>
    </div>
</body>
</html>
`

	t, err := template.New("otp").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Code string
	}{
		Code: code,
	}

	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
