package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:600px;margin:24px auto;background:#ffffff;border-radius:8px;overflow:hidden;">
    <div style="background:#1f2937;color:#ffffff;padding:16px 24px;">
      <h2 style="margin:0;font-size:18px;">{{.Title}}</h2>
    </div>
    <div style="padding:24px;color:#374151;font-size:14px;line-height:1.6;">
      {{if .Name}}<p style="margin-top:0;">Hi {{.Name}},</p>{{end}}
      <p>{{.Message}}</p>
      {{if .ActionURL}}
      <p style="text-align:center;margin:28px 0;">
        <a href="{{.ActionURL}}" style="background:#2563eb;color:#ffffff;padding:10px 24px;border-radius:6px;text-decoration:none;">{{.ActionLabel}}</a>
      </p>
      {{end}}
    </div>
    <div style="padding:16px 24px;border-top:1px solid #e5e7eb;color:#9ca3af;font-size:12px;">
      You are receiving this because of your notification preferences. Manage them in your account settings.
    </div>
  </div>
</body>
</html>`))

// EmailSender delivers over SMTP using a fixed HTML template.
type EmailSender struct {
	dialer  *gomail.Dialer
	from    string
	subject func(p *Params) string
}

func NewEmailSender(host string, port int, from, password string) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(host, port, from, password),
		from:   from,
		subject: func(p *Params) string {
			return p.Title
		},
	}
}

func (s *EmailSender) Channel() Channel {
	return ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, rcpt Recipient, p *Params) (uint, error) {
	if rcpt.Email == "" {
		return 0, errors.New("No email address provided")
	}

	html, err := renderEmailHTML(rcpt, p)
	if err != nil {
		return 0, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", rcpt.Email)
	m.SetHeader("Subject", s.subject(p))
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return 0, fmt.Errorf("failed to send email: %v", err)
	}
	return 0, nil
}

func renderEmailHTML(rcpt Recipient, p *Params) (string, error) {
	label := p.ActionLabel
	if label == "" {
		label = "View details"
	}
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]string{
		"Title":       p.Title,
		"Message":     p.Message,
		"Name":        rcpt.Name,
		"ActionURL":   p.ActionURL,
		"ActionLabel": label,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render email template: %v", err)
	}
	return buf.String(), nil
}
