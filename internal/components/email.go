package components

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
	"greenscreen/internal/logging"
)

// EmailType is the email sender's component-type string.
const EmailType = "email"

// Email sends one plain-text message over SMTP.
type Email struct {
	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail returns an email sender instance.
func NewEmail() *Email { return &Email{send: smtp.SendMail} }

// Type returns the component-type string.
func (e *Email) Type() string { return EmailType }

type emailConfig struct {
	SMTPHost string   `json:"smtp_host"`
	SMTPPort int      `json:"smtp_port,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	From     string   `json:"from"`
	To       []string `json:"to"`
	Subject  string   `json:"subject,omitempty"`
	Body     string   `json:"body,omitempty"`
}

// Execute resolves the message against the dictionary and sends it. The
// SMTP password never reaches logs or error details.
func (e *Email) Execute(_ context.Context, cfg component.Configuration, data dict.Dictionary) *component.Result {
	log := logging.Get(logging.CategoryComponent)

	var conf emailConfig
	if err := cfg.Decode(&conf); err != nil {
		return component.Fail(component.CodeConfigError, err.Error())
	}
	if conf.SMTPHost == "" || conf.From == "" || len(conf.To) == 0 {
		return component.Fail(component.CodeConfigError, "smtp_host, from and to are required")
	}
	port := conf.SMTPPort
	if port == 0 {
		port = 25
	}

	from := data.Resolve(conf.From)
	to := make([]string, len(conf.To))
	for i, r := range conf.To {
		to[i] = data.Resolve(r)
	}
	subject := data.Resolve(conf.Subject)
	body := data.Resolve(conf.Body)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if conf.Username != "" {
		auth = smtp.PlainAuth("", data.Resolve(conf.Username), data.Resolve(conf.Password), data.Resolve(conf.SMTPHost))
	}

	addr := net.JoinHostPort(data.Resolve(conf.SMTPHost), fmt.Sprintf("%d", port))
	if err := e.send(addr, auth, from, to, []byte(msg.String())); err != nil {
		scrubbed := data.Redact(err.Error())
		if pw := data.Resolve(conf.Password); pw != "" {
			scrubbed = strings.ReplaceAll(scrubbed, pw, "******")
		}
		return component.Failf(component.CodeSendError, "send to %s: %s", addr, scrubbed)
	}
	log.Infow("email sent", "to", to, "subject", subject)
	return component.Success(map[string]string{"email_recipients": fmt.Sprintf("%d", len(to))})
}

var _ component.Component = (*Email)(nil)
