package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Mailer sends notification mail over SMTP. When no host or username is
// configured it logs the message instead of sending, so development and
// demo deployments work without an SMTP account.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// New creates a Mailer. Pass an empty host to select log-only mode.
func New(host string, port int, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Configured reports whether real SMTP delivery is set up.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.username != ""
}

// Send delivers one message. When HTML is non-empty it is sent as the
// body with an HTML content type, otherwise the plain text is used.
func (m *Mailer) Send(to, subject, text, html string) error {
	if !m.Configured() {
		log.Info().Str("to", to).Str("subject", subject).Msg("mailer: smtp not configured, logging mail")
		return nil
	}

	body := text
	contentType := "text/plain; charset=utf-8"
	if html != "" {
		body = html
		contentType = "text/html; charset=utf-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: Career Tracking Platform <%s>\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "\r\n%s\r\n", body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("mailer: sent")
	return nil
}
