package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPTransport delivers mail through a plain SMTP relay with AUTH.
// Classification is coarse compared to the HTTP providers: permanent SMTP
// reply codes (5xx) are recognisable from the error text, everything else
// is treated as transient.
type SMTPTransport struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     string
	fromName string
}

func NewSMTPTransport(host string, port int, username, password, fromAddr, fromName string) (*SMTPTransport, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp: SMTP_HOST is required")
	}
	if fromAddr == "" {
		return nil, fmt.Errorf("smtp: MAIL_FROM is required")
	}

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPTransport{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		auth:     auth,
		from:     fromAddr,
		fromName: fromName,
	}, nil
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(_ context.Context, msg *Message) (*SendResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", t.fromName, t.from)
	fmt.Fprintf(&b, "To: %s <%s>\r\n", msg.ToName, msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	if err := smtp.SendMail(t.addr, t.auth, t.from, []string{msg.To}, []byte(b.String())); err != nil {
		return nil, &SendError{
			Provider:  t.Name(),
			Reason:    err.Error(),
			Permanent: isPermanentSMTPError(err),
		}
	}

	// SMTP has no provider-assigned message ID at this level.
	return &SendResult{}, nil
}

// isPermanentSMTPError recognises 5xx SMTP reply codes in the error text.
func isPermanentSMTPError(err error) bool {
	text := err.Error()
	for _, code := range []string{"550", "551", "553", "554"} {
		if strings.Contains(text, code) {
			return true
		}
	}
	return false
}

var _ Transport = (*SMTPTransport)(nil)
