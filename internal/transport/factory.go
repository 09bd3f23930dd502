package transport

import (
	"fmt"

	"github.com/alumnihub/event-mailer/internal/config"
)

// New builds the Transport selected by MAIL_PROVIDER. Missing credentials
// surface here as a construction error so the worker refuses to start
// rather than silently dropping every job.
func New(cfg *config.Config) (Transport, error) {
	switch cfg.MailProvider {
	case "sendgrid":
		return NewSendGridTransport(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
	case "smtp":
		return NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.MailFromName)
	case "stdout":
		return NewStdoutTransport(), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}
