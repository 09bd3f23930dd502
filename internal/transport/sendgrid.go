package transport

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridTransport delivers mail through the SendGrid v3 API.
type SendGridTransport struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	fromName string
}

func NewSendGridTransport(apiKey, fromAddr, fromName string) (*SendGridTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid: SENDGRID_API_KEY is required")
	}
	if fromAddr == "" {
		return nil, fmt.Errorf("sendgrid: MAIL_FROM is required")
	}
	return &SendGridTransport{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddr),
	}, nil
}

func (t *SendGridTransport) Name() string { return "sendgrid" }

func (t *SendGridTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	to := sgmail.NewEmail(msg.ToName, msg.To)
	// SendGrid requires a plain-text part; reuse the HTML so the message is
	// never rejected for an empty body.
	m := sgmail.NewSingleEmail(t.from, msg.Subject, to, msg.HTML, msg.HTML)

	resp, err := t.client.SendWithContext(ctx, m)
	if err != nil {
		// Network-level failure, no status code to classify.
		return nil, &SendError{Provider: t.Name(), Reason: err.Error()}
	}

	if se := classifyStatus(t.Name(), resp.StatusCode, resp.Body); se != nil {
		return nil, se
	}

	result := &SendResult{}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		result.MessageID = ids[0]
	}
	return result, nil
}

// compile-time check that SendGridTransport implements Transport
var _ Transport = (*SendGridTransport)(nil)
