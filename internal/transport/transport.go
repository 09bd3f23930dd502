package transport

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// SendResult carries the provider's acknowledgement.
type SendResult struct {
	MessageID string
}

// Transport abstracts delivery through an email service provider.
// Mocking this interface in tests gives full control over provider behaviour
// without making real network calls.
//
// Errors returned from Send should be *SendError where the transport can
// classify them; the dispatcher treats unclassified errors as transient.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*SendResult, error)
	Name() string
}
