package transport

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// StdoutTransport writes messages to standard output instead of sending
// them. Default in development so the full pipeline can run without
// provider credentials.
type StdoutTransport struct{}

func NewStdoutTransport() *StdoutTransport { return &StdoutTransport{} }

func (t *StdoutTransport) Name() string { return "stdout" }

func (t *StdoutTransport) Send(_ context.Context, msg *Message) (*SendResult, error) {
	fmt.Fprintf(os.Stdout, "--- mail ---\nTo: %s <%s>\nSubject: %s\n\n%s\n---\n",
		msg.ToName, msg.To, msg.Subject, msg.HTML)
	return &SendResult{MessageID: "stdout-" + uuid.New().String()}, nil
}

var _ Transport = (*StdoutTransport)(nil)
