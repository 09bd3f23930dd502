package transport

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNil   bool
		permanent bool
	}{
		{"accepted is not an error", 202, "", true, false},
		{"generic 400 is transient", 400, "something odd", false, false},
		{"invalid recipient is permanent", 400, "invalid recipient address", false, true},
		{"mailbox not found is permanent", 400, "Mailbox Not Found", false, true},
		{"unauthorized is permanent", 401, "bad api key", false, true},
		{"forbidden is permanent", 403, "account locked", false, true},
		{"rate limited is transient", 429, "too many requests", false, false},
		{"server error is transient", 500, "internal error", false, false},
		{"bad gateway is transient", 502, "", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			se := classifyStatus("test", tc.status, tc.body)
			if tc.wantNil {
				if se != nil {
					t.Fatalf("expected nil, got %v", se)
				}
				return
			}
			if se == nil {
				t.Fatal("expected a SendError")
			}
			if se.Permanent != tc.permanent {
				t.Fatalf("expected permanent=%v, got %v", tc.permanent, se.Permanent)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	if IsPermanent(errors.New("plain network error")) {
		t.Fatal("unclassified errors must be treated as transient")
	}
	if !IsPermanent(&SendError{Permanent: true}) {
		t.Fatal("expected permanent SendError to be recognised")
	}
	wrapped := fmt.Errorf("send: %w", &SendError{Permanent: true})
	if !IsPermanent(wrapped) {
		t.Fatal("expected wrapped SendError to be recognised")
	}
}

func TestIsPermanentSMTPError(t *testing.T) {
	if !isPermanentSMTPError(errors.New("550 5.1.1 user unknown")) {
		t.Fatal("expected 550 to be permanent")
	}
	if isPermanentSMTPError(errors.New("421 service not available")) {
		t.Fatal("expected 421 to be transient")
	}
}
