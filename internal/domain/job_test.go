package domain_test

import (
	"strings"
	"testing"

	"github.com/alumnihub/event-mailer/internal/domain"
)

func TestDispatchRequest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		req         domain.DispatchRequest
		expectedErr error
	}{
		{"valid", domain.DispatchRequest{HTML: "<p>Hi</p>"}, nil},
		{"valid with subject", domain.DispatchRequest{Subject: "Reunion", HTML: "<p>Hi</p>"}, nil},
		{"empty body", domain.DispatchRequest{}, domain.ErrEmptyBody},
		{"oversized body", domain.DispatchRequest{HTML: strings.Repeat("x", domain.MaxBodyBytes+1)}, domain.ErrBodyTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err != tc.expectedErr {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}
