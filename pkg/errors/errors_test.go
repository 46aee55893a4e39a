package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Humphrey-He/poitrack/pkg/entity"
)

func TestRefErrorUnwrap(t *testing.T) {
	ref := entity.Ref{Index: 12, Dim: entity.Edge}
	err := fmt.Errorf("fetch: %w", NewRefError(ref, ErrTransportFailed))

	if !IsTransportFailed(err) {
		t.Error("IsTransportFailed() = false for wrapped RefError")
	}
	var re *RefError
	if !errors.As(err, &re) || re.Ref != ref {
		t.Fatalf("errors.As() did not recover the RefError: %v", err)
	}
	if got, want := re.Error(), "poitrack: label transport failed: 12,2"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"empty", ErrEmptyLabel, IsEmptyLabel},
		{"reset", ErrReset, IsReset},
		{"closed", ErrClosed, IsClosed},
		{"config", fmt.Errorf("tracker.max_labels: %w", ErrInvalidConfig), IsInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("check(%v) = false", tt.err)
			}
			if tt.check(ErrShortResponse) {
				t.Errorf("check(ErrShortResponse) = true")
			}
		})
	}
}
