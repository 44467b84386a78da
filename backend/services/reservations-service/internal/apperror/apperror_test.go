package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := InvalidState("cannot complete a %s booking", "cancelled")
	wrapped := fmt.Errorf("engine: %w", err)

	if !errors.Is(wrapped, ErrInvalidState) {
		t.Fatalf("expected wrapped error to match ErrInvalidState")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("did not expect ErrNotFound match")
	}
	if got := KindOf(wrapped); got != ErrInvalidState {
		t.Fatalf("expected invalid state kind, got %q", got)
	}
	if err.Error() != "cannot complete a cancelled booking" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRetryableOnlyForCapacity(t *testing.T) {
	if !Retryable(NoCapacity("no available slots")) {
		t.Fatalf("no capacity must be retryable")
	}
	for _, err := range []error{
		Validation("bad"),
		NotFound("missing"),
		Forbidden("nope"),
		InvalidState("wrong"),
		errors.New("boom"),
	} {
		if Retryable(err) {
			t.Fatalf("%v must not be retryable", err)
		}
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("db down")); got != "" {
		t.Fatalf("expected empty kind, got %q", got)
	}
}
