package docerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
	}{
		{NotFound("missing"), KindNotFound},
		{InvalidInput("bad"), KindInvalidInput},
		{Conflict("duplicate"), KindConflict},
		{Dependency("backend down", errors.New("boom")), KindDependency},
		{Processing("corrupt", nil), KindProcessing},
		{Transient("timeout", nil), KindTransient},
	}
	for _, tc := range cases {
		if tc.err.Kind() != tc.kind {
			t.Errorf("%v: kind = %v, want %v", tc.err, tc.err.Kind(), tc.kind)
		}
	}
}

func TestSafeMessageRedactsCause(t *testing.T) {
	cause := errors.New("s3 bucket arn:aws:s3:::secret-bucket unreachable")
	err := Dependency("failed to store file", cause)

	if err.SafeMessage() != "failed to store file" {
		t.Errorf("SafeMessage() = %q", err.SafeMessage())
	}
	// The full Error() keeps the cause for logs.
	if err.Error() == err.SafeMessage() {
		t.Error("Error() should include the cause")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Dependency("wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var de *Error
	if !errors.As(wrapped, &de) {
		t.Fatal("errors.As should find the *Error")
	}
	if de.Kind() != KindDependency {
		t.Errorf("kind = %v", de.Kind())
	}
}

func TestIsComparesKind(t *testing.T) {
	if !errors.Is(NotFound("a"), NotFound("b")) {
		t.Error("two NotFound errors should match by kind")
	}
	if errors.Is(NotFound("a"), Conflict("a")) {
		t.Error("different kinds should not match")
	}
}

func TestKindString(t *testing.T) {
	if KindNotFound.String() != "not_found" {
		t.Errorf("KindNotFound = %q", KindNotFound.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("unknown kind = %q", Kind(99).String())
	}
}
