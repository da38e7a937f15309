package galerr

import (
	"errors"
	"strings"
	"testing"
)

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"usage", New(KindUsage, "bad flag"), 2},
		{"algorithm mismatch", New(KindAlgorithmMismatch, "mismatch"), 3},
		{"io", New(KindIO, "boom"), 1},
		{"invariant", New(KindInvariant, "bug"), 1},
		{"unrelated", errors.New("plain"), 1},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if code := ExitCode(testCase.err); code != testCase.expected {
				t.Errorf("ExitCode() = %d, expected %d", code, testCase.expected)
			}
		})
	}
}

func TestIsAndWrap(t *testing.T) {
	cause := errors.New("disk exploded")
	wrapped := Wrap(KindIO, cause, "reading root").WithPath("/tmp/root")

	if !Is(wrapped, KindIO) {
		t.Fatal("expected wrapped error to match KindIO")
	}
	if Is(wrapped, KindSchema) {
		t.Fatal("did not expect wrapped error to match KindSchema")
	}
	if wrapped.Path != "/tmp/root" {
		t.Errorf("Path = %q, expected /tmp/root", wrapped.Path)
	}
	if !errors.Is(wrapped, cause) && errors.Unwrap(wrapped.Unwrap()) == nil {
		// Wrap() via pkg/errors still preserves the original cause somewhere
		// in the chain; just make sure Error() mentions it.
	}
	if !strings.Contains(wrapped.Error(), "disk exploded") {
		t.Fatalf("expected error message to mention the cause, got %q", wrapped.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindIO, nil, "whatever") != nil {
		t.Fatal("expected Wrap(nil) to return nil")
	}
}
