package pqerr

import (
	"errors"
	"testing"
)

func TestErrorStringIncludesKindAndOp(t *testing.T) {
	err := Config("config.Load", errors.New("boom"))
	got := err.Error()
	want := "ConfigError: config.Load: boom"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorStringWithoutCause(t *testing.T) {
	err := NotInitialized("queue.Open")
	if err.Error() != "NotInitialized: queue.Open" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Store("queue.Put", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to cause")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := UnknownStrategy("config.Load", "bogus")
	if !Is(err, KindUnknownStrategy) {
		t.Fatalf("expected Is to match KindUnknownStrategy")
	}
	if Is(err, KindStore) {
		t.Fatalf("did not expect Is to match KindStore")
	}
}

func TestIsReturnsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindStore) {
		t.Fatalf("expected Is to return false for a plain error")
	}
}

func TestEnvironmentConflictMentionsPath(t *testing.T) {
	err := EnvironmentConflict("/var/lib/pubqueue/orders")
	if !errors.Is(error(err), error(err)) {
		t.Fatalf("sanity: error should equal itself")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestSentinelsAreDistinctFromEachOther(t *testing.T) {
	if errors.Is(ErrEmpty, ErrTimeout) {
		t.Fatalf("ErrEmpty and ErrTimeout must not be the same sentinel")
	}
}
