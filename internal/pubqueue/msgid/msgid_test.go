package msgid

import (
	"sort"
	"testing"
	"time"
)

func TestNewOrdersByTimestamp(t *testing.T) {
	earlier := New(1000)
	later := New(2000)
	ids := []string{later, earlier}
	sort.Strings(ids)
	if ids[0] != earlier || ids[1] != later {
		t.Fatalf("expected lexicographic sort to match temporal order, got %v", ids)
	}
}

func TestNewBreaksTiesWithinSameMillisecond(t *testing.T) {
	a := New(5000)
	b := New(5000)
	if a == b {
		t.Fatalf("expected distinct ids for two calls at the same timestamp")
	}
	if a[:timestampDigits] != b[:timestampDigits] {
		t.Fatalf("expected identical timestamp prefixes")
	}
}

func TestTimestampRoundTrips(t *testing.T) {
	id := New(1710000000123)
	got, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if got != 1710000000123 {
		t.Fatalf("Timestamp() = %d, want 1710000000123", got)
	}
}

func TestTimestampRejectsShortID(t *testing.T) {
	if _, err := Timestamp("123"); err == nil {
		t.Fatalf("expected error for an id shorter than the timestamp width")
	}
}

func TestAgeMeasuresElapsedTime(t *testing.T) {
	createdAtMs := time.Now().Add(-5 * time.Second).UnixMilli()
	id := New(createdAtMs)
	age, err := Age(id, time.Now())
	if err != nil {
		t.Fatalf("Age: %v", err)
	}
	if age < 4*time.Second || age > 10*time.Second {
		t.Fatalf("Age() = %v, want roughly 5s", age)
	}
}

func TestNewNowProducesTimestampDigitsPrefix(t *testing.T) {
	id := NewNow()
	if len(id) <= timestampDigits {
		t.Fatalf("expected id longer than the fixed timestamp prefix")
	}
	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if delta := time.Since(time.UnixMilli(ts)); delta < 0 || delta > 5*time.Second {
		t.Fatalf("NewNow timestamp too far from now: %v", delta)
	}
}
