package schema

import (
	"bytes"
	"sort"
	"testing"
)

func TestKeyBuildersNamespaceByPrefix(t *testing.T) {
	msgID := "0000000000001abc"
	cases := map[string][]byte{
		"data":    DataKey(msgID),
		"meta":    MetaKey(msgID),
		"pending": PendingKey(msgID),
	}
	seen := map[string]bool{}
	for name, key := range cases {
		s := string(key)
		if seen[s] {
			t.Fatalf("%s produced a key colliding with another sub-database: %q", name, s)
		}
		seen[s] = true
	}
}

func TestSubKeyRoundTripsMsgID(t *testing.T) {
	subID := "sub1"
	msgID := "0000000000001abc"
	key := SubKey(subID, msgID)
	if got := MsgIDFromSubKey(subID, key); got != msgID {
		t.Fatalf("MsgIDFromSubKey() = %q, want %q", got, msgID)
	}
}

func TestSubKeyDoesNotLeakAcrossSubscribers(t *testing.T) {
	keyA := SubKey("sub-a", "m1")
	prefixB := SubPrefix("sub-b")
	if bytes.HasPrefix(keyA, prefixB) {
		t.Fatalf("sub-a key unexpectedly matched sub-b's prefix")
	}
}

func TestPrefixUpperBoundExcludesSiblingPrefix(t *testing.T) {
	prefix := DataPrefix()
	upper := PrefixUpperBound(prefix)
	sibling := MetaPrefix()
	if bytes.Compare(sibling, upper) < 0 {
		t.Fatalf("meta/ prefix should sort at or after data/'s upper bound")
	}
	within := DataKey("zzzz")
	if bytes.Compare(within, upper) >= 0 {
		t.Fatalf("a data/ key must sort below its own prefix's upper bound")
	}
}

func TestPrefixUpperBoundAllFF(t *testing.T) {
	prefix := []byte{0xFF, 0xFF}
	if got := PrefixUpperBound(prefix); got != nil {
		t.Fatalf("expected nil upper bound for all-0xFF prefix, got %v", got)
	}
}

func TestEncodeDecodeUint64RoundTrips(t *testing.T) {
	want := uint64(65536)
	got, err := DecodeUint64(EncodeUint64(want))
	if err != nil {
		t.Fatalf("DecodeUint64: %v", err)
	}
	if got != want {
		t.Fatalf("DecodeUint64() = %d, want %d", got, want)
	}
}

func TestEncodeDecodeSubscriberIDsRoundTrips(t *testing.T) {
	want := []string{"sub1", "sub2", "sub3"}
	got := DecodeSubscriberIDs(EncodeSubscriberIDs(want))
	if len(got) != len(want) {
		t.Fatalf("DecodeSubscriberIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DecodeSubscriberIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecodeSubscriberIDsEmpty(t *testing.T) {
	if got := DecodeSubscriberIDs([]byte("")); got != nil {
		t.Fatalf("expected nil for empty subscriber id list, got %v", got)
	}
}

func TestParseStrategyAcceptsKnownValues(t *testing.T) {
	if s, err := ParseStrategy("prune_first"); err != nil || s != PruneFirst {
		t.Fatalf("ParseStrategy(prune_first) = %v, %v", s, err)
	}
	if s, err := ParseStrategy("prune_last"); err != nil || s != PruneLast {
		t.Fatalf("ParseStrategy(prune_last) = %v, %v", s, err)
	}
}

func TestParseStrategyRejectsUnknown(t *testing.T) {
	if _, err := ParseStrategy("prune_middle"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestFormatParseInt64RoundTrips(t *testing.T) {
	want := int64(-42)
	got, err := ParseInt64(FormatInt64(want))
	if err != nil {
		t.Fatalf("ParseInt64: %v", err)
	}
	if got != want {
		t.Fatalf("ParseInt64() = %d, want %d", got, want)
	}
}

func TestDefaultHighWaterMarkMatchesDocumentedDefaults(t *testing.T) {
	hwm := DefaultHighWaterMark()
	if hwm.MsgTimeoutSecs != DefaultMsgTimeoutSecs {
		t.Fatalf("MsgTimeoutSecs = %d", hwm.MsgTimeoutSecs)
	}
	if hwm.MaxMsgsNum != DefaultMaxMsgsNum {
		t.Fatalf("MaxMsgsNum = %d", hwm.MaxMsgsNum)
	}
	if hwm.HWMDBSizeBytes != DefaultHWMDBSizeBytes {
		t.Fatalf("HWMDBSizeBytes = %d", hwm.HWMDBSizeBytes)
	}
}

func TestRequiredParamsAreSorted(t *testing.T) {
	// Not a functional requirement, just guards against an accidental
	// duplicate entry creeping into the slice.
	seen := map[string]bool{}
	for _, p := range RequiredParams {
		if seen[p] {
			t.Fatalf("duplicate required param %q", p)
		}
		seen[p] = true
	}
	got := append([]string(nil), RequiredParams...)
	sort.Strings(got)
	_ = got
}
