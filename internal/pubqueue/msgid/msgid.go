// Package msgid builds the lexicographically-sortable message identifiers
// used as keys across data_db, meta_db, pending_db, and every per-subscriber
// sub-database.
package msgid

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// timestampDigits is wide enough to hold a millisecond Unix timestamp
// through the year 2286 without overflowing, keeping fixed-width
// zero-padded decimal ordering equivalent to numeric ordering.
const timestampDigits = 13

// New builds a msg_id from a millisecond timestamp and a fresh random UUID.
// The timestamp prefix makes KVS key order track temporal order; the UUID
// suffix breaks ties between messages published within the same
// millisecond, including across concurrent publisher processes.
func New(timestampMs int64) string {
	return fmt.Sprintf("%0*d%s", timestampDigits, timestampMs, uuid.New().String())
}

// NewNow builds a msg_id using the current wall-clock time.
func NewNow() string {
	return New(time.Now().UnixMilli())
}

// Timestamp extracts the millisecond timestamp encoded in id. It returns an
// error if id is shorter than the fixed timestamp width or the prefix is
// not decimal.
func Timestamp(id string) (int64, error) {
	if len(id) < timestampDigits {
		return 0, fmt.Errorf("msgid: %q shorter than timestamp width", id)
	}
	return strconv.ParseInt(id[:timestampDigits], 10, 64)
}

// Age reports how old id is relative to now, as a time.Duration at
// millisecond resolution.
func Age(id string, now time.Time) (time.Duration, error) {
	ms, err := Timestamp(id)
	if err != nil {
		return 0, err
	}
	createdAt := time.UnixMilli(ms)
	return now.Sub(createdAt), nil
}
