package schema

import (
	"strconv"

	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
)

// Strategy selects which half of meta_db overflow pruning discards.
type Strategy string

const (
	// PruneFirst discards the lexicographically smallest (oldest) half.
	PruneFirst Strategy = "prune_first"
	// PruneLast discards the lexicographically largest (newest) half.
	PruneLast Strategy = "prune_last"
)

// ParseStrategy validates a strategy string read from queue_db or a
// deployment config file.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case PruneFirst:
		return PruneFirst, nil
	case PruneLast:
		return PruneLast, nil
	default:
		return "", pqerr.UnknownStrategy("schema.ParseStrategy", raw)
	}
}

// HighWaterMark bounds vacuum's overflow-pruning and dangling-reclamation
// behavior.
type HighWaterMark struct {
	MsgTimeoutSecs int64
	MaxMsgsNum     uint64
	HWMDBSizeBytes uint64
}

// Defaults mirror the documented values for an unconfigured queue.
const (
	DefaultMaxReaderNum   = 1024
	DefaultMaxDBNum       = 1024
	DefaultMaxDBSizeBytes = 32 << 30
	DefaultMsgTimeoutSecs = 500
	DefaultMaxMsgsNum     = 64 * 1024
	DefaultHWMDBSizeBytes = 30 << 30
	DefaultStrategy       = PruneFirst
)

// DefaultHighWaterMark returns the unconfigured-queue defaults.
func DefaultHighWaterMark() HighWaterMark {
	return HighWaterMark{
		MsgTimeoutSecs: DefaultMsgTimeoutSecs,
		MaxMsgsNum:     DefaultMaxMsgsNum,
		HWMDBSizeBytes: DefaultHWMDBSizeBytes,
	}
}

// FormatInt64 renders n as ASCII decimal for storage under queue/.
func FormatInt64(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

// ParseInt64 parses an ASCII decimal value stored under queue/.
func ParseInt64(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}
