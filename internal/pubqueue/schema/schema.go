// Package schema lays out the five named sub-databases of a queue
// (data_db, meta_db, pending_db, queue_db, and one per-subscriber
// sub-database) as key prefixes inside a single flat Pebble keyspace.
package schema

import (
	"strconv"
	"strings"
)

// Sub-database prefixes. Each is terminated with '/' so prefix scans never
// spill into a neighboring sub-database.
const (
	prefixData    = "data/"
	prefixMeta    = "meta/"
	prefixPending = "pending/"
	prefixQueue   = "queue/"
	prefixSub     = "sub/"
)

// Parameter keys stored under the queue/ prefix (queue_db in the design).
const (
	ParamMsgTimeoutSecs = "msg_timeout_secs"
	ParamMaxMsgsNum     = "max_msgs_num"
	ParamHWMDBSizeBytes = "hwm_db_size_bytes"
	ParamStrategy       = "strategy"
	ParamSubscriberIDs  = "subscriber_ids"
)

// RequiredParams lists the five parameter records control.CheckQueueIsInitialized
// requires to be present before a queue is considered initialized.
var RequiredParams = []string{
	ParamMsgTimeoutSecs,
	ParamMaxMsgsNum,
	ParamHWMDBSizeBytes,
	ParamStrategy,
	ParamSubscriberIDs,
}

// DataKey returns the data_db key for msg_id.
func DataKey(msgID string) []byte {
	return append([]byte(prefixData), msgID...)
}

// MetaKey returns the meta_db key for msg_id.
func MetaKey(msgID string) []byte {
	return append([]byte(prefixMeta), msgID...)
}

// PendingKey returns the pending_db key for msg_id.
func PendingKey(msgID string) []byte {
	return append([]byte(prefixPending), msgID...)
}

// QueueParamKey returns the queue_db key for a parameter name.
func QueueParamKey(name string) []byte {
	return append([]byte(prefixQueue), name...)
}

// SubKey returns the per-subscriber sub-database key for subscriber subID
// and msg_id.
func SubKey(subID, msgID string) []byte {
	k := make([]byte, 0, len(prefixSub)+len(subID)+1+len(msgID))
	k = append(k, prefixSub...)
	k = append(k, subID...)
	k = append(k, '/')
	k = append(k, msgID...)
	return k
}

// SubPrefix returns the scan prefix covering every key in subscriber
// subID's sub-database.
func SubPrefix(subID string) []byte {
	k := make([]byte, 0, len(prefixSub)+len(subID)+1)
	k = append(k, prefixSub...)
	k = append(k, subID...)
	k = append(k, '/')
	return k
}

// DataPrefix returns the scan prefix covering data_db.
func DataPrefix() []byte { return []byte(prefixData) }

// MetaPrefix returns the scan prefix covering meta_db.
func MetaPrefix() []byte { return []byte(prefixMeta) }

// PendingPrefix returns the scan prefix covering pending_db.
func PendingPrefix() []byte { return []byte(prefixPending) }

// MsgIDFromSubKey extracts the msg_id suffix from a per-subscriber key
// produced by SubKey.
func MsgIDFromSubKey(subID string, key []byte) string {
	prefix := SubPrefix(subID)
	if len(key) < len(prefix) {
		return ""
	}
	return string(key[len(prefix):])
}

// MsgIDFromPrefixedKey strips a known sub-database prefix (DataPrefix,
// MetaPrefix, or PendingPrefix) from key, returning the bare msg_id.
func MsgIDFromPrefixedKey(key, prefix []byte) string {
	if len(key) < len(prefix) {
		return ""
	}
	return string(key[len(prefix):])
}

// PrefixUpperBound returns the exclusive upper bound for an iterator scan
// restricted to keys sharing prefix.
func PrefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	// prefix was all 0xFF bytes; no finite upper bound exists, so scan to
	// the end of the keyspace.
	return nil
}

// EncodeUint64 renders n as ASCII decimal, matching the reference schema's
// on-disk encoding for pending-count and timestamp values.
func EncodeUint64(n uint64) []byte {
	return []byte(strconv.FormatUint(n, 10))
}

// DecodeUint64 parses an ASCII decimal value written by EncodeUint64.
func DecodeUint64(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}

// EncodeSubscriberIDs renders ids as the space-separated token list stored
// under ParamSubscriberIDs, matching the on-disk format expected by the
// reference schema.
func EncodeSubscriberIDs(ids []string) []byte {
	return []byte(strings.Join(ids, " "))
}

// DecodeSubscriberIDs parses the space-separated token list stored under
// ParamSubscriberIDs.
func DecodeSubscriberIDs(b []byte) []string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
