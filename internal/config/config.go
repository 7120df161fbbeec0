package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
)

// Defaults mirror the documented values for fields left unset in the file.
const (
	DefaultMaxReaderNum   = schema.DefaultMaxReaderNum
	DefaultMaxDBNum       = schema.DefaultMaxDBNum
	DefaultMaxDBSizeBytes = schema.DefaultMaxDBSizeBytes
	DefaultMsgTimeoutSecs = schema.DefaultMsgTimeoutSecs
	DefaultMaxMsgsNum     = schema.DefaultMaxMsgsNum
	DefaultHWMSizeBytes   = schema.DefaultHWMDBSizeBytes
	DefaultStrategy       = schema.DefaultStrategy
)

// HighWaterMarkConfig is the high-water-mark block of a queue entry.
type HighWaterMarkConfig struct {
	MsgTimeoutSecs int64  `json:"MSG_TIMEOUT_SECS"`
	MaxMsgsNum     uint64 `json:"MAX_MSGS_NUM"`
	HWMDBSizeBytes uint64 `json:"HWM_LMDB_SIZE_BYTES"`
	Strategy       string `json:"strategy"`
}

// QueueConfig is one entry under "queues" in the deployment file, keyed by
// queue directory path.
type QueueConfig struct {
	MaxReaderNum   int                 `json:"max_reader_num"`
	MaxDBNum       int                 `json:"max_db_num"`
	MaxDBSizeBytes int64               `json:"max_db_size_bytes"`
	Subscribers    []string            `json:"subscribers"`
	HighWaterMark  HighWaterMarkConfig `json:"high-water-mark"`
}

// PublisherConfig is one entry under "pub", keyed by publisher id.
type PublisherConfig struct {
	OutQueue    string   `json:"out_queue"`
	Subscribers []string `json:"subscribers"`
}

// SubscriberConfig is one entry under "sub", keyed by subscriber id.
type SubscriberConfig struct {
	InQueue string `json:"in_queue"`
}

// Deployment is the root of the configuration file.
type Deployment struct {
	Publishers  map[string]PublisherConfig  `json:"pub"`
	Subscribers map[string]SubscriberConfig `json:"sub"`
	Queues      map[string]QueueConfig      `json:"queues"`
}

// Load reads and parses a deployment configuration file.
func Load(path string) (*Deployment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pqerr.Config("config.Load", err)
	}
	var dep Deployment
	if err := json.Unmarshal(b, &dep); err != nil {
		return nil, pqerr.Config("config.Load", err)
	}
	return &dep, nil
}

// QueuePaths returns every queue directory path named by the deployment,
// in map-iteration order (callers that need determinism should sort).
func (d *Deployment) QueuePaths() []string {
	paths := make([]string, 0, len(d.Queues))
	for p := range d.Queues {
		paths = append(paths, p)
	}
	return paths
}

// ResolvePublisherQueue looks up the queue path and subscriber list a named
// publisher targets.
func (d *Deployment) ResolvePublisherQueue(pubID string) (path string, subscribers []string, err error) {
	pc, ok := d.Publishers[pubID]
	if !ok {
		return "", nil, pqerr.Config("config.ResolvePublisherQueue", fmt.Errorf("unknown publisher %q", pubID))
	}
	return pc.OutQueue, pc.Subscribers, nil
}

// ResolveSubscriberQueue looks up the queue path a named subscriber reads
// from.
func (d *Deployment) ResolveSubscriberQueue(subID string) (path string, err error) {
	sc, ok := d.Subscribers[subID]
	if !ok {
		return "", pqerr.Config("config.ResolveSubscriberQueue", fmt.Errorf("unknown subscriber %q", subID))
	}
	return sc.InQueue, nil
}

// HighWaterMarkOrDefault converts a queue entry's HighWaterMarkConfig into the
// schema.HighWaterMark the queue engine consumes, filling in documented defaults
// for zero-valued fields.
func (qc QueueConfig) HighWaterMarkOrDefault() schema.HighWaterMark {
	hwm := schema.HighWaterMark{
		MsgTimeoutSecs: qc.HighWaterMark.MsgTimeoutSecs,
		MaxMsgsNum:     qc.HighWaterMark.MaxMsgsNum,
		HWMDBSizeBytes: qc.HighWaterMark.HWMDBSizeBytes,
	}
	if hwm.MsgTimeoutSecs == 0 {
		hwm.MsgTimeoutSecs = DefaultMsgTimeoutSecs
	}
	if hwm.MaxMsgsNum == 0 {
		hwm.MaxMsgsNum = DefaultMaxMsgsNum
	}
	if hwm.HWMDBSizeBytes == 0 {
		hwm.HWMDBSizeBytes = DefaultHWMSizeBytes
	}
	return hwm
}

// StrategyOrDefault parses the configured strategy, or returns the
// documented default (prune_first) when unset.
func (qc QueueConfig) StrategyOrDefault() (schema.Strategy, error) {
	raw := qc.HighWaterMark.Strategy
	if raw == "" {
		return DefaultStrategy, nil
	}
	return schema.ParseStrategy(raw)
}
