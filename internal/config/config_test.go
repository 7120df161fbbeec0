package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
)

const sampleConfig = `{
  "pub": {
    "alerts": {"out_queue": "/tmp/q", "subscribers": ["sub1", "sub2"]}
  },
  "sub": {
    "sub1": {"in_queue": "/tmp/q"}
  },
  "queues": {
    "/tmp/q": {
      "max_reader_num": 256,
      "max_db_num": 16,
      "max_db_size_bytes": 1048576,
      "subscribers": ["sub1", "sub2"],
      "high-water-mark": {
        "MSG_TIMEOUT_SECS": 60,
        "MAX_MSGS_NUM": 128,
        "HWM_LMDB_SIZE_BYTES": 2048,
        "strategy": "prune_last"
      }
    }
  }
}`

func TestLoadDeployment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pubqueue.json")
	if err := os.WriteFile(file, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dep, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	path, subs, err := dep.ResolvePublisherQueue("alerts")
	if err != nil {
		t.Fatalf("resolve publisher: %v", err)
	}
	if path != "/tmp/q" || len(subs) != 2 {
		t.Fatalf("publisher resolution = %q %v", path, subs)
	}

	subPath, err := dep.ResolveSubscriberQueue("sub1")
	if err != nil {
		t.Fatalf("resolve subscriber: %v", err)
	}
	if subPath != "/tmp/q" {
		t.Fatalf("subscriber path = %q", subPath)
	}

	qc := dep.Queues["/tmp/q"]
	if qc.MaxReaderNum != 256 {
		t.Fatalf("max_reader_num = %d", qc.MaxReaderNum)
	}
	strategy, err := qc.StrategyOrDefault()
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if strategy != schema.PruneLast {
		t.Fatalf("strategy = %v, want prune_last", strategy)
	}
	hwm := qc.HighWaterMarkOrDefault()
	if hwm.MaxMsgsNum != 128 {
		t.Fatalf("max_msgs_num = %d", hwm.MaxMsgsNum)
	}
}

func TestResolveUnknownPublisherFails(t *testing.T) {
	dep := &Deployment{}
	if _, _, err := dep.ResolvePublisherQueue("missing"); err == nil {
		t.Fatalf("expected error for unknown publisher")
	}
}

func TestQueueConfigDefaultsFillZeroFields(t *testing.T) {
	qc := QueueConfig{}
	hwm := qc.HighWaterMarkOrDefault()
	if hwm.MsgTimeoutSecs != DefaultMsgTimeoutSecs {
		t.Fatalf("msg_timeout_secs default = %d", hwm.MsgTimeoutSecs)
	}
	if hwm.MaxMsgsNum != DefaultMaxMsgsNum {
		t.Fatalf("max_msgs_num default = %d", hwm.MaxMsgsNum)
	}
	if hwm.HWMDBSizeBytes != DefaultHWMSizeBytes {
		t.Fatalf("hwm_db_size_bytes default = %d", hwm.HWMDBSizeBytes)
	}

	strategy, err := qc.StrategyOrDefault()
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	if strategy != DefaultStrategy {
		t.Fatalf("strategy default = %v", strategy)
	}
}

func TestLoadMissingFileReturnsConfigError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
