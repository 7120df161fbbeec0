package runtime

import (
	"context"
	"testing"

	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"
)

func TestInitializeOpenCloseHealth(t *testing.T) {
	dir := t.TempDir()
	env, err := Initialize(Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways}, []string{"sub"}, schema.DefaultHighWaterMark(), schema.PruneFirst)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer env.Close()

	if err := env.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if got := env.Queue().SubscriberIDs(); len(got) != 1 || got[0] != "sub" {
		t.Fatalf("subscriber ids = %v", got)
	}
}

func TestSecondOpenInSameProcessConflicts(t *testing.T) {
	dir := t.TempDir()
	env, err := Initialize(Options{DataDir: dir}, []string{"sub"}, schema.DefaultHighWaterMark(), schema.PruneFirst)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer env.Close()

	if _, err := Open(Options{DataDir: dir}); err == nil {
		t.Fatalf("expected EnvironmentConflict on second open")
	}
}

func TestCloseAllowsReopen(t *testing.T) {
	dir := t.TempDir()
	env, err := Initialize(Options{DataDir: dir}, []string{"sub"}, schema.DefaultHighWaterMark(), schema.PruneFirst)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := env.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	defer reopened.Close()
}

func TestLookupFindsRegisteredEnvironment(t *testing.T) {
	dir := t.TempDir()
	env, err := Initialize(Options{DataDir: dir}, nil, schema.DefaultHighWaterMark(), schema.PruneFirst)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer env.Close()

	found, ok := Lookup(dir)
	if !ok || found != env {
		t.Fatalf("lookup did not find registered environment")
	}
}
