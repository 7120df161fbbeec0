package publisher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
	"github.com/rzbill/pubqueue/internal/pubqueue/subscriber"
	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"
)

func openTestQueue(t *testing.T, subscriberIDs []string) *queue.Queue {
	t.Helper()
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: filepath.Join(dir, "db")})
	if err != nil {
		t.Fatalf("pebblestore.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	q, err := queue.Initialize(db, subscriberIDs, schema.DefaultHighWaterMark(), schema.PruneFirst, queue.Deps{})
	if err != nil {
		t.Fatalf("queue.Initialize: %v", err)
	}
	return q
}

func TestSendDeliversToCapturedSubscribers(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	ctx := context.Background()
	pub := New(q, nil)

	id, err := pub.Send(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == "" {
		t.Fatalf("expected non-empty msg_id")
	}

	sub := subscriber.New(q, "sub1")
	h, err := sub.Front()
	if err != nil {
		t.Fatalf("Front: %v", err)
	}
	if string(h.Payload()) != "hello" {
		t.Fatalf("Payload() = %q", h.Payload())
	}
}

func TestSendManyAutosyncCommitsEachMessage(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	ctx := context.Background()
	pub := New(q, nil)

	ids, err := pub.SendMany(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("SendMany returned %d ids, want 3", len(ids))
	}

	count, err := q.CountMsgs()
	if err != nil {
		t.Fatalf("CountMsgs: %v", err)
	}
	if count != 3 {
		t.Fatalf("CountMsgs() = %d, want 3", count)
	}
}

func TestSendManyWithoutAutosyncBuffersUntilFlush(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	ctx := context.Background()
	pub := New(q, nil, WithAutosync(false))

	ids, err := pub.SendMany(ctx, [][]byte{[]byte("a"), []byte("b")})
	if err != nil {
		t.Fatalf("SendMany: %v", err)
	}
	if ids != nil {
		t.Fatalf("SendMany without autosync should return no ids yet, got %v", ids)
	}

	count, err := q.CountMsgs()
	if err != nil {
		t.Fatalf("CountMsgs: %v", err)
	}
	if count != 0 {
		t.Fatalf("CountMsgs() = %d before Flush, want 0", count)
	}

	flushed, err := pub.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(flushed) != 2 {
		t.Fatalf("Flush returned %d ids, want 2", len(flushed))
	}

	count, err = q.CountMsgs()
	if err != nil {
		t.Fatalf("CountMsgs: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountMsgs() after Flush = %d, want 2", count)
	}
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	pub := New(q, nil, WithAutosync(false))

	ids, err := pub.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if ids != nil {
		t.Fatalf("Flush with nothing pending should return nil, got %v", ids)
	}
}
