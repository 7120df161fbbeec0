package subscriber

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
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

func TestFrontReturnsErrEmptyOnEmptyQueue(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	sub := New(q, "sub1")

	if _, err := sub.Front(); err != pqerr.ErrEmpty {
		t.Fatalf("Front() = %v, want ErrEmpty", err)
	}
}

func TestStrictModeWrapsEmptyAsHardError(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	sub := New(q, "sub1", WithStrict())

	_, err := sub.Front()
	if err == nil {
		t.Fatalf("expected an error in strict mode on an empty queue")
	}
	if errors.Is(err, pqerr.ErrEmpty) {
		t.Fatalf("strict mode should not expose the bare ErrEmpty sentinel: %v", err)
	}
	if !pqerr.Is(err, pqerr.KindStore) {
		t.Fatalf("expected a StoreError kind, got %v", err)
	}
}

func TestWithMessageReleasesOnSuccess(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t, []string{"sub1"})
	if _, _, err := q.Put(ctx, []byte("hello"), q.SubscriberIDs()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sub := New(q, "sub1")
	var got string
	err := sub.WithMessage(ctx, func(payload []byte) error {
		got = string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("WithMessage: %v", err)
	}
	if got != "hello" {
		t.Fatalf("payload = %q", got)
	}

	if _, err := sub.Front(); err != pqerr.ErrEmpty {
		t.Fatalf("expected message popped after successful WithMessage, got %v", err)
	}
}

func TestWithMessageDiscardsOnHandlerError(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t, []string{"sub1"})
	if _, _, err := q.Put(ctx, []byte("hello"), q.SubscriberIDs()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sub := New(q, "sub1")
	handlerErr := errors.New("processing failed")
	err := sub.WithMessage(ctx, func(payload []byte) error {
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("WithMessage error = %v, want %v", err, handlerErr)
	}

	// Message must still be queued for redelivery.
	h, err := sub.Front()
	if err != nil {
		t.Fatalf("Front after discard: %v", err)
	}
	if string(h.Payload()) != "hello" {
		t.Fatalf("Payload() = %q", h.Payload())
	}
}

func TestReceiveTimesOutWhenNothingArrives(t *testing.T) {
	q := openTestQueue(t, []string{"sub1"})
	sub := New(q, "sub1")

	_, err := sub.Receive(context.Background(), 30*time.Millisecond, 3)
	if err != pqerr.ErrTimeout {
		t.Fatalf("Receive() = %v, want ErrTimeout", err)
	}
}

func TestReceiveReturnsImmediatelyWhenMessageAlreadyQueued(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t, []string{"sub1"})
	if _, _, err := q.Put(ctx, []byte("hi"), q.SubscriberIDs()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sub := New(q, "sub1")
	h, err := sub.Receive(ctx, time.Second, 10)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(h.Payload()) != "hi" {
		t.Fatalf("Payload() = %q", h.Payload())
	}
}

func TestReleaseIsSafeToCallTwice(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t, []string{"sub1"})
	if _, _, err := q.Put(ctx, []byte("hi"), q.SubscriberIDs()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sub := New(q, "sub1")
	h, err := sub.Front()
	if err != nil {
		t.Fatalf("Front: %v", err)
	}
	if err := h.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := h.Release(ctx); err != nil {
		t.Fatalf("second Release should be a no-op, got: %v", err)
	}
}
