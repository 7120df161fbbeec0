// Package subscriber implements the scoped read-and-ack façade: a
// guarded handle that owns one in-flight message and pops it only on clean
// release, plus the timeout/retries poll loop receive synthesizes over the
// engine's non-blocking front.
package subscriber

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
)

// Subscriber receives messages from one per-subscriber sub-database.
type Subscriber struct {
	q      *queue.Queue
	id     string
	strict bool
}

// Option configures a Subscriber at construction.
type Option func(*Subscriber)

// WithStrict makes Front/Receive surface an empty sub-database as a hard
// error the caller must explicitly branch on, instead of the default typed
// "no message" sentinel (pqerr.ErrEmpty) most callers simply retry past.
func WithStrict() Option {
	return func(s *Subscriber) { s.strict = true }
}

// New builds a Subscriber bound to subscriber id's sub-database.
func New(q *queue.Queue, id string, opts ...Option) *Subscriber {
	s := &Subscriber{q: q, id: id}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the bound subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// Handle guards one in-flight message. Release (normal scope exit) pops
// the message; Discard (abnormal exit) leaves it queued for redelivery,
// preserving at-least-once delivery across subscriber crashes between
// front and pop.
type Handle struct {
	sub      *Subscriber
	payload  []byte
	resolved bool
}

// Payload returns the message bytes. Its backing slice must not be used
// after the handle is released or discarded.
func (h *Handle) Payload() []byte { return h.payload }

// Release pops the message. Safe to call at most once; subsequent calls
// are no-ops.
func (h *Handle) Release(ctx context.Context) error {
	if h.resolved {
		return nil
	}
	h.resolved = true
	return h.sub.q.Pop(ctx, h.sub.id)
}

// Discard marks the handle resolved without popping, leaving the message
// queued. Call this on any exit path that did not successfully process the
// payload.
func (h *Handle) Discard() {
	h.resolved = true
}

// Front opens a fresh read and returns a guarded Handle over the oldest
// queued message, or pqerr.ErrEmpty if the sub-database is empty. In strict
// mode an empty sub-database is reported as a StoreError that does not
// match pqerr.ErrEmpty under errors.Is.
func (s *Subscriber) Front() (*Handle, error) {
	payload, err := s.q.Front(s.id)
	if err != nil {
		if err == pqerr.ErrEmpty && s.strict {
			return nil, pqerr.Store("subscriber.Front", errors.New(pqerr.ErrEmpty.Error()))
		}
		return nil, err
	}
	return &Handle{sub: s, payload: payload}, nil
}

// WithMessage opens a Handle, invokes fn with its payload, and releases
// (pops) on fn returning nil or discards (skips the pop) on any error or
// panic, re-panicking after discarding. This is the idiomatic Go
// realization of the reference's context-managed scoped receive.
func (s *Subscriber) WithMessage(ctx context.Context, fn func(payload []byte) error) error {
	h, err := s.Front()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			h.Discard()
			panic(r)
		}
	}()

	if err := fn(h.Payload()); err != nil {
		h.Discard()
		return err
	}
	return h.Release(ctx)
}

// Receive polls Front up to retries times, sleeping timeout/retries
// between attempts, until a message arrives or the timeout elapses. It
// returns pqerr.ErrTimeout (not an error subscribers need to treat as
// exceptional) if no message arrived in time.
func (s *Subscriber) Receive(ctx context.Context, timeout time.Duration, retries int) (*Handle, error) {
	if retries <= 0 {
		retries = 1
	}
	interval := timeout / time.Duration(retries)
	deadline := time.Now().Add(timeout)

	for attempt := 1; ; attempt++ {
		h, err := s.Front()
		if err == nil {
			return h, nil
		}
		if err != pqerr.ErrEmpty {
			return nil, err
		}
		if attempt >= retries || !time.Now().Before(deadline) {
			return nil, pqerr.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ReceiveToTop drains every message for this subscriber, returning the
// payload of the most recent one; that message is popped as well, so no
// Handle is involved. Intended for subscribers that only care about the
// freshest snapshot rather than full history.
func (s *Subscriber) ReceiveToTop(ctx context.Context) ([]byte, error) {
	return s.q.ReceiveToTop(ctx, s.id)
}
