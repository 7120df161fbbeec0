// Package publisher implements the thin façade over the queue engine
// a Publisher holds the subscriber-id list captured at
// construction and exposes send/send_many with an autosync toggle.
package publisher

import (
	"context"

	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
)

// Publisher sends payloads to a fixed set of subscribers captured at
// construction. It does not observe later AddSubscriber/RemoveSubscriber
// calls against the underlying Queue — a deployment that wants publishers
// to track subscriber changes should rebuild the Publisher.
type Publisher struct {
	q             *queue.Queue
	subscriberIDs []string
	autosync      bool

	pending [][]byte
}

// Option configures a Publisher at construction.
type Option func(*Publisher)

// WithAutosync toggles whether SendMany commits once per payload (true,
// the reference default) or batches every queued payload into a single
// write transaction on the next Flush (false).
func WithAutosync(autosync bool) Option {
	return func(p *Publisher) { p.autosync = autosync }
}

// New builds a Publisher over q, targeting subscriberIDs. If subscriberIDs
// is nil, the Queue's current subscriber set is captured instead.
func New(q *queue.Queue, subscriberIDs []string, opts ...Option) *Publisher {
	ids := subscriberIDs
	if ids == nil {
		ids = q.SubscriberIDs()
	}
	p := &Publisher{q: q, subscriberIDs: ids, autosync: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send publishes a single payload, returning its assigned msg_id.
func (p *Publisher) Send(ctx context.Context, payload []byte) (string, error) {
	id, _, err := p.q.Put(ctx, payload, p.subscriberIDs)
	return id, err
}

// SendMany publishes a batch of payloads. When autosync is enabled (the
// default) each payload commits as its own write transaction, matching
// put's per-message atomicity. When disabled, payloads accumulate in an
// in-memory buffer until Flush, which commits them as one transaction
// sharing a single timestamp (put_many_flush_once).
func (p *Publisher) SendMany(ctx context.Context, payloads [][]byte) ([]string, error) {
	if p.autosync {
		ids := make([]string, 0, len(payloads))
		for _, payload := range payloads {
			id, err := p.Send(ctx, payload)
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	p.pending = append(p.pending, payloads...)
	return nil, nil
}

// Flush commits every payload buffered by SendMany while autosync is
// disabled, as a single write transaction.
func (p *Publisher) Flush(ctx context.Context) ([]string, error) {
	if len(p.pending) == 0 {
		return nil, nil
	}
	ids, _, err := p.q.PutMany(ctx, p.pending, p.subscriberIDs)
	p.pending = nil
	return ids, err
}
