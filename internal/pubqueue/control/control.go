// Package control implements the administrative operations:
// (re)initializing a queue's parameters, adding and removing subscribers,
// and the bulk clear/prune operations a deployment config file drives.
package control

import (
	"context"

	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"

	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
)

// Initialize writes a fresh queue's five parameter records and returns a
// ready Queue. The queue directory itself is expected to already exist —
// the Environment Factory creates it when opening the store — so this is
// purely the on-disk parameter bootstrap the design calls
// control.initialize.
func Initialize(db *pebblestore.DB, subscriberIDs []string, hwm schema.HighWaterMark, strategy schema.Strategy, deps queue.Deps) (*queue.Queue, error) {
	return queue.Initialize(db, subscriberIDs, hwm, strategy, deps)
}

// AddSubscriber creates a per-subscriber sub-database (lazily, by virtue of
// the key prefix scheme — no key needs to exist yet) and appends id to the
// cached and persisted subscriber set. New subscribers only see messages
// published after this call: existing messages are never retroactively
// fanned out to them.
func AddSubscriber(q *queue.Queue, id string) error {
	ids := q.SubscriberIDs()
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return q.SetSubscriberIDs(ids)
}

// RemoveSubscriber drops subscriber id's sub-database and decrements
// pending_db for every msg_id it held within one write transaction, then
// removes id from the subscriber set. The updated subscriber set is
// persisted by a second, separate commit; the two are not atomic.
func RemoveSubscriber(ctx context.Context, q *queue.Queue, id string) error {
	held, err := q.SubMsgIDs(id)
	if err != nil {
		return err
	}

	b := q.DB().NewIndexedBatch()
	defer b.Close()

	if err := queue.DropSubscriberDB(b, id, held); err != nil {
		return pqerr.Store("control.RemoveSubscriber", err)
	}
	for _, msgID := range held {
		if err := queue.DecrementPending(b, msgID); err != nil {
			return pqerr.Store("control.RemoveSubscriber", err)
		}
	}
	if err := q.DB().CommitBatch(ctx, b); err != nil {
		return pqerr.Store("control.RemoveSubscriber", err)
	}
	if err := q.RefreshGauges(); err != nil {
		return pqerr.Store("control.RemoveSubscriber", err)
	}

	remaining := make([]string, 0, len(q.SubscriberIDs()))
	for _, existing := range q.SubscriberIDs() {
		if existing != id {
			remaining = append(remaining, existing)
		}
	}
	return q.SetSubscriberIDs(remaining)
}

// ClearAllSubscribers empties every per-subscriber sub-database and zeroes
// pending_db for every still-tracked message, within one write
// transaction. It does not touch data_db/meta_db directly; the caller
// should follow up with Vacuum to reclaim the now-zero-pending messages.
func ClearAllSubscribers(ctx context.Context, q *queue.Queue) error {
	subs := q.SubscriberIDs()
	ids, err := q.AllMsgIDs()
	if err != nil {
		return err
	}

	b := q.DB().NewIndexedBatch()
	defer b.Close()

	for _, subID := range subs {
		held, err := q.SubMsgIDs(subID)
		if err != nil {
			return err
		}
		if err := queue.DropSubscriberDB(b, subID, held); err != nil {
			return pqerr.Store("control.ClearAllSubscribers", err)
		}
	}
	for _, msgID := range ids {
		if err := queue.ZeroPending(b, msgID); err != nil {
			return pqerr.Store("control.ClearAllSubscribers", err)
		}
	}
	if err := q.DB().CommitBatch(ctx, b); err != nil {
		return pqerr.Store("control.ClearAllSubscribers", err)
	}
	if err := q.RefreshGauges(); err != nil {
		return pqerr.Store("control.ClearAllSubscribers", err)
	}
	return nil
}

// PruneDanglingMessages runs vacuum step 1 only: reclaiming messages with
// zero remaining pending deliveries or a timed-out age. It does not run
// overflow pruning — that step only ever runs inline at the head of a
// publisher's write transaction or as part of a full Vacuum, never from
// an explicit admin call, so this never drops a live message just because
// the queue happens to be near its high-water mark.
func PruneDanglingMessages(ctx context.Context, q *queue.Queue) (int, error) {
	return q.ReclaimDangling(ctx)
}

// CheckQueueIsInitialized reports whether every required queue_db
// parameter record is present.
func CheckQueueIsInitialized(q *queue.Queue) bool {
	for _, p := range schema.RequiredParams {
		if _, err := q.DB().Get(schema.QueueParamKey(p)); err != nil {
			return false
		}
	}
	return true
}
