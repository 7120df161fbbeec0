// Package queue implements the queue engine: the transactional put/front/pop
// protocols and the vacuum policy that keep the on-disk schema (package
// schema) internally consistent.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/pubqueue/internal/pubqueue/metrics"
	"github.com/rzbill/pubqueue/internal/pubqueue/msgid"
	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"
	"github.com/rzbill/pubqueue/pkg/id"
	logpkg "github.com/rzbill/pubqueue/pkg/log"
)

// vacuumRunIDs tags each vacuum pass with a monotonic, process-local
// identifier so its reclamation and pruning log lines can be correlated
// without persisting anything new to the schema.
var vacuumRunIDs = id.NewGenerator()

// VacuumReport summarizes one vacuum pass. It is returned to the caller
// rather than persisted on disk: there is no reclamation/pruning counter
// in the on-disk schema, and adding one would be drift for a value only
// ever needed by the immediate caller, so a process-local report is the
// surfacing mechanism.
type VacuumReport struct {
	// Reclaimed counts messages removed because their pending count hit
	// zero or their age exceeded msg_timeout_secs.
	Reclaimed int
	// Pruned counts messages removed by high-water-mark overflow pruning,
	// independent of their pending count.
	Pruned int
}

func (r VacuumReport) merge(o VacuumReport) VacuumReport {
	return VacuumReport{Reclaimed: r.Reclaimed + o.Reclaimed, Pruned: r.Pruned + o.Pruned}
}

// Queue is the engine for a single on-disk queue directory.
type Queue struct {
	db  *pebblestore.DB
	log logpkg.Logger
	met *metrics.Metrics

	mu            sync.RWMutex
	subscriberIDs []string
	hwm           schema.HighWaterMark
	strategy      schema.Strategy
}

// Deps bundles the collaborators a Queue needs beyond the store itself.
type Deps struct {
	Logger  logpkg.Logger
	Metrics *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logpkg.NewLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil, "")
	}
	return d
}

// Open loads an existing queue's parameters from queue_db and returns a
// ready Queue. It returns a NotInitialized pqerr if any of the five
// parameter records is missing.
func Open(db *pebblestore.DB, deps Deps) (*Queue, error) {
	deps = deps.withDefaults()
	q := &Queue{db: db, log: deps.Logger, met: deps.Metrics}
	if err := q.loadParams(); err != nil {
		return nil, err
	}
	return q, nil
}

// Initialize writes the five parameter records for a fresh queue directory
// and returns a ready Queue. Re-initializing an already-initialized queue
// overwrites its parameters; callers that want idempotent semantics should
// check control.CheckQueueIsInitialized first.
func Initialize(db *pebblestore.DB, subscriberIDs []string, hwm schema.HighWaterMark, strategy schema.Strategy, deps Deps) (*Queue, error) {
	deps = deps.withDefaults()
	q := &Queue{db: db, log: deps.Logger, met: deps.Metrics, subscriberIDs: sortedCopy(subscriberIDs), hwm: hwm, strategy: strategy}
	if err := q.saveParams(); err != nil {
		return nil, err
	}
	return q, nil
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sortStrings(out)
	return out
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func (q *Queue) loadParams() error {
	get := func(name string) ([]byte, bool) {
		b, err := q.db.Get(schema.QueueParamKey(name))
		if err != nil {
			return nil, false
		}
		return b, true
	}

	for _, p := range schema.RequiredParams {
		if _, ok := get(p); !ok {
			return pqerr.NotInitialized("queue.Open")
		}
	}

	timeoutB, _ := get(schema.ParamMsgTimeoutSecs)
	timeout, err := schema.ParseInt64(timeoutB)
	if err != nil {
		return pqerr.Config("queue.Open:msg_timeout_secs", err)
	}
	maxMsgsB, _ := get(schema.ParamMaxMsgsNum)
	maxMsgs, err := schema.DecodeUint64(maxMsgsB)
	if err != nil {
		return pqerr.Config("queue.Open:max_msgs_num", err)
	}
	hwmSizeB, _ := get(schema.ParamHWMDBSizeBytes)
	hwmSize, err := schema.DecodeUint64(hwmSizeB)
	if err != nil {
		return pqerr.Config("queue.Open:hwm_db_size_bytes", err)
	}
	strategyB, _ := get(schema.ParamStrategy)
	strategy, err := schema.ParseStrategy(string(strategyB))
	if err != nil {
		return err
	}
	subsB, _ := get(schema.ParamSubscriberIDs)

	q.mu.Lock()
	q.hwm = schema.HighWaterMark{MsgTimeoutSecs: timeout, MaxMsgsNum: maxMsgs, HWMDBSizeBytes: hwmSize}
	q.strategy = strategy
	q.subscriberIDs = schema.DecodeSubscriberIDs(subsB)
	q.mu.Unlock()
	return nil
}

func (q *Queue) saveParams() error {
	q.mu.RLock()
	hwm, strategy, subs := q.hwm, q.strategy, append([]string(nil), q.subscriberIDs...)
	q.mu.RUnlock()

	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Set(schema.QueueParamKey(schema.ParamMsgTimeoutSecs), schema.FormatInt64(hwm.MsgTimeoutSecs), nil); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	if err := b.Set(schema.QueueParamKey(schema.ParamMaxMsgsNum), schema.EncodeUint64(hwm.MaxMsgsNum), nil); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	if err := b.Set(schema.QueueParamKey(schema.ParamHWMDBSizeBytes), schema.EncodeUint64(hwm.HWMDBSizeBytes), nil); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	if err := b.Set(schema.QueueParamKey(schema.ParamStrategy), []byte(strategy), nil); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	if err := b.Set(schema.QueueParamKey(schema.ParamSubscriberIDs), schema.EncodeSubscriberIDs(subs), nil); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	if err := q.db.CommitBatch(context.Background(), b); err != nil {
		return pqerr.Store("queue.saveParams", err)
	}
	return nil
}

// SubscriberIDs returns the current subscriber set in sorted order.
func (q *Queue) SubscriberIDs() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]string(nil), q.subscriberIDs...)
}

// HighWaterMark returns the current vacuum bounds.
func (q *Queue) HighWaterMark() schema.HighWaterMark {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.hwm
}

// Strategy returns the current overflow pruning strategy.
func (q *Queue) Strategy() schema.Strategy {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.strategy
}

// Put writes payload into data_db/meta_db/pending_db and every listed
// subscriber's sub-database under a single write transaction, running
// vacuum first in the same transaction. subscriberIDs is normally the
// queue's current SubscriberIDs(), captured by the Publisher façade at
// construction.
func (q *Queue) Put(ctx context.Context, payload []byte, subscriberIDs []string) (string, VacuumReport, error) {
	ids, report, err := q.putMany(ctx, [][]byte{payload}, subscriberIDs)
	if err != nil {
		return "", VacuumReport{}, err
	}
	return ids[0], report, nil
}

// PutMany writes every payload within one transaction, sharing one
// timestamp; each message gets its own UUID. There is no ordering promise
// across the batch beyond what UUID tie-breaking happens to produce.
func (q *Queue) PutMany(ctx context.Context, payloads [][]byte, subscriberIDs []string) ([]string, VacuumReport, error) {
	return q.putMany(ctx, payloads, subscriberIDs)
}

func (q *Queue) putMany(ctx context.Context, payloads [][]byte, subscriberIDs []string) ([]string, VacuumReport, error) {
	if len(payloads) == 0 {
		return nil, VacuumReport{}, nil
	}

	b := q.db.NewIndexedBatch()
	defer b.Close()

	report, err := q.vacuumLocked(b)
	if err != nil {
		return nil, VacuumReport{}, pqerr.Store("queue.Put:vacuum", err)
	}

	now := time.Now()
	ts := now.UnixMilli()
	ids := make([]string, len(payloads))
	for i, payload := range payloads {
		id := msgid.New(ts)
		ids[i] = id
		if err := b.Set(schema.DataKey(id), payload, nil); err != nil {
			return nil, VacuumReport{}, pqerr.Store("queue.Put:data", err)
		}
		if err := b.Set(schema.MetaKey(id), schema.EncodeUint64(uint64(now.Unix())), nil); err != nil {
			return nil, VacuumReport{}, pqerr.Store("queue.Put:meta", err)
		}
		if err := b.Set(schema.PendingKey(id), schema.EncodeUint64(uint64(len(subscriberIDs))), nil); err != nil {
			return nil, VacuumReport{}, pqerr.Store("queue.Put:pending", err)
		}
		for _, subID := range subscriberIDs {
			if err := b.Set(schema.SubKey(subID, id), nil, nil); err != nil {
				return nil, VacuumReport{}, pqerr.Store("queue.Put:sub", err)
			}
		}
	}

	if err := q.db.CommitBatch(ctx, b); err != nil {
		return nil, VacuumReport{}, pqerr.Store("queue.Put:commit", err)
	}

	q.met.Published.Add(float64(len(payloads)))
	q.log.Debug("published", logpkg.Int("count", len(payloads)), logpkg.Int("reclaimed", report.Reclaimed), logpkg.Int("pruned", report.Pruned))
	if err := q.RefreshGauges(); err != nil {
		q.log.Debug("refresh gauges", logpkg.Err(err))
	}
	return ids, report, nil
}

// Front returns the oldest queued payload for subscriber subID, or
// pqerr.ErrEmpty if its sub-database holds no message. If the sub-database
// points at a msg_id no longer present in data_db (already reclaimed by a
// concurrent vacuum), Front also returns pqerr.ErrEmpty so callers retry
// rather than treating it as a hard error.
func (q *Queue) Front(subID string) ([]byte, error) {
	id, ok, err := q.firstSubKey(subID)
	if err != nil {
		return nil, pqerr.Store("queue.Front", err)
	}
	if !ok {
		return nil, pqerr.ErrEmpty
	}
	payload, err := q.db.Get(schema.DataKey(id))
	if err != nil {
		if err == pebblestore.ErrNotFound {
			return nil, pqerr.ErrEmpty
		}
		return nil, pqerr.Store("queue.Front", err)
	}
	return payload, nil
}

func (q *Queue) firstSubKey(subID string) (string, bool, error) {
	prefix := schema.SubPrefix(subID)
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return "", false, err
	}
	defer it.Close()

	if !it.First() {
		return "", false, nil
	}
	return schema.MsgIDFromSubKey(subID, it.Key()), true, nil
}

// Pop removes the oldest queued entry for subscriber subID and decrements
// pending_db for that message, floored at zero. It is a no-op, not an
// error, if the sub-database is empty. data_db and meta_db entries are
// left for vacuum to reclaim once pending_db reaches zero.
func (q *Queue) Pop(ctx context.Context, subID string) error {
	id, ok, err := q.firstSubKey(subID)
	if err != nil {
		return pqerr.Store("queue.Pop", err)
	}
	if !ok {
		return nil
	}

	b := q.db.NewIndexedBatch()
	defer b.Close()

	if err := b.Delete(schema.SubKey(subID, id), nil); err != nil {
		return pqerr.Store("queue.Pop", err)
	}
	if err := decrementPending(b, id); err != nil {
		return pqerr.Store("queue.Pop", err)
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return pqerr.Store("queue.Pop", err)
	}
	q.met.Popped.Inc()
	if err := q.RefreshGauges(); err != nil {
		q.log.Debug("refresh gauges", logpkg.Err(err))
	}
	return nil
}

func decrementPending(b *pebble.Batch, id string) error {
	key := schema.PendingKey(id)
	val, closer, err := b.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil
		}
		return err
	}
	count, parseErr := schema.DecodeUint64(val)
	closer.Close()
	if parseErr != nil {
		return parseErr
	}
	if count > 0 {
		count--
	}
	return b.Set(key, schema.EncodeUint64(count), nil)
}

// ReceiveToTop pops every queued message for subID except the most recent
// one, reads that last payload via Front, then pops it too, leaving the
// sub-database empty. Intended for subscribers that only care about the
// freshest state snapshot.
func (q *Queue) ReceiveToTop(ctx context.Context, subID string) ([]byte, error) {
	ids, err := q.subKeysInOrder(subID)
	if err != nil {
		return nil, pqerr.Store("queue.ReceiveToTop", err)
	}
	if len(ids) == 0 {
		return nil, pqerr.ErrEmpty
	}
	for range ids[:len(ids)-1] {
		if err := q.Pop(ctx, subID); err != nil {
			return nil, err
		}
	}
	payload, err := q.Front(subID)
	if err != nil {
		return nil, err
	}
	if err := q.Pop(ctx, subID); err != nil {
		return nil, err
	}
	return payload, nil
}

func (q *Queue) subKeysInOrder(subID string) ([]string, error) {
	prefix := schema.SubPrefix(subID)
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for it.First(); it.Valid(); it.Next() {
		ids = append(ids, schema.MsgIDFromSubKey(subID, it.Key()))
	}
	return ids, nil
}

// CountMsgs returns the number of entries in meta_db.
func (q *Queue) CountMsgs() (int, error) {
	return q.countPrefix(schema.MetaPrefix())
}

func (q *Queue) countPrefix(prefix []byte) (int, error) {
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return 0, pqerr.Store("queue.countPrefix", err)
	}
	defer it.Close()

	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}

// RefreshGauges recomputes the point-in-time Pending/MsgCount gauges from
// meta_db and pending_db and publishes them to Metrics. Callers that commit
// a batch outside the Queue's own methods (the control package's
// subscriber operations) call this afterward so the gauges stay current.
func (q *Queue) RefreshGauges() error {
	count, err := q.CountMsgs()
	if err != nil {
		return err
	}
	pending, err := q.sumPending()
	if err != nil {
		return err
	}
	q.met.MsgCount.Set(float64(count))
	q.met.Pending.Set(float64(pending))
	return nil
}

func (q *Queue) sumPending() (uint64, error) {
	prefix := schema.PendingPrefix()
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return 0, pqerr.Store("queue.sumPending", err)
	}
	defer it.Close()

	var total uint64
	for it.First(); it.Valid(); it.Next() {
		count, err := schema.DecodeUint64(it.Value())
		if err != nil {
			continue
		}
		total += count
	}
	return total, nil
}

// CheckSize returns an approximate on-disk size in bytes for data_db plus
// meta_db, the KVS-level proxy for "current data size" used by overflow
// pruning.
func (q *Queue) CheckSize() (uint64, error) {
	dataSize, err := q.db.EstimateDiskUsage(schema.DataPrefix(), schema.PrefixUpperBound(schema.DataPrefix()))
	if err != nil {
		return 0, pqerr.Store("queue.CheckSize", err)
	}
	metaSize, err := q.db.EstimateDiskUsage(schema.MetaPrefix(), schema.PrefixUpperBound(schema.MetaPrefix()))
	if err != nil {
		return 0, pqerr.Store("queue.CheckSize", err)
	}
	return dataSize + metaSize, nil
}

// Vacuum runs a standalone dangling-reclamation-plus-overflow-pruning pass
// in its own write transaction. Put runs the same logic inline at the head
// of every publisher transaction; Vacuum exists for scheduled maintenance
// that wants both phases. Administrative callers that only want dangling
// reclamation (prune-dangling) should use ReclaimDangling instead.
func (q *Queue) Vacuum(ctx context.Context) (VacuumReport, error) {
	b := q.db.NewIndexedBatch()
	defer b.Close()

	report, err := q.vacuumLocked(b)
	if err != nil {
		return VacuumReport{}, pqerr.Store("queue.Vacuum", err)
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return VacuumReport{}, pqerr.Store("queue.Vacuum", err)
	}
	if err := q.RefreshGauges(); err != nil {
		q.log.Debug("refresh gauges", logpkg.Err(err))
	}
	return report, nil
}

// ReclaimDangling runs vacuum step 1 alone, in its own write transaction,
// without the overflow-pruning step Vacuum bundles with it. This is the
// entry point for an explicit "just clean up dangling messages" admin call
// (prune-dangling): overflow pruning only ever runs inline at the head of
// a publisher's write transaction (Put) or as part of a full Vacuum, never
// on its own, so an operator asking only for dangling reclamation never
// has live, not-yet-delivered messages dropped out from under them.
func (q *Queue) ReclaimDangling(ctx context.Context) (int, error) {
	runID := vacuumRunIDs.Next().String()

	b := q.db.NewIndexedBatch()
	defer b.Close()

	reclaimed, err := q.reclaimDangling(b)
	if err != nil {
		return 0, pqerr.Store("queue.ReclaimDangling", err)
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return 0, pqerr.Store("queue.ReclaimDangling", err)
	}
	if reclaimed > 0 {
		q.met.Reclaimed.Add(float64(reclaimed))
		q.log.Debug("reclaim_dangling", logpkg.Str("run_id", runID), logpkg.Int("reclaimed", reclaimed))
	}
	if err := q.RefreshGauges(); err != nil {
		q.log.Debug("refresh gauges", logpkg.Err(err))
	}
	return reclaimed, nil
}

// vacuumLocked performs both vacuum phases against an already-open indexed
// batch, letting callers fold it into a larger transaction (Put) or commit
// it standalone (Vacuum). It must run against an indexed batch so reads see
// the batch's own pending mutations layered over the last committed state.
func (q *Queue) vacuumLocked(b *pebble.Batch) (VacuumReport, error) {
	runID := vacuumRunIDs.Next().String()

	reclaimed, err := q.reclaimDangling(b)
	if err != nil {
		return VacuumReport{}, err
	}
	pruned, err := q.pruneOverflow(b)
	if err != nil {
		return VacuumReport{}, err
	}
	report := VacuumReport{Reclaimed: reclaimed, Pruned: pruned}
	if reclaimed > 0 {
		q.met.Reclaimed.Add(float64(reclaimed))
	}
	if pruned > 0 {
		q.met.Pruned.Add(float64(pruned))
	}
	if reclaimed > 0 || pruned > 0 {
		q.log.Debug("vacuum", logpkg.Str("run_id", runID), logpkg.Int("reclaimed", reclaimed), logpkg.Int("pruned", pruned))
	}
	return report, nil
}

// reclaimDangling implements vacuum step 1: union of zero-pending messages
// (via pending_db) and timed-out messages (via meta_db — not pending_db;
// the reference source's bug conflated the two, which this implementation
// must not reproduce), deleted from every sub-database that can hold them.
func (q *Queue) reclaimDangling(b *pebble.Batch) (int, error) {
	dangling := map[string]struct{}{}

	zeroPending, err := scanZeroPending(b)
	if err != nil {
		return 0, err
	}
	for _, id := range zeroPending {
		dangling[id] = struct{}{}
	}

	timeoutSecs := q.HighWaterMark().MsgTimeoutSecs
	now := time.Now()
	timedOut, err := scanTimedOut(b, timeoutSecs, now)
	if err != nil {
		return 0, err
	}
	for _, id := range timedOut {
		dangling[id] = struct{}{}
	}

	if len(dangling) == 0 {
		return 0, nil
	}

	subs := q.SubscriberIDs()
	for id := range dangling {
		if err := deleteMessage(b, id, subs); err != nil {
			return 0, err
		}
	}
	return len(dangling), nil
}

func scanZeroPending(b *pebble.Batch) ([]string, error) {
	prefix := schema.PendingPrefix()
	it, err := b.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for it.First(); it.Valid(); it.Next() {
		count, err := schema.DecodeUint64(it.Value())
		if err != nil {
			continue
		}
		if count == 0 {
			ids = append(ids, schema.MsgIDFromPrefixedKey(it.Key(), prefix))
		}
	}
	return ids, nil
}

func scanTimedOut(b *pebble.Batch, timeoutSecs int64, now time.Time) ([]string, error) {
	if timeoutSecs <= 0 {
		return nil, nil
	}
	prefix := schema.MetaPrefix()
	it, err := b.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for it.First(); it.Valid(); it.Next() {
		createdAtSec, err := schema.DecodeUint64(it.Value())
		if err != nil {
			continue
		}
		age := now.Unix() - int64(createdAtSec)
		if age > timeoutSecs {
			ids = append(ids, schema.MsgIDFromPrefixedKey(it.Key(), prefix))
		}
	}
	return ids, nil
}

func deleteMessage(b *pebble.Batch, id string, subs []string) error {
	if err := b.Delete(schema.PendingKey(id), nil); err != nil {
		return err
	}
	if err := b.Delete(schema.MetaKey(id), nil); err != nil {
		return err
	}
	if err := b.Delete(schema.DataKey(id), nil); err != nil {
		return err
	}
	for _, subID := range subs {
		if err := b.Delete(schema.SubKey(subID, id), nil); err != nil {
			return err
		}
	}
	return nil
}

// pruneOverflow implements vacuum step 2: if meta_db's entry count or
// approximate on-disk size breaches the configured high-water mark, delete
// the configured strategy's half of meta_db's keys (by key order), from
// every sub-database that can hold them, ignoring pending counts.
func (q *Queue) pruneOverflow(b *pebble.Batch) (int, error) {
	hwm := q.HighWaterMark()

	count, err := countPrefixInBatch(b, schema.MetaPrefix())
	if err != nil {
		return 0, err
	}

	breach := uint64(count) >= hwm.MaxMsgsNum
	if !breach && hwm.HWMDBSizeBytes > 0 {
		size, err := q.CheckSize()
		if err != nil {
			return 0, err
		}
		breach = size >= hwm.HWMDBSizeBytes
	}
	if !breach || count == 0 {
		return 0, nil
	}

	n := (count + 1) / 2
	ids, err := pruneHalfIDs(b, q.Strategy(), n)
	if err != nil {
		return 0, err
	}

	subs := q.SubscriberIDs()
	for _, id := range ids {
		if err := deleteMessage(b, id, subs); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func countPrefixInBatch(b *pebble.Batch, prefix []byte) (int, error) {
	it, err := b.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}

// pruneHalfIDs walks meta_db in key order and collects the n keys to
// discard under strategy: prune_first walks forward from the start
// (oldest, lexicographically smallest), prune_last walks backward from the
// end (newest, lexicographically largest).
func pruneHalfIDs(b *pebble.Batch, strategy schema.Strategy, n int) ([]string, error) {
	prefix := schema.MetaPrefix()
	it, err := b.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	ids := make([]string, 0, n)
	switch strategy {
	case schema.PruneLast:
		for it.Last(); it.Valid() && len(ids) < n; it.Prev() {
			ids = append(ids, schema.MsgIDFromPrefixedKey(it.Key(), prefix))
		}
	default:
		for it.First(); it.Valid() && len(ids) < n; it.Next() {
			ids = append(ids, schema.MsgIDFromPrefixedKey(it.Key(), prefix))
		}
	}
	return ids, nil
}

// SetSubscriberIDs overwrites the cached subscriber set and persists it.
// Used by the control plane's AddSubscriber/RemoveSubscriber operations,
// which need exclusive access to both the cache and
// queue_db.subscriber_ids.
func (q *Queue) SetSubscriberIDs(ids []string) error {
	q.mu.Lock()
	q.subscriberIDs = sortedCopy(ids)
	q.mu.Unlock()
	return q.saveParams()
}

// SubMsgIDs returns every msg_id currently queued for subscriber subID, in
// delivery order.
func (q *Queue) SubMsgIDs(subID string) ([]string, error) {
	return q.subKeysInOrder(subID)
}

// DropSubscriberDB deletes every key in subscriber subID's sub-database
// within batch b, without touching pending_db/meta_db/data_db. Callers are
// responsible for decrementing pending_db for any msg_id the sub-database
// held, so a dropped subscriber's outstanding deliveries don't keep those
// messages alive forever.
func DropSubscriberDB(b *pebble.Batch, subID string, ids []string) error {
	for _, id := range ids {
		if err := b.Delete(schema.SubKey(subID, id), nil); err != nil {
			return err
		}
	}
	return nil
}

// DecrementPending decrements pending_db[id] within batch b, floored at
// zero, exported for the control plane's RemoveSubscriber.
func DecrementPending(b *pebble.Batch, id string) error {
	return decrementPending(b, id)
}

// ZeroPending sets pending_db[id] to zero within batch b, exported for the
// control plane's ClearAllSubscribers.
func ZeroPending(b *pebble.Batch, id string) error {
	return b.Set(schema.PendingKey(id), schema.EncodeUint64(0), nil)
}

// AllMsgIDs returns every msg_id currently present in meta_db.
func (q *Queue) AllMsgIDs() ([]string, error) {
	prefix := schema.MetaPrefix()
	it, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: schema.PrefixUpperBound(prefix)})
	if err != nil {
		return nil, pqerr.Store("queue.AllMsgIDs", err)
	}
	defer it.Close()

	var ids []string
	for it.First(); it.Valid(); it.Next() {
		ids = append(ids, schema.MsgIDFromPrefixedKey(it.Key(), prefix))
	}
	return ids, nil
}

// DB exposes the underlying store for the control plane, which needs raw
// batch access beyond the engine's public operations (dropping an entire
// per-subscriber sub-database, zeroing pending_db in bulk).
func (q *Queue) DB() *pebblestore.DB { return q.db }

// Logger exposes the queue's logger for façades built on top of it.
func (q *Queue) Logger() logpkg.Logger { return q.log }

// Metrics exposes the queue's metrics set for façades built on top of it.
func (q *Queue) Metrics() *metrics.Metrics { return q.met }

// String implements fmt.Stringer for diagnostic logging.
func (q *Queue) String() string {
	return fmt.Sprintf("Queue{subscribers=%v}", q.SubscriberIDs())
}
