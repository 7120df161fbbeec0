// Package runtime implements the Environment Factory: a
// process-wide registry that enforces at most one live Environment (and
// hence at most one open KVS handle) per queue directory per process.
// Forking the process or opening a second Environment for the same
// directory breaks the underlying store's lock discipline, so a second
// Open for an already-registered path fails with EnvironmentConflict
// rather than silently sharing or duplicating the handle.
package runtime

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rzbill/pubqueue/internal/pubqueue/metrics"
	"github.com/rzbill/pubqueue/internal/pubqueue/pqerr"
	"github.com/rzbill/pubqueue/internal/pubqueue/queue"
	"github.com/rzbill/pubqueue/internal/pubqueue/schema"
	pebblestore "github.com/rzbill/pubqueue/internal/storage/pebble"
	logpkg "github.com/rzbill/pubqueue/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryMu sync.Mutex
	registry   = map[string]*Environment{}
)

// Options configures Open/Initialize.
type Options struct {
	// DataDir is the queue directory. It is created if absent.
	DataDir string
	// Fsync controls the store's durability policy.
	Fsync pebblestore.FsyncMode
	// Logger is used by the queue engine and façades built on this
	// Environment. Defaults to a console JSON logger at info level.
	Logger logpkg.Logger
	// MetricsRegisterer registers this Environment's Prometheus series.
	// A nil registerer (the default) builds unregistered metrics, useful
	// for tests and for processes that already export a custom registry.
	MetricsRegisterer prometheus.Registerer
}

// Environment is the per-process handle to one on-disk queue. Construct
// one via Open or Initialize; both enforce the one-per-process-per-path
// rule.
type Environment struct {
	path string
	db   *pebblestore.DB
	q    *queue.Queue
	log  logpkg.Logger
}

func canonicalize(dataDir string) (string, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func register(path string, env *Environment) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[path]; exists {
		return pqerr.EnvironmentConflict(path)
	}
	registry[path] = env
	return nil
}

func unregister(path string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, path)
}

// Lookup returns the already-open Environment for dataDir in this process,
// if any.
func Lookup(dataDir string) (*Environment, bool) {
	path, err := canonicalize(dataDir)
	if err != nil {
		return nil, false
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	env, ok := registry[path]
	return env, ok
}

func openStore(opts Options) (string, *pebblestore.DB, error) {
	path, err := canonicalize(opts.DataDir)
	if err != nil {
		return "", nil, pqerr.Config("runtime.Open", err)
	}
	if _, exists := Lookup(path); exists {
		return "", nil, pqerr.EnvironmentConflict(path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", nil, pqerr.Store("runtime.Open", err)
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: path, Fsync: opts.Fsync})
	if err != nil {
		return "", nil, pqerr.Store("runtime.Open", err)
	}
	return path, db, nil
}

func (opts Options) logger() logpkg.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return logpkg.NewLogger()
}

// Open opens an already-initialized queue directory. It fails with a
// NotInitialized pqerr if the queue's parameter records are missing, and
// with EnvironmentConflict if this process already holds an Environment
// for the same canonicalized path.
func Open(opts Options) (*Environment, error) {
	path, db, err := openStore(opts)
	if err != nil {
		return nil, err
	}
	log := opts.logger().WithComponent("pubqueue").WithField("path", path)

	q, err := queue.Open(db, queue.Deps{Logger: log, Metrics: metrics.New(opts.MetricsRegisterer, path)})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	env := &Environment{path: path, db: db, q: q, log: log}
	if err := register(path, env); err != nil {
		_ = db.Close()
		return nil, err
	}
	return env, nil
}

// Initialize creates (or re-creates) a queue directory's parameter records
// and returns a ready Environment. Equivalent to control.initialize plus
// the Environment construction that wraps it.
func Initialize(opts Options, subscriberIDs []string, hwm schema.HighWaterMark, strategy schema.Strategy) (*Environment, error) {
	path, db, err := openStore(opts)
	if err != nil {
		return nil, err
	}
	log := opts.logger().WithComponent("pubqueue").WithField("path", path)

	q, err := queue.Initialize(db, subscriberIDs, hwm, strategy, queue.Deps{Logger: log, Metrics: metrics.New(opts.MetricsRegisterer, path)})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	env := &Environment{path: path, db: db, q: q, log: log}
	if err := register(path, env); err != nil {
		_ = db.Close()
		return nil, err
	}
	return env, nil
}

// Close closes the underlying store and releases this path's registry
// slot, allowing a future Open/Initialize for the same directory in this
// process.
func (e *Environment) Close() error {
	unregister(e.path)
	return e.db.Close()
}

// Queue exposes the Environment's queue engine handle.
func (e *Environment) Queue() *queue.Queue { return e.q }

// Path returns the canonicalized queue directory this Environment owns.
func (e *Environment) Path() string { return e.path }

// Logger exposes the Environment's logger.
func (e *Environment) Logger() logpkg.Logger { return e.log }

// CheckHealth performs a cheap liveness probe against the store.
func (e *Environment) CheckHealth(ctx context.Context) error {
	_ = ctx
	it, err := e.db.NewIter(nil)
	if err != nil {
		return pqerr.Store("runtime.CheckHealth", err)
	}
	return it.Close()
}
