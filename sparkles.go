// Package sparkles is the public facade: a process-wide tracing
// instance built from the globalstore, recorder, worker, and sink
// packages, exposing an implicit per-goroutine API: InstantEvent and
// RangeEventStart take no recorder argument, the current thread is
// implicit.
//
// Go has no thread-local storage, so "current thread" here means
// "current goroutine", keyed by github.com/petermattis/goid. Treat a
// Sparkles-instrumented goroutine the way a traced OS thread is
// treated elsewhere: call SetCurrentThreadName once near its start,
// and make sure it doesn't outlive Finalize.
package sparkles

import (
	"errors"
	"sync"

	"github.com/petermattis/goid"

	"github.com/sparkles-rs/sparkles/globalstore"
	"github.com/sparkles-rs/sparkles/recorder"
	"github.com/sparkles-rs/sparkles/sink"
	"github.com/sparkles-rs/sparkles/worker"
)

var (
	initMu sync.Mutex
	inst   *instance
)

// instance is the single live Sparkles process state. There is at
// most one per process, guarded by initMu.
type instance struct {
	cfg   Config
	store *globalstore.Store
	chain *sink.Chain
	wrk   *worker.Worker

	recorders sync.Map // goroutine id (int64) -> *recorder.Recorder

	doneOnce sync.Once
}

// FinalizeGuard is returned by Init. Close (once) flushes every
// recorder, drains the store, and shuts the sender worker down
// cleanly, emitting the terminal Goodbye packet.
//
// FinalizeGuard plays the role an RAII guard would play on drop; Go
// has no destructors, so callers must call Close explicitly, typically
// via `defer`.
type FinalizeGuard struct {
	in *instance
}

// Init starts a Sparkles instance for the process: it allocates the
// global store, starts the sender worker goroutine, and returns a
// FinalizeGuard the caller must Close before exit. Init is not
// reentrant: calling it again before the previous guard is closed
// returns an error.
func Init(cfg Config) (*FinalizeGuard, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if inst != nil {
		return nil, errors.New("sparkles: already initialized; close the previous FinalizeGuard first")
	}
	if cfg.Provider == nil {
		return nil, errors.New("sparkles: Config.Provider must not be nil")
	}

	store := globalstore.New(cfg.Store)
	chain := sink.NewChain(cfg.Sinks...)
	in := &instance{cfg: cfg, store: store, chain: chain}
	in.wrk = worker.New(store, cfg.Provider, chain, in.flushAll)

	inst = in
	go in.wrk.Run(worker.Info{ProcessName: cfg.ProcessName})

	return &FinalizeGuard{in: in}, nil
}

// Close finalizes the Sparkles instance: it flushes every recorder,
// waits for the sender worker to drain and close its sinks, and
// allows a subsequent Init call. Close is idempotent.
func (g *FinalizeGuard) Close() {
	g.in.doneOnce.Do(func() {
		g.in.wrk.Stop()
		initMu.Lock()
		if inst == g.in {
			inst = nil
		}
		initMu.Unlock()
	})
}

// Finalize closes the live Sparkles instance, exactly as Close on the
// FinalizeGuard returned by Init does. It is a no-op if no instance is
// live.
func Finalize() {
	initMu.Lock()
	in := inst
	initMu.Unlock()
	if in != nil {
		(&FinalizeGuard{in: in}).Close()
	}
}

// flushAll flushes every recorder registered so far. It is passed to
// the worker as the hook run once at finalize, before the last drain,
// so no buffered events are lost.
func (in *instance) flushAll() {
	in.recorders.Range(func(_, v any) bool {
		v.(*recorder.Recorder).Flush()
		return true
	})
}

// current returns (creating if necessary) the Recorder bound to the
// calling goroutine.
func (in *instance) current() *recorder.Recorder {
	gid := goid.Get()
	if v, ok := in.recorders.Load(gid); ok {
		return v.(*recorder.Recorder)
	}
	r := recorder.New(in.store.NextThreadOrdID(), in.cfg.Provider, in.store, in.cfg.Local)
	actual, _ := in.recorders.LoadOrStore(gid, r)
	return actual.(*recorder.Recorder)
}

// requireInit panics if Sparkles hasn't been initialized. Calling the
// event-recording API before Init (or after Close) is a programming
// error, not a recoverable condition, the same way using an
// uninitialized thread-local would be.
func requireInit() *instance {
	initMu.Lock()
	in := inst
	initMu.Unlock()
	if in == nil {
		panic("sparkles: Init has not been called (or its FinalizeGuard was already closed)")
	}
	return in
}

// InstantEvent records a point-in-time event on the calling goroutine.
// hash should be a small stable identifier for name (e.g. a
// compile-time FNV hash of name).
func InstantEvent(hash uint32, name string) {
	requireInit().current().InstantEvent(hash, name)
}

// RangeEventStart begins a named range on the calling goroutine and
// returns a guard used to end it. The guard must not be passed to
// another goroutine.
func RangeEventStart(hash uint32, name string) *recorder.RangeGuard {
	return requireInit().current().RangeEventStart(hash, name)
}

// SetCurrentThreadName names the calling goroutine in the next
// flushed header. It is a no-op if the instance was configured with
// DisableThreadNames.
func SetCurrentThreadName(name string) {
	in := requireInit()
	if in.cfg.DisableThreadNames {
		return
	}
	in.current().SetThreadName(name)
}

// FlushThreadLocal forces an immediate flush of the calling
// goroutine's buffered events, bypassing the soft/hard thresholds.
func FlushThreadLocal() {
	requireInit().current().Flush()
}
