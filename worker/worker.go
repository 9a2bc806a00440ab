// Package worker implements the single background task that drains
// the global store, measures the timestamp provider's frequency, and
// emits framed wire packets to the configured sink chain.
package worker

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/sparkles-rs/sparkles/globalstore"
	"github.com/sparkles-rs/sparkles/internal/freqsample"
	"github.com/sparkles-rs/sparkles/internal/telemetry"
	"github.com/sparkles-rs/sparkles/sink"
	"github.com/sparkles-rs/sparkles/timestamp"
	"github.com/sparkles-rs/sparkles/wire"
)

// pollInterval is how often the worker wakes to check the store.
const pollInterval = time.Millisecond

// freqSampleInterval is how often a new Frequency packet is emitted.
const freqSampleInterval = 100 * time.Millisecond

// Worker owns the sink chain and drives the periodic drain/sample
// loop. Exactly one Worker runs per process.
type Worker struct {
	store    *globalstore.Store
	provider timestamp.Provider
	chain    *sink.Chain

	finalizeStarted atomic.Bool
	done            chan struct{}

	flushSelf func() // flush hook run once at finalize, before the last drain
}

// Info is the process-level metadata sent in the one-shot EncoderInfo
// packet.
type Info struct {
	ProcessName string
}

// New constructs a Worker. flushSelf, if non-nil, is called once at
// finalize before the last drain so that events still buffered in
// recorders are captured (the sparkles facade passes a hook that
// flushes every registered recorder).
func New(store *globalstore.Store, provider timestamp.Provider, chain *sink.Chain, flushSelf func()) *Worker {
	return &Worker{store: store, provider: provider, chain: chain, done: make(chan struct{}), flushSelf: flushSelf}
}

// Run executes the worker loop until Stop is called. It is meant to
// be run in its own goroutine; Run blocks until shutdown completes.
func (w *Worker) Run(info Info) {
	defer close(w.done)

	w.chain.Send(wire.EncodePacket(wire.PacketEncoderInfo, wire.EncodeEncoderInfo(wire.EncoderInfo{
		Ver:               wire.EncoderVersion,
		ProcessName:       info.ProcessName,
		PID:               uint32(os.Getpid()),
		TimestampMaxValue: w.provider.MaxValue(),
	})))

	var est freqsample.Estimator
	nextSample := time.Now()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		finalizing := w.finalizeStarted.Load()

		now := time.Now()
		if now.After(nextSample) || finalizing {
			est.Add(freqsample.Sample{Wall: now, Tick: w.provider.Now()})
			if rate, ok := est.TicksPerSecond(); ok {
				w.chain.Send(wire.EncodeFrequency(uint64(rate)))
			}
			est.Reset()
			est.Add(freqsample.Sample{Wall: now, Tick: w.provider.Now()})
			nextSample = now.Add(freqSampleInterval)
		}

		if finalizing && w.flushSelf != nil {
			w.flushSelf()
		}

		slices, skipped := w.store.Drain(finalizing)
		if len(slices[0]) > 0 || len(slices[1]) > 0 {
			w.sendData(slices)
		}
		for _, hdr := range skipped {
			w.chain.Send(wire.EncodePacket(wire.PacketMissedPage, wire.EncodeHeader(hdr)))
			telemetry.Log.Warn().Int("thread_ord_id", hdr.ThreadOrdID).Msg("packet evicted under pressure")
		}

		if finalizing {
			w.chain.Send(wire.EncodeGoodbye())
			if err := w.chain.Close(); err != nil {
				telemetry.Log.Warn().Err(err).Msg("error closing sink chain")
			}
			return
		}
	}
}

func (w *Worker) sendData(slices [2][]byte) {
	total := len(slices[0]) + len(slices[1])
	body := make([]byte, 0, total)
	body = append(body, slices[0]...)
	body = append(body, slices[1]...)
	w.chain.Send(wire.EncodePacket(wire.PacketData, body))
}

// Stop requests finalize: the worker flushes everything it can, emits
// Goodbye, and exits. Stop blocks until the worker's Run loop returns.
func (w *Worker) Stop() {
	w.finalizeStarted.Store(true)
	<-w.done
}
