// Package traceviewer implements an EventSink that renders a Sparkles
// trace into the Chrome/Perfetto JSON trace event format, one concrete
// output format behind the parser.EventSink interface.
package traceviewer

import (
	"encoding/json"
	"io"

	"github.com/sparkles-rs/sparkles/parser"
)

// PerfettoTrace accumulates decoded events into a Chrome Tracing
// Format document, the same shape Perfetto's UI and chrome://tracing
// both load.
type PerfettoTrace struct {
	events []any
}

var _ parser.EventSink = (*PerfettoTrace)(nil)

// NewPerfettoTrace returns an empty trace ready to receive events from
// a parser.Parser.
func NewPerfettoTrace() *PerfettoTrace {
	return &PerfettoTrace{}
}

func (t *PerfettoTrace) SetThreadName(threadOrdID int, name string) {
	t.events = append(t.events, threadNameEvent{
		Name: "thread_name",
		Ph:   "M",
		Tid:  uint64(threadOrdID),
		Args: map[string]string{"name": name},
	})
}

func (t *PerfettoTrace) AddPointEvent(name string, threadOrdID int, timestampNs uint64) {
	t.events = append(t.events, pointEvent{
		Name: name,
		Cat:  "Point",
		Ph:   "i",
		Ts:   float64(timestampNs) / 1e3, // Chrome Tracing Format timestamps are microseconds
		Tid:  uint64(threadOrdID),
	})
}

func (t *PerfettoTrace) AddRangeEvent(name string, threadOrdID int, startNs, endNs uint64) {
	dur := uint64(0)
	if endNs > startNs {
		dur = endNs - startNs
	}
	t.events = append(t.events, rangeEvent{
		Name: name,
		Cat:  "Range",
		Ph:   "X",
		Ts:   float64(startNs) / 1e3,
		Dur:  float64(dur) / 1e3,
		Tid:  uint64(threadOrdID),
	})
}

// WriteTo serializes the accumulated trace as a Chrome Tracing Format
// JSON document.
func (t *PerfettoTrace) WriteTo(w io.Writer) (int64, error) {
	doc := struct {
		TraceEvents []any `json:"traceEvents"`
	}{TraceEvents: t.events}
	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return 0, err
	}
	return 0, nil
}

type rangeEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ph   string  `json:"ph"`
	Ts   float64 `json:"ts"`
	Dur  float64 `json:"dur"`
	Tid  uint64  `json:"tid"`
}

type pointEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ph   string  `json:"ph"`
	Ts   float64 `json:"ts"`
	Tid  uint64  `json:"tid"`
}

type threadNameEvent struct {
	Name string            `json:"name"`
	Ph   string            `json:"ph"`
	Tid  uint64            `json:"tid"`
	Args map[string]string `json:"args"`
}
