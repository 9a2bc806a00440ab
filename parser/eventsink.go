package parser

// EventSink is the external collaborator that turns decoded events
// into a concrete trace-viewer format: the output trace-file format is
// treated as a sink that accepts named point/range events keyed by
// thread.
//
// Parser calls these methods in timestamp order within each thread,
// but does not serialize calls across threads.
type EventSink interface {
	// SetThreadName records the display name for a thread_ord_id,
	// if one was sent.
	SetThreadName(threadOrdID int, name string)

	// AddPointEvent records an Instant event.
	AddPointEvent(name string, threadOrdID int, timestampNs uint64)

	// AddRangeEvent records a completed range, named "start_name ->
	// end_name" for a named end, or just the start's name for an
	// unnamed end.
	AddRangeEvent(name string, threadOrdID int, startNs, endNs uint64)
}
