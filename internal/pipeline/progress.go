package pipeline

// EventKind distinguishes progress ticks from log lines.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
)

// Event is a single progress notification. Value carries the number of
// rows completed so far for progress events.
type Event struct {
	Kind    EventKind
	Message string
	Value   int
}

const progressQueueSize = 256

// ProgressQueue is a bounded, non-blocking event sink. When the queue
// is full new events are dropped so a slow consumer can never stall the
// pipeline.
type ProgressQueue struct {
	ch chan Event
}

func NewProgressQueue() *ProgressQueue {
	return &ProgressQueue{ch: make(chan Event, progressQueueSize)}
}

// Events exposes the receive side for a consumer goroutine.
func (q *ProgressQueue) Events() <-chan Event {
	return q.ch
}

// Publish enqueues an event, dropping it if the queue is full.
func (q *ProgressQueue) Publish(ev Event) {
	select {
	case q.ch <- ev:
	default:
	}
}

func (q *ProgressQueue) Log(msg string) {
	q.Publish(Event{Kind: EventLog, Message: msg})
}

func (q *ProgressQueue) Progress(done int) {
	q.Publish(Event{Kind: EventProgress, Value: done})
}

// Close signals the consumer that no more events will arrive.
func (q *ProgressQueue) Close() {
	close(q.ch)
}

// Drain empties any buffered events without blocking. Useful in tests
// and when no consumer was attached.
func (q *ProgressQueue) Drain() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-q.ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
