// Package progress implements the per-operation publish/subscribe channel
// used to stream live fetch progress to any number of concurrent subscribers.
package progress

import (
	"sync"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"
)

// subscriberBuffer bounds each subscriber channel. A subscriber that cannot
// keep up loses events; events are never queued for absent consumers.
const subscriberBuffer = 16

// Registry tracks the live progress channels, keyed by operation id. It is
// owned by the service instance, never process-wide state.
type Registry struct {
	mu  sync.Mutex
	ops map[string]*operation
}

type operation struct {
	subscribers map[int]chan api.ProgressEvent
	nextID      int
	cancel      func()
	closed      bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*operation)}
}

func (r *Registry) operationLocked(operationID string) *operation {
	op, exists := r.ops[operationID]
	if !exists {
		op = &operation{subscribers: make(map[int]chan api.ProgressEvent)}
		r.ops[operationID] = op
	}
	return op
}

// Subscribe attaches a new subscriber to the operation and returns its event
// channel together with a detach function. Subscribers receive every event
// published after they subscribe; there is no backlog replay. Detaching early
// does not affect the producer or other subscribers.
func (r *Registry) Subscribe(operationID string) (<-chan api.ProgressEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op := r.operationLocked(operationID)
	ch := make(chan api.ProgressEvent, subscriberBuffer)
	id := op.nextID
	op.nextID++
	op.subscribers[id] = ch

	detach := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		cur, exists := r.ops[operationID]
		if !exists || cur != op {
			return
		}
		if c, ok := op.subscribers[id]; ok {
			delete(op.subscribers, id)
			close(c)
		}
		// Without a producer attached, the last detach is the only chance to
		// release the entry; stale operation ids must not accumulate.
		if len(op.subscribers) == 0 && op.cancel == nil && !op.closed {
			delete(r.ops, operationID)
		}
	}
	return ch, detach
}

// Publish delivers the event to every current subscriber of its operation.
// Slow subscribers are skipped rather than blocking the producer.
func (r *Registry) Publish(evt api.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, exists := r.ops[evt.OperationID]
	if !exists || op.closed {
		return
	}
	for _, ch := range op.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SetCanceller registers the function that terminates the external process
// behind the operation. It is invoked at most once, by Cancel.
func (r *Registry) SetCanceller(operationID string, cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operationLocked(operationID).cancel = cancel
}

// Cancel requests termination of the in-flight process for the operation.
// It reports whether a running operation was actually signalled. The producer
// is expected to surface the termination as an error event and tear the
// channel down.
func (r *Registry) Cancel(operationID string) bool {
	r.mu.Lock()
	op, exists := r.ops[operationID]
	var cancel func()
	if exists && !op.closed {
		cancel = op.cancel
		op.cancel = nil
	}
	r.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Teardown detaches all subscribers and releases the operation, exactly once.
// The grace delay lets a just-published terminal event flush to subscribers
// before their channels close.
func (r *Registry) Teardown(ctx context.Context, operationID string, grace time.Duration) {
	r.mu.Lock()
	op, exists := r.ops[operationID]
	if !exists || op.closed {
		r.mu.Unlock()
		return
	}
	op.closed = true
	op.cancel = nil
	r.mu.Unlock()

	go func() {
		if grace > 0 {
			select {
			case <-time.After(grace):
			case <-ctx.Done():
			}
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		for id, ch := range op.subscribers {
			delete(op.subscribers, id)
			close(ch)
		}
		delete(r.ops, operationID)
	}()
}
