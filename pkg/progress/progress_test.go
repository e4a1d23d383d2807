package progress

import (
	"testing"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v int) *int { return &v }

func TestPublishToMultipleSubscribers(t *testing.T) {
	r := NewRegistry()
	ch1, detach1 := r.Subscribe("op")
	ch2, detach2 := r.Subscribe("op")
	defer detach1()
	defer detach2()

	r.Publish(api.ProgressEvent{OperationID: "op", Type: api.ProgressTypeProgress, Percentage: pct(42)})

	for _, ch := range []<-chan api.ProgressEvent{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, api.ProgressTypeProgress, evt.Type)
			require.NotNil(t, evt.Percentage)
			assert.Equal(t, 42, *evt.Percentage)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	r := NewRegistry()
	r.Publish(api.ProgressEvent{OperationID: "op", Type: api.ProgressTypeStatus})

	// No backlog replay for late subscribers.
	ch, detach := r.Subscribe("op")
	defer detach()
	select {
	case <-ch:
		t.Fatal("unexpected backlog event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDetachDoesNotAffectOthers(t *testing.T) {
	r := NewRegistry()
	ch1, detach1 := r.Subscribe("op")
	ch2, detach2 := r.Subscribe("op")
	defer detach2()

	detach1()
	// Detached channel is closed.
	_, open := <-ch1
	assert.False(t, open)

	r.Publish(api.ProgressEvent{OperationID: "op", Type: api.ProgressTypeStatus, Message: "still here"})
	select {
	case evt := <-ch2:
		assert.Equal(t, "still here", evt.Message)
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber lost events")
	}
}

func TestDetachReleasesStaleOperation(t *testing.T) {
	r := NewRegistry()

	// Attaching to an id with no producer, over and over, must not grow the
	// registry once every subscriber is gone.
	for i := 0; i < 1000; i++ {
		_, detach := r.Subscribe("finished-op")
		detach()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Empty(t, r.ops)
}

func TestDetachKeepsOperationWithProducer(t *testing.T) {
	r := NewRegistry()
	r.SetCanceller("op", func() {})

	_, detach := r.Subscribe("op")
	detach()

	// The producer still owns the operation; only teardown may release it.
	r.mu.Lock()
	_, exists := r.ops["op"]
	r.mu.Unlock()
	assert.True(t, exists)
	assert.True(t, r.Cancel("op"))
}

func TestCancelSignalsProcessOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.SetCanceller("op", func() { calls++ })

	assert.True(t, r.Cancel("op"))
	assert.False(t, r.Cancel("op"))
	assert.Equal(t, 1, calls)

	// Unknown operation.
	assert.False(t, r.Cancel("nope"))
}

func TestTeardownClosesSubscribers(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	ch, _ := r.Subscribe("op")

	r.Publish(api.ProgressEvent{OperationID: "op", Type: api.ProgressTypeComplete})
	r.Teardown(ctx, "op", 10*time.Millisecond)
	// Teardown is idempotent.
	r.Teardown(ctx, "op", 10*time.Millisecond)

	// The terminal event published before teardown is still delivered.
	evt, open := <-ch
	require.True(t, open)
	assert.Equal(t, api.ProgressTypeComplete, evt.Type)

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after teardown")
	}

	// Publishing after teardown is a no-op.
	r.Publish(api.ProgressEvent{OperationID: "op", Type: api.ProgressTypeStatus})

	// Cancelling after teardown reports false.
	r.SetCanceller("op2", func() {})
	r.Teardown(ctx, "op2", 0)
	assert.False(t, r.Cancel("op2"))
}
