package mirror

import (
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/lanmirror/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recorder 收集订阅者收到的状态
type recorder struct {
	mu     sync.Mutex
	values []Status
}

func (r *recorder) handle(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, s)
}

func (r *recorder) snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.values...)
}

func (r *recorder) waitLen(t *testing.T, n int) []Status {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.snapshot()) >= n }, 2*time.Second, 5*time.Millisecond)
	return r.snapshot()
}

func TestBroadcaster_DeliversCurrentFirst(t *testing.T) {
	b := NewBroadcaster(StoppedStatus("boom"), zap.NewNop(), nil)
	defer b.Close()

	var rec recorder
	b.Subscribe(rec.handle)

	got := rec.waitLen(t, 1)
	assert.Equal(t, StoppedStatus("boom"), got[0])
}

func TestBroadcaster_PreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroadcaster(StoppedStatus(""), zap.NewNop(), nil)

	const n = 200
	recs := make([]*recorder, 3)
	for i := range recs {
		recs[i] = &recorder{}
		b.Subscribe(recs[i].handle)
	}

	for i := 1; i <= n; i++ {
		b.Publish(RunningStatus("10.0.0.1", i))
	}

	for _, rec := range recs {
		got := rec.waitLen(t, n+1)
		require.Len(t, got, n+1)
		assert.False(t, got[0].Running)
		for i := 1; i <= n; i++ {
			assert.Equal(t, i, got[i].Port)
		}
	}
	b.Close()
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster(StoppedStatus(""), zap.NewNop(), nil)
	defer b.Close()

	release := make(chan struct{})
	b.Subscribe(func(Status) { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(RunningStatus("10.0.0.1", i+1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)
}

func TestBroadcaster_RecoversPanickingSubscriber(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	b := NewBroadcaster(StoppedStatus(""), zap.New(core), nil)
	defer b.Close()

	var rec recorder
	b.Subscribe(func(Status) { panic("bad subscriber") })
	b.Subscribe(rec.handle)

	b.Publish(RunningStatus("10.0.0.1", 8080))

	got := rec.waitLen(t, 2)
	assert.True(t, got[1].Running)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("status subscriber panicked").Len() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcaster_CloseDrainsQueuedValues(t *testing.T) {
	b := NewBroadcaster(StoppedStatus(""), zap.NewNop(), nil)

	release := make(chan struct{})
	var rec recorder
	sub := b.Subscribe(func(s Status) {
		<-release
		rec.handle(s)
	})

	b.Publish(RunningStatus("10.0.0.1", 1))
	b.Publish(RunningStatus("10.0.0.1", 2))
	b.Close()
	b.Publish(RunningStatus("10.0.0.1", 3))
	close(release)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not finish after close")
	}

	got := rec.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[2].Port)
	assert.Equal(t, 2, b.Current().Port, "publish after close is dropped")
	assert.True(t, b.Closed())
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster(StoppedStatus(""), zap.NewNop(), nil)
	b.Close()

	called := false
	sub := b.Subscribe(func(Status) { called = true })

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription after close should be finished")
	}
	assert.False(t, called)
	sub.Cancel()
}

func TestSubscription_Cancel(t *testing.T) {
	b := NewBroadcaster(StoppedStatus(""), zap.NewNop(), nil)
	defer b.Close()

	var rec recorder
	sub := b.Subscribe(rec.handle)
	rec.waitLen(t, 1)

	sub.Cancel()
	<-sub.Done()
	b.Publish(RunningStatus("10.0.0.1", 1))

	delivered := testutil.WaitFor(func() bool { return len(rec.snapshot()) > 1 }, 50*time.Millisecond)
	assert.False(t, delivered, "cancelled subscription must not receive later statuses")
	assert.Len(t, rec.snapshot(), 1)
	assert.NotEmpty(t, sub.ID())
	sub.Cancel()
}
