package mirror

import (
	"sync"

	"github.com/BaSui01/lanmirror/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusHandler receives status updates.
type StatusHandler func(Status)

// =============================================================================
// 📣 状态广播器
// =============================================================================

// Broadcaster fans status values out to subscribers. Each subscriber owns an
// unbounded mailbox drained by its own goroutine.
type Broadcaster struct {
	mu      sync.Mutex
	current Status
	subs    map[string]*Subscription
	closed  bool

	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewBroadcaster creates a Broadcaster holding initial as the current value.
func NewBroadcaster(initial Status, logger *zap.Logger, collector *metrics.Collector) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		current: initial,
		subs:    make(map[string]*Subscription),
		logger:  logger.With(zap.String("component", "status_broadcaster")),
		metrics: collector,
	}
}

// Current returns the most recently published value.
func (b *Broadcaster) Current() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Publish records s as current and enqueues it for every subscriber.
// Values published after Close are dropped.
func (b *Broadcaster) Publish(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.logger.Debug("dropping status published after close", zap.Stringer("status", s))
		return
	}
	b.current = s
	for _, sub := range b.subs {
		sub.push(s)
	}
}

// Subscribe registers fn. The current value is delivered first. Subscribing
// after Close returns an already finished subscription.
func (b *Broadcaster) Subscribe(fn StatusHandler) *Subscription {
	sub := &Subscription{
		id:   uuid.NewString(),
		fn:   fn,
		b:    b,
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.closed = true
		close(sub.done)
		return sub
	}

	sub.queue = append(sub.queue, b.current)
	b.subs[sub.id] = sub
	b.metrics.SetSubscribers(len(b.subs))
	go sub.run()

	b.logger.Debug("status subscriber added", zap.String("subscription_id", sub.id))
	return sub
}

// Close ends every subscription after already queued values are delivered.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.finish(false)
		delete(b.subs, id)
	}
	b.metrics.SetSubscribers(0)
}

// Closed reports whether Close was called.
func (b *Broadcaster) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; ok {
		delete(b.subs, id)
		b.metrics.SetSubscribers(len(b.subs))
	}
}

// =============================================================================
// 📬 订阅
// =============================================================================

// Subscription is a registered status handler.
type Subscription struct {
	id string
	fn StatusHandler
	b  *Broadcaster

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Status
	closed bool
	done   chan struct{}
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Done is closed once the subscription stops delivering.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel stops delivery. Values still queued are discarded.
func (s *Subscription) Cancel() {
	s.b.remove(s.id)
	s.finish(true)
}

func (s *Subscription) push(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, st)
	s.cond.Signal()
}

// finish 标记邮箱关闭；discard 为 true 时丢弃尚未投递的值
func (s *Subscription) finish(discard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if discard {
		s.queue = nil
	}
	if s.closed {
		return
	}
	s.closed = true
	s.cond.Signal()
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(next)
	}
}

func (s *Subscription) deliver(st Status) {
	defer func() {
		if r := recover(); r != nil {
			s.b.logger.Error("status subscriber panicked",
				zap.String("subscription_id", s.id),
				zap.Any("panic", r),
			)
		}
	}()
	s.fn(st)
}
