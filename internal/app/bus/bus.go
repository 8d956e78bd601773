/*
Package bus fans inbound frames out to subscribers.

Every subscriber owns a goroutine and a buffered queue, so frames reach each
subscriber one at a time and in publish order. A slow subscriber applies
backpressure to the publisher instead of losing frames.
*/
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
)

// DefaultBuffer is the per-subscriber queue length used when New gets a
// non-positive size.
const DefaultBuffer = 64

// Bus is a publish/subscribe fan-out for raw frames.
type Bus struct {
	buffer int

	// mu protects subs and closed.
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	logger zerolog.Logger
}

type subscriber struct {
	id    uint64
	fn    func(frame string)
	queue chan string

	// done is closed on unsubscribe; it releases a publisher blocked on a
	// full queue.
	done     chan struct{}
	doneOnce sync.Once
	exited   chan struct{}
}

// New creates a bus whose subscribers each queue up to buffer frames.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[uint64]*subscriber),
		logger: logx.Component("bus"),
	}
}

// Subscribe registers fn and starts delivering frames published from now on.
// The returned function stops delivery; it is idempotent and does not wait
// for a frame already being delivered. Subscribing to a closed bus returns a
// no-op unsubscribe.
func (b *Bus) Subscribe(fn func(frame string)) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Warn().Msg("Subscribe on closed bus ignored")
		return func() {}
	}

	b.nextID++
	sub := &subscriber{
		id:     b.nextID,
		fn:     fn,
		queue:  make(chan string, b.buffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	b.subs[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	go sub.run()

	b.logger.Debug().Uint64("sub_id", sub.id).Int("total_subs", total).Msg("Subscriber added")

	return func() {
		b.remove(sub)
	}
}

// Publish delivers frame to every current subscriber. It blocks while a
// subscriber's queue is full, until that subscriber drains or unsubscribes.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(frame string) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.queue <- frame:
		case <-sub.done:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone and waits for their delivery goroutines to
// exit. Frames still queued are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		<-sub.exited
	}
	b.logger.Debug().Int("released", len(subs)).Msg("Bus closed")
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	_, ok := b.subs[sub.id]
	delete(b.subs, sub.id)
	total := len(b.subs)
	b.mu.Unlock()

	sub.stop()

	if ok {
		b.logger.Debug().Uint64("sub_id", sub.id).Int("total_subs", total).Msg("Subscriber removed")
	}
}

func (s *subscriber) stop() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

func (s *subscriber) run() {
	defer close(s.exited)

	for {
		// done wins over pending frames
		select {
		case <-s.done:
			return
		default:
		}

		select {
		case frame := <-s.queue:
			s.fn(frame)
		case <-s.done:
			return
		}
	}
}
