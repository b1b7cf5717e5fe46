// Package events provides an in-process, ordered, asynchronous fan-out of values
// to registered callbacks.
package events

import (
	"sort"
	"sync"
)

// DefaultBuffer is the queue depth used when NewBroker is given a non-positive size.
const DefaultBuffer = 16

// Broker delivers published values to subscribers on a single dispatcher
// goroutine. Delivery order matches publish order and every subscriber sees
// each value at most once. Callbacks must not block for long; they run on the
// dispatcher and delay later deliveries.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]func(T)
	nextID uint64
	closed bool

	queue     chan T
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewBroker[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	b := &Broker[T]{
		subs:    make(map[uint64]func(T)),
		queue:   make(chan T, buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe registers fn and returns a cancel func. Cancel is idempotent; once
// it returns, fn receives no value that has not already started dispatching.
func (b *Broker[T]) Subscribe(fn func(T)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish enqueues v. It blocks only while the queue is full and returns
// immediately after Close.
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	select {
	case b.queue <- v:
	case <-b.done:
	}
}

// Subscribers reports the number of live registrations.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops the dispatcher and waits for it to exit. Queued values that
// have not been dispatched are dropped.
func (b *Broker[T]) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.subs = map[uint64]func(T){}
		b.mu.Unlock()
		close(b.done)
	})
	<-b.stopped
}

func (b *Broker[T]) run() {
	defer close(b.stopped)
	for {
		select {
		case <-b.done:
			return
		case v := <-b.queue:
			for _, fn := range b.snapshot() {
				fn(v)
			}
		}
	}
}

// snapshot returns callbacks in subscription order.
func (b *Broker[T]) snapshot() []func(T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, b.subs[id])
	}
	return out
}
