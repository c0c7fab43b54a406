// Package pipeline implements a generic demand-driven producer/consumer
// primitive: a Dispatcher emits items only in response to demand signals
// previously issued by its subscribers, fanning out across multiple
// subscribers in a work-conserving order. It is the shared backbone used
// by both the Listener (dispatching frames) and the Decoder (dispatching
// records).
package pipeline

import (
	"context"
	"sync"
)

type subscriberState[T any] struct {
	ch     chan T
	demand int
}

// Dispatcher is a single-producer, multi-consumer demand-driven channel.
// Emit blocks until some subscriber has outstanding demand; each
// subscriber's channel holds at most one undelivered item, so backpressure
// from a slow or absent consumer is felt immediately by the producer.
type Dispatcher[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	subs   []*subscriberState[T]
	closed bool
}

// NewDispatcher creates a Dispatcher that closes itself when ctx is done,
// unblocking any Emit or Subscription waiting on demand.
func NewDispatcher[T any](ctx context.Context) *Dispatcher[T] {
	d := &Dispatcher[T]{}
	d.cond = sync.NewCond(&d.mu)
	go func() {
		<-ctx.Done()
		d.Close()
	}()
	return d
}

// Subscription is a consumer's handle on a Dispatcher: it requests demand
// and receives items over Items().
type Subscription[T any] struct {
	d   *Dispatcher[T]
	sub *subscriberState[T]
}

// Subscribe attaches a new subscriber with zero initial demand and a
// one-item delivery channel.
func (d *Dispatcher[T]) Subscribe() *Subscription[T] {
	sub := &subscriberState[T]{ch: make(chan T, 1)}
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()
	return &Subscription[T]{d: d, sub: sub}
}

// Items returns the channel on which items are delivered.
func (s *Subscription[T]) Items() <-chan T {
	return s.sub.ch
}

// Request adds n to this subscriber's outstanding demand and wakes any
// producer blocked in Emit.
func (s *Subscription[T]) Request(n int) {
	if n <= 0 {
		return
	}
	s.d.mu.Lock()
	s.sub.demand += n
	s.d.cond.Broadcast()
	s.d.mu.Unlock()
}

// Cancel detaches the subscriber. Any Emit currently selecting it will
// have already committed; future Emits skip it.
func (s *Subscription[T]) Cancel() {
	d := s.d
	d.mu.Lock()
	for i, sub := range d.subs {
		if sub == s.sub {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Emit delivers item to the first subscriber (in subscribe order) with
// outstanding positive demand, blocking until one exists or the
// Dispatcher is closed. It returns false if the Dispatcher was closed
// before delivery, true once the item has been handed to a subscriber.
// If the chosen subscriber's channel still holds an earlier item, Emit
// also waits for the subscriber to receive that item.
func (d *Dispatcher[T]) Emit(item T) bool {
	d.mu.Lock()
	for {
		if d.closed {
			d.mu.Unlock()
			return false
		}
		for _, sub := range d.subs {
			if sub.demand > 0 {
				sub.demand--
				d.mu.Unlock()
				sub.ch <- item
				return true
			}
		}
		d.cond.Wait()
	}
}

// SubscriberCount reports the number of currently attached subscribers.
func (d *Dispatcher[T]) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Close stops the Dispatcher: pending Emit calls return false and every
// subscriber's channel is closed. Idempotent.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, sub := range d.subs {
		close(sub.ch)
	}
	d.subs = nil
	d.cond.Broadcast()
}
