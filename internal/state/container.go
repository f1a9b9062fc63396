// Package state provides a small observable state container: a mutexed
// snapshot plus subscriber channels that receive a copy after every patch.
package state

import "sync"

// Container holds one state value of type T. Patches are serialized;
// subscribers observe every patched snapshot in order, with a
// latest-wins drop policy for slow consumers.
type Container[T any] struct {
	mu   sync.Mutex
	val  T
	subs map[int]chan T
	next int
}

// New builds a container seeded with initial.
func New[T any](initial T) *Container[T] {
	return &Container[T]{val: initial, subs: make(map[int]chan T)}
}

// Get returns the current snapshot.
func (c *Container[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// Patch applies fn to the state under the lock and notifies subscribers.
func (c *Container[T]) Patch(fn func(*T)) {
	c.mu.Lock()
	fn(&c.val)
	snapshot := c.val
	channels := make([]chan T, 0, len(c.subs))
	for _, ch := range c.subs {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so the fresh one fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Subscribe registers an observer. The returned cancel function must be
// called to release the channel.
func (c *Container[T]) Subscribe() (<-chan T, func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	ch := make(chan T, 1)
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
	return ch, cancel
}
