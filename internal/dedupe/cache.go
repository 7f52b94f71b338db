// ABOUTME: Thread-safe TTL cache for deduplicating Telegram updates.
// ABOUTME: Prevents double-handling when the same message arrives twice after a drain or restart.

package dedupe

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	at   time.Time
	elem *list.Element
}

// Cache tracks message keys that have already been handled. Entries expire
// after a TTL and the cache is bounded, evicting the oldest key when full.
type Cache struct {
	mu     sync.Mutex
	seen   map[string]*entry
	order  *list.List // keys in insertion order, oldest at front
	ttl    time.Duration
	cap    int
	done   chan struct{}
	closed bool
}

// New creates a cache with the given TTL and capacity. A background
// goroutine sweeps expired entries once a minute until Close is called.
func New(ttl time.Duration, capacity int) *Cache {
	c := &Cache{
		seen:  make(map[string]*entry),
		order: list.New(),
		ttl:   ttl,
		cap:   capacity,
		done:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

// MessageKey builds the dedupe key for a Telegram message.
func MessageKey(chatID, messageID int64) string {
	return fmt.Sprintf("telegram:%d:%d", chatID, messageID)
}

// Seen atomically checks whether key was handled within the TTL and marks it
// if not. Returns true when the key is a duplicate that should be skipped.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && time.Since(e.at) < c.ttl {
		return true
	}

	now := time.Now()
	if e, ok := c.seen[key]; ok {
		// Expired entry, refresh in place.
		e.at = now
		c.order.MoveToBack(e.elem)
		return false
	}

	if len(c.seen) >= c.cap {
		if front := c.order.Front(); front != nil {
			old, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.seen, old)
		}
	}

	c.seen[key] = &entry{at: now, elem: c.order.PushBack(key)}
	return false
}

// Len reports the number of tracked keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.seen {
				if now.Sub(e.at) > c.ttl {
					c.order.Remove(e.elem)
					delete(c.seen, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
