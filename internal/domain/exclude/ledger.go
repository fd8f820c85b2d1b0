// Package exclude tracks items a user has already seen or purchased so they
// are taken out of the candidate pool before any score is computed. The same
// ledger doubles as the idempotency check for interaction events.
package exclude

import (
	"context"
	"sync"
	"sync/atomic"
)

// Key builds the ledger key for a user/item pair.
func Key(userID, itemID string) string {
	return userID + "|" + itemID
}

// Ledger records seen keys with an atomic check-and-record operation.
type Ledger interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. Returns true if key was already present.
	SeenAndRecord(ctx context.Context, key string) bool

	// Seen reports whether key is currently recorded, without recording it.
	Seen(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to be recorded again. Used when an
	// event was marked as seen but could not be processed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	key  string
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.next = nil
}

// inMemoryLedger implements Ledger with a map plus a linked list for LIFO
// eviction in bounded mode. With maxSize <= 0 the ledger is unbounded and
// only the map is used.
type inMemoryLedger struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryLedger creates an in-memory ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize: 50000, // default max size
	}

	for _, opt := range opts {
		opt(l)
	}

	l.seen = make(map[string]*node)

	if l.maxSize > 0 {
		l.nodePool = sync.Pool{
			New: func() any {
				return &node{}
			},
		}
	}

	return l
}

// SeenAndRecord atomically checks whether key was seen and records it if not.
func (l *inMemoryLedger) SeenAndRecord(ctx context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[key]; exists {
		return true
	}

	if l.maxSize > 0 {
		if len(l.seen) >= l.maxSize {
			l.evict()
		}

		n := l.nodePool.Get().(*node)
		n.key = key
		n.next = l.head

		l.head = n
		l.seen[key] = n
	} else {
		l.seen[key] = nil
	}
	l.size.Add(1)
	return false
}

// Seen reports whether key is currently recorded.
func (l *inMemoryLedger) Seen(ctx context.Context, key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.seen[key]
	return exists
}

// Unrecord removes a key from the ledger.
func (l *inMemoryLedger) Unrecord(ctx context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, exists := l.seen[key]
	if !exists {
		return
	}
	delete(l.seen, key)
	l.size.Add(-1)

	if l.maxSize <= 0 {
		return
	}

	// Unlink from the eviction list.
	if l.head == n {
		l.head = n.next
	} else {
		current := l.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}

	n.reset()
	l.nodePool.Put(n)
}

// evict removes the oldest entry (tail of the list). Caller holds l.mu.
func (l *inMemoryLedger) evict() {
	if len(l.seen) == 0 || l.head == nil {
		return
	}

	if l.head.next == nil {
		delete(l.seen, l.head.key)
		l.head.reset()
		l.nodePool.Put(l.head)
		l.head = nil
		l.size.Add(-1)
		return
	}

	var prev *node
	current := l.head
	for current.next != nil {
		prev = current
		current = current.next
	}

	prev.next = nil
	delete(l.seen, current.key)
	current.reset()
	l.nodePool.Put(current)
	l.size.Add(-1)
}

// Size returns the current number of recorded keys.
func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}
