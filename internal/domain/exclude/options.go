package exclude

// Option applies a configuration option to the in-memory ledger.
type Option func(*inMemoryLedger)

// WithMaxSize sets the maximum number of keys to keep in memory.
// maxSize > 0 enables bounded mode with LIFO eviction; maxSize <= 0 keeps
// every key with no eviction.
func WithMaxSize(maxSize int) Option {
	return func(l *inMemoryLedger) {
		l.maxSize = maxSize
	}
}
