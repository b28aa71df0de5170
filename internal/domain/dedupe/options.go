package dedupe

// Option applies a configuration option to the Memory deduper.
type Option func(*Memory)

// WithMaxSize sets the maximum number of keys to keep.
// maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *Memory) {
		d.maxSize = maxSize
	}
}
