package repository

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithTopCacheSize sets how many leading standings each snapshot keeps
// ready for TopN.
func WithTopCacheSize(size int) Option {
	return func(s *SnapshotStore) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}
