package kd

// Option configures an Index.
type Option func(*Index)

// WithBuildParallelism sets how many goroutines may build subtrees concurrently.
func WithBuildParallelism(n int) Option {
	return func(i *Index) { i.parallel = n }
}
