package fetchcache

import "context"

// Strategy decides whether the cache is read before the live call
type Strategy int

const (
	// CacheFirst serves fresh entries without a live call
	CacheFirst Strategy = iota
	// FetchFirst always calls live, writes through, and reads the cache only when live fails
	FetchFirst
)

func (s Strategy) String() string {
	switch s {
	case FetchFirst:
		return "fetch-first"
	default:
		return "cache-first"
	}
}

type strategyKey struct{}

// WithStrategy attaches s to every fetch made with the returned context
func WithStrategy(ctx context.Context, s Strategy) context.Context {
	return context.WithValue(ctx, strategyKey{}, s)
}

// StrategyFromContext returns the request's strategy, CacheFirst when unset
func StrategyFromContext(ctx context.Context) Strategy {
	if s, ok := ctx.Value(strategyKey{}).(Strategy); ok {
		return s
	}
	return CacheFirst
}
