package compile

import "sync"

// CancelToken is the single request-scoped one-shot cancellation flag
// shared between the progress adapter, the outer task driver, and the
// engine (spec.md §5). Setting it is idempotent and safe for concurrent
// use; it is never re-armed once set.
//
// Grounded on the teacher's BuildPipeline shutdown idiom
// (internal/build/pipeline.go), which guards a single cancel/shutdown
// transition with sync.Once rather than a raw bool.
type CancelToken struct {
	once sync.Once
	ch   chan struct{}
}

// NewCancelToken returns an unset cancellation token.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Set trips the token. Idempotent: only the first call has any effect.
func (c *CancelToken) Set() {
	c.once.Do(func() { close(c.ch) })
}

// IsSet reports whether the token has been tripped. Implements
// engine.CancelFlag.
func (c *CancelToken) IsSet() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is set, for select-based
// waiting alongside a context's Done channel.
func (c *CancelToken) Done() <-chan struct{} {
	return c.ch
}
