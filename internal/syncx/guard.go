// Package syncx holds small concurrency helpers shared across the sync
// engines.
package syncx

import "sync/atomic"

// Guard is a monotonically increasing sequence token for one logical
// query. Each new attempt calls Begin; before applying a result, the
// attempt checks Still. Only the most recent attempt's result is ever
// applied, so a slow response for a superseded query cannot clobber the
// current one.
type Guard struct {
	seq atomic.Uint64
}

// Begin starts a new attempt and invalidates all prior tokens.
func (g *Guard) Begin() uint64 {
	return g.seq.Add(1)
}

// Still reports whether tok is the most recent attempt.
func (g *Guard) Still(tok uint64) bool {
	return g.seq.Load() == tok
}
