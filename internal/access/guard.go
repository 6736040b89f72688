package access

import "sync/atomic"

// EntryGuard is a single-entry marker applied to operations that move value
// out of the component or trigger another instance's initialization code. A
// call that re-enters the guarded section before the first entry completes is
// rejected instead of queued. The marker is released unconditionally on exit,
// including failure exits.
type EntryGuard struct {
	entered atomic.Bool
}

// Enter claims the guard for a single logical call.
func (g *EntryGuard) Enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Exit releases the guard. Callers defer this immediately after Enter so the
// marker is dropped on every exit path.
func (g *EntryGuard) Exit() {
	g.entered.Store(false)
}
