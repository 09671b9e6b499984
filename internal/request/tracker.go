// Package request provides the "only the latest request wins" primitive used
// by every view that fetches data.
package request

import (
	"context"
	"sync"
)

// Handle identifies one in-flight request generation.
type Handle struct {
	gen     uint64
	tracker *Tracker
	cancel  context.CancelFunc
}

// Cancel abandons the request. A cancelled handle never applies its result.
func (h *Handle) Cancel() {
	h.cancel()
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	if h.tracker.current == h {
		h.tracker.current = nil
	}
}

// Current reports whether h is still the latest, non-cancelled request.
func (h *Handle) Current() bool {
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	return h.tracker.current == h && !h.tracker.stopped
}

// Apply runs fn only if h is still current. The tracker lock is held while fn
// runs so a newer Begin cannot interleave with the state update; fn must not
// call back into the tracker.
func (h *Handle) Apply(fn func()) bool {
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	if h.tracker.current != h || h.tracker.stopped {
		return false
	}
	fn()
	return true
}

// Tracker hands out request generations; starting a new one cancels the
// previous one.
type Tracker struct {
	mu      sync.Mutex
	gen     uint64
	current *Handle
	stopped bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin starts a new generation derived from parent and cancels the previous
// one. The returned context is cancelled when the handle is superseded,
// cancelled, or the tracker is stopped.
func (t *Tracker) Begin(parent context.Context) (*Handle, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		t.current.cancel()
	}
	t.gen++
	h := &Handle{gen: t.gen, tracker: t, cancel: cancel}
	if t.stopped {
		cancel()
		return h, ctx
	}
	t.current = h
	return h, ctx
}

// Stop cancels the in-flight request and refuses to apply any later result.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.current != nil {
		t.current.cancel()
		t.current = nil
	}
}
