package types

import (
	"sync"
	"time"
)

// Timeline records the three timestamps every connection and stream in this
// pipeline carries: when it was opened, when it finished upgrading (streams
// leave this zero), and when it closed. It is shared by pointer across every
// wrapper a connection passes through during upgrade, so "first transition of
// Close from unset to set" is observable no matter which layer closes first.
type Timeline struct {
	mu       sync.Mutex
	open     time.Time
	upgraded time.Time
	close    time.Time
	onClose  func(closedAt time.Time)
}

// NewTimeline starts a timeline with Open stamped at creation.
func NewTimeline() *Timeline {
	return &Timeline{open: time.Now()}
}

func (t *Timeline) Open() time.Time { t.mu.Lock(); defer t.mu.Unlock(); return t.open }

func (t *Timeline) Upgraded() time.Time { t.mu.Lock(); defer t.mu.Unlock(); return t.upgraded }

// SetUpgraded stamps the upgraded time exactly once; later calls are no-ops.
func (t *Timeline) SetUpgraded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.upgraded.IsZero() {
		t.upgraded = time.Now()
	}
}

func (t *Timeline) Close() time.Time { t.mu.Lock(); defer t.mu.Unlock(); return t.close }

// OnClose registers the callback invoked exactly once, the moment Close is
// first recorded. Registering after Close was already recorded invokes it
// immediately with the recorded time. This replaces the dynamic-property-trap
// the original implementation used to detect the same transition.
func (t *Timeline) OnClose(cb func(closedAt time.Time)) {
	t.mu.Lock()
	already := !t.close.IsZero()
	closedAt := t.close
	if !already {
		t.onClose = cb
	}
	t.mu.Unlock()
	if already {
		cb(closedAt)
	}
}

// MarkClosed records the close time if not already recorded and fires the
// registered OnClose callback exactly once. Safe to call from multiple
// goroutines and multiple times.
func (t *Timeline) MarkClosed() {
	t.mu.Lock()
	if !t.close.IsZero() {
		t.mu.Unlock()
		return
	}
	t.close = time.Now()
	cb := t.onClose
	closedAt := t.close
	t.mu.Unlock()
	if cb != nil {
		cb(closedAt)
	}
}
