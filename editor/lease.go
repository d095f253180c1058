package editor

import (
	"sync"
	"time"
)

// SyncLease is the short-lived token taken around a document mutation so
// the host's own content-sync effect does not clobber the freshly
// applied edit with stale content. It releases itself after a bounded
// delay, so a missed follow-up notification can never wedge content
// synchronization permanently.
type SyncLease struct {
	ttl time.Duration

	mu    sync.Mutex
	held  bool
	timer *time.Timer
}

func NewSyncLease(ttl time.Duration) *SyncLease {
	return &SyncLease{ttl: ttl}
}

// Acquire takes (or extends) the lease and arms the auto-release timer.
func (l *SyncLease) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.ttl, l.Release)
}

// Release drops the lease. Idempotent; also called by the timer.
func (l *SyncLease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// Held is queried by the host's content-sync gate before it overwrites
// editor content from its own state.
func (l *SyncLease) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
