package ingestion

import (
	"sync"
	"time"
)

// AdmissionLimiter decides whether an organization may submit another
// event right now. Ingestion treats it as a policy component; swapping
// the implementation does not touch the pipeline.
type AdmissionLimiter interface {
	Allow(orgID string) bool
}

// orgWindow tracks one organization's count in the current window
type orgWindow struct {
	windowStart time.Time
	count       int
}

// FixedWindowLimiter admits up to limit events per organization per
// window. Counters reset at window boundaries rather than sliding, so a
// burst split across a boundary can briefly exceed the nominal rate.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	orgs    map[string]*orgWindow
	now     func() time.Time
	lastGC  time.Time
	gcEvery time.Duration
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		orgs:    make(map[string]*orgWindow),
		now:     time.Now,
		gcEvery: time.Minute,
	}
}

func (l *FixedWindowLimiter) Allow(orgID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeGC(now)

	w, ok := l.orgs[orgID]
	if !ok || now.Sub(w.windowStart) >= l.window {
		l.orgs[orgID] = &orgWindow{windowStart: now, count: 1}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// maybeGC drops stale per-org counters. Caller holds the lock.
func (l *FixedWindowLimiter) maybeGC(now time.Time) {
	if now.Sub(l.lastGC) < l.gcEvery {
		return
	}
	l.lastGC = now
	for orgID, w := range l.orgs {
		if now.Sub(w.windowStart) >= l.window {
			delete(l.orgs, orgID)
		}
	}
}

// UnlimitedAdmission admits everything; used in tests and for internal
// replay tooling.
type UnlimitedAdmission struct{}

func (UnlimitedAdmission) Allow(string) bool { return true }

var _ AdmissionLimiter = (*FixedWindowLimiter)(nil)
var _ AdmissionLimiter = UnlimitedAdmission{}
