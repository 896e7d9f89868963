package reaper

import "sync"

// TaskKind names a recurring maintenance task.
type TaskKind string

// TaskReapUnverified is the periodic sweep of stale unverified transfers.
const TaskReapUnverified TaskKind = "reap_unverified"

// Guard admits at most one running instance per task kind. TryAcquire either
// admits the caller and hands back a release closure, or reports contention so
// the caller can abandon the invocation; the next scheduled tick retries.
type Guard struct {
	mu     sync.Mutex
	active map[TaskKind]struct{}
}

// NewGuard constructs an empty guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[TaskKind]struct{})}
}

// TryAcquire admits the task kind unless an instance is already running. The
// release closure is safe to call exactly once and must run on every exit
// path, so callers defer it immediately.
func (g *Guard) TryAcquire(kind TaskKind) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, running := g.active[kind]; running {
		return nil, false
	}
	g.active[kind] = struct{}{}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.active, kind)
	}, true
}
