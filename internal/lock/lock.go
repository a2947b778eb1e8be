// Package lock provides per-(project, session) mutual exclusion for
// compression operations. Operations on different sessions proceed fully in
// parallel; a second compression on the same session is rejected, not queued.
package lock

import (
	"sync"

	"github.com/hpungsan/condense/internal/errors"
)

// Operation names the kind of work a lock protects.
type Operation string

// OpCompression is the only operation type today; at most one compression
// lock may be held per (project, session) at any time.
const OpCompression Operation = "compression"

// Manager is an in-process lock registry.
type Manager struct {
	mu   sync.Mutex
	held map[string]Operation
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{held: make(map[string]Operation)}
}

// Lock is a held session lock. Release is idempotent and must be invoked on
// every exit path; callers defer it immediately after acquisition.
type Lock struct {
	m    *Manager
	key  string
	once sync.Once
}

// Acquire takes the lock for (projectID, sessionID). If a compression lock is
// already held for the key, it fails with COMPRESSION_IN_PROGRESS, a
// conflict signaling "retry later", not a transient failure.
func (m *Manager) Acquire(projectID, sessionID string, op Operation) (*Lock, error) {
	key := projectID + "\x00" + sessionID

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil, errors.NewCompressionInProgress(projectID, sessionID)
	}
	m.held[key] = op

	return &Lock{m: m, key: key}, nil
}

// Release frees the lock. Calling it more than once is a no-op.
func (l *Lock) Release() {
	l.once.Do(func() {
		l.m.mu.Lock()
		delete(l.m.held, l.key)
		l.m.mu.Unlock()
	})
}
