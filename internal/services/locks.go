package services

import "sync"

// ProjectLocks serializes mutations per project. Locks are reference counted
// and dropped once no goroutine holds or waits for them.
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[uint64]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[uint64]*projectLock)}
}

// Lock blocks until the caller holds the lock of projectID and returns the
// function that releases it.
func (l *ProjectLocks) Lock(projectID uint64) func() {
	l.mu.Lock()
	pl, ok := l.locks[projectID]
	if !ok {
		pl = &projectLock{}
		l.locks[projectID] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()

		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, projectID)
		}
		l.mu.Unlock()
	}
}

func (l *ProjectLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
