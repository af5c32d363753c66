package services

import "sync"

// DocumentLocks serialises mutations per document. Chunking and embedding
// of one document never overlap, while different documents proceed in
// parallel. Locks are reference counted and dropped once no caller holds
// or waits on them.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

// NewDocumentLocks creates an empty lock table.
func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{locks: make(map[string]*docLock)}
}

// Lock acquires the mutex for documentID and returns its release function.
func (l *DocumentLocks) Lock(documentID string) func() {
	l.mu.Lock()
	dl, ok := l.locks[documentID]
	if !ok {
		dl = &docLock{}
		l.locks[documentID] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()
	return func() {
		dl.mu.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, documentID)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live locks.
func (l *DocumentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
