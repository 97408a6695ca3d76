package conversation

import "sync"

// Store holds live sessions in memory. Acquire hands out a session under
// its own lock so turns on the same session serialize while different
// sessions proceed in parallel.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*lockedSession
}

type lockedSession struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*lockedSession)}
}

// Acquire returns the session for id, creating it on first use, locked for
// exclusive use. The caller must call release when the turn is done.
func (st *Store) Acquire(id string) (sess *Session, release func()) {
	st.mu.Lock()
	ls, ok := st.sessions[id]
	if !ok {
		ls = &lockedSession{sess: NewSession(id)}
		st.sessions[id] = ls
	}
	st.mu.Unlock()

	ls.mu.Lock()
	return ls.sess, ls.mu.Unlock
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
