/*
Package presence tracks which user each live connection speaks for and keeps the
online flag and the members snapshot in step with connects and disconnects.
*/
package presence

import "sync"

// Sessions maps connection ids to user ids. A user has at most one current
// connection; binding a second one supersedes the first.
type Sessions struct {
	mu     sync.RWMutex
	byConn map[string]string
	byUser map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{
		byConn: make(map[string]string),
		byUser: make(map[string]string),
	}
}

// Bind makes connID the current connection of userID. It returns the connection
// that userID was previously bound to (superseded) and the user connID previously
// spoke for (replaced), either of which may be empty.
func (s *Sessions) Bind(connID, userID string) (superseded, replaced string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prevUser, ok := s.byConn[connID]; ok && prevUser != userID {
		replaced = prevUser
		if s.byUser[prevUser] == connID {
			delete(s.byUser, prevUser)
		}
	}

	if prevConn, ok := s.byUser[userID]; ok && prevConn != connID {
		superseded = prevConn
		delete(s.byConn, prevConn)
	}

	s.byConn[connID] = userID
	s.byUser[userID] = connID
	return superseded, replaced
}

// Unbind forgets connID. current reports whether connID was still the user's
// current connection.
func (s *Sessions) Unbind(connID string) (userID string, current bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.byConn[connID]
	if !ok {
		return "", false
	}
	delete(s.byConn, connID)

	if s.byUser[userID] == connID {
		delete(s.byUser, userID)
		current = true
	}
	return userID, current
}

// Lookup returns the user bound to connID.
func (s *Sessions) Lookup(connID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byConn[connID]
	return userID, ok
}

// ConnFor returns the current connection of userID.
func (s *Sessions) ConnFor(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	connID, ok := s.byUser[userID]
	return connID, ok
}

// Len returns the number of bound connections.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byConn)
}
