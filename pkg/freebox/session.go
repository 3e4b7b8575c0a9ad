package freebox

import "sync"

// Session holds the state derived from the last authentication. It is
// written only by the authenticator; everything else reads it.
type Session struct {
	mu      sync.RWMutex
	token   string
	info    *APIVersion
	infoErr error
}

// Token returns the current session token ("" until the first successful authentication)
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Info returns the box description fetched after the last authentication,
// together with the error of that fetch, if any.
func (s *Session) Info() (*APIVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return nil, s.infoErr
	}
	info := *s.info
	return &info, s.infoErr
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) setInfo(info *APIVersion, err error) {
	s.mu.Lock()
	s.info = info
	s.infoErr = err
	s.mu.Unlock()
}
