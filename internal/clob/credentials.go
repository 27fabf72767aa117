package clob

import (
	"strings"
	"sync"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
)

// CredentialStore caches L2 credentials issued or derived during this
// process's lifetime, keyed by signer address.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]auth.APIKey
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]auth.APIKey)}
}

func (s *CredentialStore) Get(address string) (auth.APIKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[strings.ToLower(address)]
	return c, ok
}

func (s *CredentialStore) Put(address string, creds auth.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[strings.ToLower(address)] = creds
}

func (s *CredentialStore) Delete(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, strings.ToLower(address))
}
