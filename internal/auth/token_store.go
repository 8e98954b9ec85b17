// Package auth implements the ephemeral token store that authorizes
// rule-editing sessions. A token is minted when a chat participant asks for
// an edit link, binds that participant's identity immutably, and is valid for
// a fixed window after issuance. Validity is a pure function of elapsed time,
// recomputed on every check; there is no revocation.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the validity window applied when no explicit TTL is given.
const DefaultTTL = 15 * time.Minute

// tokenEntry records the immutable facts about an issued token.
type tokenEntry struct {
	principalID uint64
	issuedAt    time.Time
}

// TokenStore is the process-wide table of issued tokens. Construct with
// NewTokenStore and share by pointer; all methods are safe for concurrent use
// from chat callbacks and HTTP handlers alike.
type TokenStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	tokens map[string]tokenEntry
}

// NewTokenStore returns a TokenStore with the given validity window.
// A non-positive ttl falls back to DefaultTTL.
func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenStore{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]tokenEntry),
	}
}

// Issue mints a fresh token bound to principalID and returns its value.
// Token values are UUIDv4 strings: 122 bits of randomness, collision odds
// cryptographically negligible, safe to embed in a URL query parameter.
func (s *TokenStore) Issue(principalID uint64) string {
	token := uuid.NewString()
	entry := tokenEntry{principalID: principalID, issuedAt: s.now()}

	s.mu.Lock()
	s.tokens[token] = entry
	s.mu.Unlock()
	return token
}

// Validate reports whether token exists and is still inside its validity
// window. Unknown and expired tokens are indistinguishable in the return
// value; callers must not learn which failure occurred.
func (s *TokenStore) Validate(token string) bool {
	_, ok := s.lookup(token)
	return ok
}

// lookup returns the entry for token iff it exists and has not expired.
func (s *TokenStore) lookup(token string) (tokenEntry, bool) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return tokenEntry{}, false
	}
	if s.now().Sub(entry.issuedAt) >= s.ttl {
		return tokenEntry{}, false
	}
	return entry, true
}

// StartSweeper launches a goroutine that periodically evicts expired tokens
// until ctx is done. Eviction only bounds memory; it can never change the
// outcome of Validate, which recomputes validity on every read. A
// non-positive interval defaults to the store's TTL.
func (s *TokenStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictExpired()
			}
		}
	}()
}

// evictExpired removes every token past its validity window.
func (s *TokenStore) evictExpired() {
	now := s.now()
	s.mu.Lock()
	for token, entry := range s.tokens {
		if now.Sub(entry.issuedAt) >= s.ttl {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
}

// len reports the number of retained tokens, expired or not. Test hook.
func (s *TokenStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
