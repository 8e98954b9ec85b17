package auth

import "errors"

// ErrUnauthorized is the single error returned for every failed
// authorization. Invalid, expired, and never-issued tokens all collapse into
// it on purpose: the external contract must not leak which failure occurred.
// The missing-credential case (HTTP 401 vs 403) is distinguished by the
// caller before the gate is ever consulted.
var ErrUnauthorized = errors.New("invalid or expired token")

// Gate is the authorization check in front of the rule-editing surface.
// It wraps a TokenStore and, on success, reveals the bound principal so the
// admin surface can attribute edits.
type Gate struct {
	tokens *TokenStore
}

// NewGate returns a Gate over the given token store.
func NewGate(tokens *TokenStore) *Gate {
	return &Gate{tokens: tokens}
}

// Authorize returns the principal bound to token, or ErrUnauthorized.
func (g *Gate) Authorize(token string) (uint64, error) {
	entry, ok := g.tokens.lookup(token)
	if !ok {
		return 0, ErrUnauthorized
	}
	return entry.principalID, nil
}
