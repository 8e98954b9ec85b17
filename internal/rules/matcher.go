// Package rules – Matcher
//
// The matcher decides whether an inbound chat message fires a rule and which
// response to send back. Matching is plain substring containment over exact
// bytes: no case folding, no tokenization, no word boundaries. That is a
// feature, not a shortcut; live rules depend on it for multi-word phrases,
// spaced-out-letter triggers, and emoticon art that no tokenizer survives.
package rules

import (
	"math/rand"
	"strings"
)

// Picker selects a uniformly random index in [0, n). It exists so tests can
// substitute a deterministic sequence for the default math/rand source.
type Picker interface {
	Intn(n int) int
}

// randPicker is the default Picker backed by the shared math/rand source,
// which is safe for concurrent use.
type randPicker struct{}

func (randPicker) Intn(n int) int { return rand.Intn(n) }

// Matcher scans the rule store for each inbound message. It performs only
// read-only traversal and is safe to run concurrently with store mutations.
type Matcher struct {
	store *Store
	pick  Picker
}

// NewMatcher returns a Matcher over store. A nil picker selects the default
// math/rand source.
func NewMatcher(store *Store, pick Picker) *Matcher {
	if pick == nil {
		pick = randPicker{}
	}
	return &Matcher{store: store, pick: pick}
}

// Match reports whether message fires any rule and, if so, returns one of
// the firing rule's responses chosen uniformly at random.
//
// Rules are scanned in unspecified order and the first firing rule wins. A
// rule with an empty response set (unreachable while the store invariant
// holds) is skipped instead of producing an error; the chat listener must
// never be taken down by a malformed rule.
func (m *Matcher) Match(message string) (string, bool) {
	if message == "" {
		return "", false
	}
	for _, r := range m.store.snapshot() {
		if r.Trigger == "" || !strings.Contains(message, r.Trigger) {
			continue
		}
		n := len(r.Responses)
		if n == 0 {
			continue
		}
		return r.Responses[m.pick.Intn(n)].Text, true
	}
	return "", false
}
