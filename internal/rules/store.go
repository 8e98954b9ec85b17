// Package rules – Store
//
// This file implements the authoritative in-memory rule table. The store is
// a read-through/write-through cache over a durable Persistence collaborator:
// it is seeded once at startup via Load, and every mutation is persisted
// durably *before* it becomes visible in memory. A persistence failure
// therefore leaves the servable rule set exactly as it was.
//
// Concurrency model:
//   - A global RWMutex guards the maps; readers (Get/List/snapshot) only ever
//     take the read lock.
//   - Upserts and deletes are serialized per trigger through a keyed mutex,
//     so concurrent edits of the same trigger cannot lose an appended
//     response while edits of distinct triggers never contend.
//   - Published *domain.Rule values are immutable: an upsert builds a fresh
//     candidate, persists it, and swaps the pointer in. A concurrent match
//     traversal sees each rule either fully before or fully after the edit.
package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sanchopanca/thunderbot/internal/domain"
)

// Persistence is the durable mirror consumed by the Store. Implementations
// are synchronous and fallible; the store never retries on its own.
type Persistence interface {
	// LoadAll returns every stored rule, used to seed the store at startup.
	LoadAll(ctx context.Context) ([]domain.Rule, error)

	// SaveUpsert durably writes the full state of a rule (new or extended).
	SaveUpsert(ctx context.Context, r *domain.Rule) error

	// SaveDelete durably removes a rule and its responses. Removing an
	// unknown id is not an error.
	SaveDelete(ctx context.Context, id string) error
}

// Store is the process-wide rule table. Construct with NewStore and share by
// pointer; all methods are safe for concurrent use.
type Store struct {
	persist Persistence
	now     func() time.Time

	mu        sync.RWMutex
	byID      map[string]*domain.Rule
	byTrigger map[string]string // trigger -> id of the rule upserts append to

	lmu   sync.Mutex
	locks map[string]*sync.Mutex // per-trigger write serialization
}

// NewStore returns an empty Store mirrored to p. Call Load to seed it from
// durable state before serving traffic.
func NewStore(p Persistence) *Store {
	return &Store{
		persist:   p,
		now:       time.Now,
		byID:      make(map[string]*domain.Rule),
		byTrigger: make(map[string]string),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Load replaces the in-memory table with the durable rule set. Rules that
// violate the non-empty-responses invariant are dropped rather than retained.
// When several stored rules share a trigger all of them remain matchable,
// but only the first one seen becomes the append target for future upserts.
func (s *Store) Load(ctx context.Context) error {
	stored, err := s.persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	byID := make(map[string]*domain.Rule, len(stored))
	byTrigger := make(map[string]string, len(stored))
	for i := range stored {
		r := stored[i].Clone()
		if r.Trigger == "" || len(r.Responses) == 0 {
			continue
		}
		byID[r.ID] = r
		if _, ok := byTrigger[r.Trigger]; !ok {
			byTrigger[r.Trigger] = r.ID
		}
	}

	s.mu.Lock()
	s.byID = byID
	s.byTrigger = byTrigger
	s.mu.Unlock()
	return nil
}

// Upsert extends the rule carrying trigger with the given responses, or
// creates a new rule when the trigger is unknown. Responses are appended
// as-is (no deduplication); blank responses are discarded up front.
//
// The new state is durably persisted before it is committed to memory, and
// the returned rule is a private copy of the committed state.
func (s *Store) Upsert(ctx context.Context, trigger string, responses []string, updatedBy string) (*domain.Rule, error) {
	tr := otel.Tracer("rules/Store")
	ctx, span := tr.Start(ctx, "Upsert",
		trace.WithAttributes(attribute.Int("rule.responses", len(responses))),
	)
	defer span.End()

	if trigger == "" {
		return nil, ErrEmptyTrigger
	}
	kept := make([]string, 0, len(responses))
	for _, resp := range responses {
		if strings.TrimSpace(resp) != "" {
			kept = append(kept, resp)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoResponses
	}

	lk := s.triggerLock(trigger)
	lk.Lock()
	defer lk.Unlock()

	s.mu.RLock()
	var cur *domain.Rule
	if id, ok := s.byTrigger[trigger]; ok {
		cur = s.byID[id]
	}
	s.mu.RUnlock()

	now := s.now().UTC()
	var next *domain.Rule
	if cur == nil {
		next = &domain.Rule{
			ID:        uuid.NewString(),
			Trigger:   trigger,
			UpdatedBy: updatedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		next = cur.Clone()
		next.UpdatedBy = updatedBy
		next.UpdatedAt = now
	}
	for _, text := range kept {
		next.Responses = append(next.Responses, domain.Response{
			ID:        uuid.NewString(),
			RuleID:    next.ID,
			Text:      text,
			Position:  len(next.Responses),
			UpdatedBy: updatedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.persist.SaveUpsert(ctx, next); err != nil {
		return nil, fmt.Errorf("persist rule %s: %w", next.ID, err)
	}

	s.mu.Lock()
	s.byID[next.ID] = next
	s.byTrigger[trigger] = next.ID
	s.mu.Unlock()

	span.SetAttributes(attribute.String("rule.id", next.ID))
	return next.Clone(), nil
}

// Get returns a copy of the rule with the given id, or ErrRuleNotFound.
func (s *Store) Get(id string) (*domain.Rule, error) {
	s.mu.RLock()
	r, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r.Clone(), nil
}

// List returns a snapshot of every rule at call time. Iteration order is
// unspecified; callers must not depend on it beyond display.
func (s *Store) List() []*domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Rule, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r.Clone())
	}
	return out
}

// Delete removes the rule with the given id from durable storage and then
// from memory. Deleting an unknown id is a no-op, so the call is idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("rules/Store")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("rule.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	cur, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	lk := s.triggerLock(cur.Trigger)
	lk.Lock()
	defer lk.Unlock()

	if err := s.persist.SaveDelete(ctx, id); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.byID, id)
	if s.byTrigger[cur.Trigger] == id {
		delete(s.byTrigger, cur.Trigger)
		// Another rule may carry the same trigger; make it the append target.
		for rid, r := range s.byID {
			if r.Trigger == cur.Trigger {
				s.byTrigger[cur.Trigger] = rid
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// snapshot returns the live rule pointers for read-only traversal by the
// matcher. The pointed-to rules are immutable; the slice is private.
func (s *Store) snapshot() []*domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Rule, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out
}

// triggerLock returns the mutex serializing writes for trigger, creating it
// on first use. Entries are never evicted; the map is bounded by the number
// of distinct triggers ever edited.
func (s *Store) triggerLock(trigger string) *sync.Mutex {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	lk, ok := s.locks[trigger]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[trigger] = lk
	}
	return lk
}
