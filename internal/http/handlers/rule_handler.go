// Rule HTTP handlers.
//
// This file exposes the rule-editing endpoints of the admin surface:
//   - POST   /rules       (upsert-append)
//   - GET    /rules       (list snapshot)
//   - GET    /rules/{id}  (fetch one)
//   - DELETE /rules/{id}  (idempotent delete)
//
// Handlers are transport-thin: they validate input, call the rule store, and
// translate its sentinel errors into HTTP responses. Authentication has
// already happened by the time a handler runs (TokenAuth middleware); the
// authorized principal is used only to attribute edits.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sanchopanca/thunderbot/internal/domain"
	"github.com/sanchopanca/thunderbot/internal/http/middleware"
	"github.com/sanchopanca/thunderbot/internal/rules"
)

// RuleStore defines the rule-editing operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use; mutating calls must
// persist durably before returning success.
type RuleStore interface {
	// Upsert extends the rule with this trigger, or creates it.
	Upsert(ctx context.Context, trigger string, responses []string, updatedBy string) (*domain.Rule, error)
	// Get returns the rule with the given id.
	Get(id string) (*domain.Rule, error)
	// List returns a snapshot of all rules; order is unspecified.
	List() []*domain.Rule
	// Delete removes a rule; unknown ids are a no-op.
	Delete(ctx context.Context, id string) error
}

// Handlers groups the admin API endpoints around one rule store.
type Handlers struct {
	store RuleStore
}

// New constructs a Handlers instance bound to the given store.
func New(store RuleStore) *Handlers {
	return &Handlers{store: store}
}

//
// DTOs
//

// UpsertRuleRequest is the JSON payload for creating or extending a rule.
type UpsertRuleRequest struct {
	// Trigger is the substring that fires the rule. Matching is exact and
	// case-sensitive, so submit it the way messages will contain it.
	Trigger string `json:"trigger" binding:"required"`
	// Responses are appended to the rule's candidate set.
	Responses []string `json:"responses" binding:"required"`
}

// ListRulesResponse wraps the rule snapshot.
type ListRulesResponse struct {
	Rules []*domain.Rule `json:"rules"`
}

//
// Handlers
//

// UpsertRule creates a rule or appends responses to the rule already
// carrying the submitted trigger, and returns the resulting rule state.
func (h *Handlers) UpsertRule(c *gin.Context) {
	var req UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	updatedBy := strconv.FormatUint(middleware.PrincipalID(c), 10)
	rule, err := h.store.Upsert(c.Request.Context(), req.Trigger, req.Responses, updatedBy)
	switch {
	case errors.Is(err, rules.ErrEmptyTrigger):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trigger must not be empty")
		return
	case errors.Is(err, rules.ErrNoResponses):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "responses must not be empty")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, rule)
}

// ListRules returns a snapshot of every rule. Order is unspecified and must
// not be relied on for anything beyond display.
func (h *Handlers) ListRules(c *gin.Context) {
	ok(c, http.StatusOK, ListRulesResponse{Rules: h.store.List()})
}

// GetRule returns a single rule by id.
func (h *Handlers) GetRule(c *gin.Context) {
	rule, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "rule not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rule)
}

// DeleteRule removes a rule. Deleting an unknown id succeeds, so repeated
// deletes are safe.
func (h *Handlers) DeleteRule(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}
