package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sanchopanca/thunderbot/internal/domain"
	"github.com/sanchopanca/thunderbot/internal/rules"
)

// ----- Fake store -----

type fakeStore struct {
	upsertTrigger   string
	upsertResponses []string
	upsertBy        string
	upsertRule      *domain.Rule
	upsertErr       error

	getID   string
	getRule *domain.Rule
	getErr  error

	listRules []*domain.Rule

	deleteID  string
	deleteErr error
}

func (s *fakeStore) Upsert(ctx context.Context, trigger string, responses []string, updatedBy string) (*domain.Rule, error) {
	s.upsertTrigger, s.upsertResponses, s.upsertBy = trigger, responses, updatedBy
	return s.upsertRule, s.upsertErr
}

func (s *fakeStore) Get(id string) (*domain.Rule, error) {
	s.getID = id
	return s.getRule, s.getErr
}

func (s *fakeStore) List() []*domain.Rule { return s.listRules }

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.deleteID = id
	return s.deleteErr
}

func newRuleRouter(s RuleStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(s)
	r.POST("/rules", h.UpsertRule)
	r.GET("/rules", h.ListRules)
	r.GET("/rules/:id", h.GetRule)
	r.DELETE("/rules/:id", h.DeleteRule)
	return r
}

// ----- Upsert -----

func TestUpsertRule_OK(t *testing.T) {
	s := &fakeStore{upsertRule: &domain.Rule{ID: "r1", Trigger: "kpop time"}}
	r := newRuleRouter(s)

	body := `{"trigger":"kpop time","responses":["https://youtu.be/x"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (body %s)", w.Code, w.Body.String())
	}
	if s.upsertTrigger != "kpop time" || len(s.upsertResponses) != 1 {
		t.Fatalf("store called with (%q, %v)", s.upsertTrigger, s.upsertResponses)
	}
	// No auth middleware installed: attribution falls back to principal 0.
	if s.upsertBy != "0" {
		t.Fatalf("updatedBy = %q; want \"0\"", s.upsertBy)
	}
}

func TestUpsertRule_InvalidJSON(t *testing.T) {
	r := newRuleRouter(&fakeStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestUpsertRule_ValidationErrorsMapTo400(t *testing.T) {
	for _, sentinel := range []error{rules.ErrEmptyTrigger, rules.ErrNoResponses} {
		s := &fakeStore{upsertErr: sentinel}
		r := newRuleRouter(s)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rules",
			strings.NewReader(`{"trigger":"t","responses":[""]}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%v: status = %d; want 400", sentinel, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Code != ErrCodeBadRequest {
			t.Fatalf("%v: code = %q; want %q", sentinel, resp.Code, ErrCodeBadRequest)
		}
	}
}

func TestUpsertRule_PersistenceFailureMapsTo500(t *testing.T) {
	s := &fakeStore{upsertErr: errors.New("persist rule r1: disk on fire")}
	r := newRuleRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rules",
		strings.NewReader(`{"trigger":"t","responses":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeSaveFailed {
		t.Fatalf("code = %q; want %q", resp.Code, ErrCodeSaveFailed)
	}
}

// ----- List / Get -----

func TestListRules_ReturnsSnapshot(t *testing.T) {
	s := &fakeStore{listRules: []*domain.Rule{
		{ID: "r1", Trigger: "a"},
		{ID: "r2", Trigger: "b"},
	}}
	r := newRuleRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rules", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var resp ListRulesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Rules) != 2 {
		t.Fatalf("rules = %d; want 2", len(resp.Rules))
	}
}

func TestGetRule_FoundAndNotFound(t *testing.T) {
	s := &fakeStore{getRule: &domain.Rule{ID: "r1", Trigger: "t"}}
	r := newRuleRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rules/r1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("found: status = %d; want 200", w.Code)
	}
	if s.getID != "r1" {
		t.Fatalf("store asked for %q; want r1", s.getID)
	}

	s.getRule, s.getErr = nil, rules.ErrRuleNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rules/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d; want 404", w.Code)
	}
}

// ----- Delete -----

func TestDeleteRule_NoContent(t *testing.T) {
	s := &fakeStore{}
	r := newRuleRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rules/r1", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204", w.Code)
	}
	if s.deleteID != "r1" {
		t.Fatalf("store deleted %q; want r1", s.deleteID)
	}
}

func TestDeleteRule_PersistenceFailure(t *testing.T) {
	s := &fakeStore{deleteErr: errors.New("delete rule r1: db gone")}
	r := newRuleRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rules/r1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
}
