// Package domain defines the persistence models for auto-responder rules.
// These types are mapped with GORM and double as the in-memory representation
// held by the rule store: once a rule is published to the store it is treated
// as immutable, so the same value can safely back concurrent matching.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Rule associates a trigger phrase with a set of candidate responses. Any
// inbound chat message containing the trigger as a substring fires the rule,
// and one response is chosen uniformly at random.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), assigned at creation.
//   - Trigger: exact byte sequence looked for in inbound messages. Not
//     unique: two rules may carry the same trigger and both will fire.
//   - Responses: candidate responses in insertion order. A retained rule
//     always has at least one response.
//   - UpdatedBy: identity of the last editor, for audit only.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Rule struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Trigger   string         `json:"trigger"    gorm:"type:text;not null;index:idx_rule_trigger"`
	Responses []Response     `json:"responses"  gorm:"foreignKey:RuleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UpdatedBy string         `json:"updated_by" gorm:"type:varchar(64);not null;default:''"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Rule.
func (Rule) TableName() string { return "rules" }

// ResponseTexts returns the bare response strings in stored order.
func (r *Rule) ResponseTexts() []string {
	out := make([]string, len(r.Responses))
	for i, resp := range r.Responses {
		out[i] = resp.Text
	}
	return out
}

// Clone returns a deep copy of the rule. The store publishes only fresh
// values, so a caller holding a clone can never mutate a snapshot that the
// matcher is reading.
func (r *Rule) Clone() *Rule {
	cp := *r
	cp.Responses = make([]Response, len(r.Responses))
	copy(cp.Responses, r.Responses)
	return &cp
}

// Response is a single candidate reply belonging to a rule. Responses are
// append-only: editing a rule adds rows, it never rewrites existing ones.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RuleID: foreign key to the owning rule (indexed).
//   - Text: the reply sent verbatim back to the channel.
//   - Position: insertion index within the rule, preserved across restarts.
//   - UpdatedBy: identity of the editor that appended this response.
type Response struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	RuleID    string         `json:"rule_id"    gorm:"type:char(36);not null;index:idx_rule_responses,priority:1"`
	Text      string         `json:"text"       gorm:"type:text;not null"`
	Position  int            `json:"position"   gorm:"not null;index:idx_rule_responses,priority:2"`
	UpdatedBy string         `json:"updated_by" gorm:"type:varchar(64);not null;default:''"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Response.
func (Response) TableName() string { return "responses" }
