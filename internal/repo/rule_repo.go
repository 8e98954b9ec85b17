// Package repo implements the durable mirror of the rule set, backed by
// GORM. This file provides repository functions for the Rule aggregate.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence. The in-memory store is the authority while the process runs;
// these functions exist so a restart reconstructs the exact rule set.
//
// Error semantics:
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; the store wraps it for callers.
//   - Deleting a rule that does not exist is not an error.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sanchopanca/thunderbot/internal/domain"
)

// ListRules returns every stored rule with its responses in position order.
// Used once at startup to seed the in-memory store.
func ListRules(ctx context.Context, db *gorm.DB) ([]domain.Rule, error) {
	var out []domain.Rule
	err := db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Find(&out).Error
	return out, err
}

// UpsertRule durably writes the full state of a rule. The rule row is
// inserted or updated in place; response rows are append-only, so rows whose
// primary key already exists are left untouched. The whole write is one
// transaction: either the new state is durable or nothing changed.
func UpsertRule(ctx context.Context, db *gorm.DB, r *domain.Rule) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *r
		row.Responses = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return err
		}
		for i := range r.Responses {
			resp := r.Responses[i]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&resp).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRule removes a rule and its responses. Unknown ids are a no-op, so
// the operation is idempotent.
func DeleteRule(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&domain.Response{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Rule{}).Error
	})
}

// Mirror adapts the repository free functions to the Persistence interface
// consumed by the rule store, binding them to one DB handle. This keeps the
// store decoupled from the concrete repo package while reusing existing
// functions.
type Mirror struct {
	DB *gorm.DB
}

// LoadAll proxies ListRules.
func (m *Mirror) LoadAll(ctx context.Context) ([]domain.Rule, error) {
	return ListRules(ctx, m.DB)
}

// SaveUpsert proxies UpsertRule.
func (m *Mirror) SaveUpsert(ctx context.Context, r *domain.Rule) error {
	return UpsertRule(ctx, m.DB, r)
}

// SaveDelete proxies DeleteRule.
func (m *Mirror) SaveDelete(ctx context.Context, id string) error {
	return DeleteRule(ctx, m.DB, id)
}
