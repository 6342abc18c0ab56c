package repository

import (
	"context"
	"fmt"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ExpenseRepository) WithTx(tx *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: tx}
}

// BulkUpsert inserts expenses, overwriting an existing row when the same Fyle
// expense id is fetched again
func (r *ExpenseRepository) BulkUpsert(ctx context.Context, expenses []models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "expense_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"employee_email", "employee_name", "category", "sub_category", "project",
			"expense_number", "claim_number", "amount", "currency", "state", "vendor",
			"cost_center", "purpose", "report_id", "fund_source", "file_ids",
			"custom_properties", "spent_at", "approved_at", "posted_at", "verified_at",
			"expense_updated_at", "updated_at",
		}),
	}).Create(&expenses)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert expenses: %w", result.Error)
	}
	return nil
}

// MarkSkipped flags expenses excluded by expense filters so they are not
// grouped into accounting exports
func (r *ExpenseRepository) MarkSkipped(ctx context.Context, expenseIDs []string) error {
	if len(expenseIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Expense{}).
		Where("id IN ?", expenseIDs).
		Update("is_skipped", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark expenses skipped: %w", result.Error)
	}
	return nil
}
