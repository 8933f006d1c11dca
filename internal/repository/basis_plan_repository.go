package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timeplan-api/internal/models"
)

// BasisPlanRepository manages persistence for base-plan documents.
type BasisPlanRepository struct {
	db *sqlx.DB
}

// NewBasisPlanRepository constructs a BasisPlanRepository.
func NewBasisPlanRepository(db *sqlx.DB) *BasisPlanRepository {
	return &BasisPlanRepository{db: db}
}

const basisPlanColumns = "id, account_id, planning_period_id, document, created_at, updated_at"

// GetLatest returns the most recently stored base plan for an account and
// planning period, or nil when the period has none (the parser then works
// from the default empty document).
func (r *BasisPlanRepository) GetLatest(ctx context.Context, accountID, planningPeriodID string) (*models.BasisPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM basis_plans
		WHERE account_id = $1 AND planning_period_id = $2
		ORDER BY created_at DESC LIMIT 1`, basisPlanColumns)
	var plan models.BasisPlan
	if err := r.db.GetContext(ctx, &plan, query, accountID, planningPeriodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest basis plan: %w", err)
	}
	return &plan, nil
}

// Upsert stores a base-plan document for a planning period, replacing any
// previous document for the same period.
func (r *BasisPlanRepository) Upsert(ctx context.Context, plan *models.BasisPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	const query = `INSERT INTO basis_plans (id, account_id, planning_period_id, document, created_at, updated_at)
		VALUES (:id, :account_id, :planning_period_id, :document, :created_at, :updated_at)
		ON CONFLICT (account_id, planning_period_id)
		DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("upsert basis plan: %w", err)
	}
	return nil
}
