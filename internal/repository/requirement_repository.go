package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timeplan-api/internal/models"
)

// RequirementRepository manages persistence for teaching requirements.
type RequirementRepository struct {
	db *sqlx.DB
}

// NewRequirementRepository constructs a RequirementRepository.
func NewRequirementRepository(db *sqlx.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

const requirementColumns = `id, account_id, class_id, subject_id, teacher_id, weekly_hours,
	double_period_rule, afternoon_rule, participation,
	COALESCE(planning_period_id, '') AS planning_period_id,
	COALESCE(version_id, '') AS version_id, created_at, updated_at`

// ListForPeriod returns the requirement rows for an account and planning
// period in insertion order. Legacy rows whose planning_period_id is still
// unset are included; the loader backfills them. When versionID is given,
// only rows of that distribution version are returned.
func (r *RequirementRepository) ListForPeriod(ctx context.Context, accountID, planningPeriodID string, versionID *string) ([]models.Requirement, error) {
	query := fmt.Sprintf(`SELECT %s FROM requirements
		WHERE account_id = $1 AND (planning_period_id = $2 OR planning_period_id IS NULL OR planning_period_id = '')`, requirementColumns)
	args := []interface{}{accountID, planningPeriodID}

	if versionID != nil && *versionID != "" {
		query += " AND version_id = $3"
		args = append(args, *versionID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	var reqs []models.Requirement
	if err := r.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return reqs, nil
}

// BackfillPlanningPeriod upgrades a legacy requirement row in place, tagging
// it with the planning period it was loaded for.
func (r *RequirementRepository) BackfillPlanningPeriod(ctx context.Context, requirementID, planningPeriodID string) error {
	const query = `UPDATE requirements SET planning_period_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, requirementID, planningPeriodID, time.Now().UTC()); err != nil {
		return fmt.Errorf("backfill requirement planning period: %w", err)
	}
	return nil
}
