package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timeplan-api/internal/models"
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

// PlanRepository manages persistence for generated plans and their slots.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs a PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, account_id, name, planning_period_id, version_id, version, rule_profile_id,
	status, seed, objective_value, score, comment, rules_snapshot, rule_keys_active, params_used,
	created_at, updated_at`

// Create inserts a plan header.
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	const query = `INSERT INTO plans (id, account_id, name, planning_period_id, version_id, version, rule_profile_id,
			status, seed, objective_value, score, comment, rules_snapshot, rule_keys_active, params_used,
			created_at, updated_at)
		VALUES (:id, :account_id, :name, :planning_period_id, :version_id, :version, :rule_profile_id,
			:status, :seed, :objective_value, :score, :comment, :rules_snapshot, :rule_keys_active, :params_used,
			:created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// CreateSlots batch-inserts the decoded slots of a plan.
func (r *PlanRepository) CreateSlots(ctx context.Context, planID string, slots []models.PlanSlot) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range slots {
		slots[i].PlanID = planID
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
	}

	const query = `INSERT INTO plan_slots (id, plan_id, class_id, subject_id, teacher_id, day, period, is_fixed, is_flexible, created_at)
		VALUES (:id, :plan_id, :class_id, :subject_id, :teacher_id, :day, :period, :is_fixed, :is_flexible, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slots); err != nil {
		return fmt.Errorf("create plan slots: %w", err)
	}
	return nil
}

// GetByID fetches a plan header, enforcing tenancy: a plan belonging to a
// different account is reported as forbidden, not leaked as not-found.
func (r *PlanRepository) GetByID(ctx context.Context, accountID, id string) (*models.Plan, error) {
	query := fmt.Sprintf("SELECT %s FROM plans WHERE id = $1", planColumns)
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPlannerNotFound, "Plan wurde nicht gefunden")
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if plan.AccountID != accountID {
		return nil, appErrors.ErrAccessForbidden
	}
	return &plan, nil
}

// ListForPeriod returns an account's plans for a planning period, most
// recent first.
func (r *PlanRepository) ListForPeriod(ctx context.Context, accountID, planningPeriodID string) ([]models.Plan, error) {
	query := fmt.Sprintf(`SELECT %s FROM plans
		WHERE account_id = $1 AND planning_period_id = $2
		ORDER BY created_at DESC`, planColumns)
	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, query, accountID, planningPeriodID); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// GetSlots returns the slots of a plan ordered for stable output.
func (r *PlanRepository) GetSlots(ctx context.Context, planID string) ([]models.PlanSlot, error) {
	const query = `SELECT id, plan_id, class_id, subject_id, teacher_id, day, period, is_fixed, is_flexible, created_at
		FROM plan_slots WHERE plan_id = $1
		ORDER BY class_id ASC, day ASC, period ASC`
	var slots []models.PlanSlot
	if err := r.db.SelectContext(ctx, &slots, query, planID); err != nil {
		return nil, fmt.Errorf("get plan slots: %w", err)
	}
	return slots, nil
}

// Delete removes a plan and its slots.
func (r *PlanRepository) Delete(ctx context.Context, accountID, id string) error {
	if _, err := r.GetByID(ctx, accountID, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM plan_slots WHERE plan_id = $1", id); err != nil {
		return fmt.Errorf("delete plan slots: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM plans WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}
