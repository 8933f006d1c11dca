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
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

// RuleProfileRepository manages persistence for rule profiles.
type RuleProfileRepository struct {
	db *sqlx.DB
}

// NewRuleProfileRepository constructs a RuleProfileRepository.
func NewRuleProfileRepository(db *sqlx.DB) *RuleProfileRepository {
	return &RuleProfileRepository{db: db}
}

const ruleProfileColumns = "id, account_id, name, rules, created_at, updated_at"

// GetByID fetches a rule profile. A missing row maps to the planner's
// not-found error; tenancy is checked by the caller against AccountID.
func (r *RuleProfileRepository) GetByID(ctx context.Context, id string) (*models.RuleProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM rule_profiles WHERE id = $1", ruleProfileColumns)
	var profile models.RuleProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPlannerNotFound, "Regelprofil wurde nicht gefunden")
		}
		return nil, fmt.Errorf("get rule profile: %w", err)
	}
	return &profile, nil
}

// ListForAccount returns an account's rule profiles ordered by name.
func (r *RuleProfileRepository) ListForAccount(ctx context.Context, accountID string) ([]models.RuleProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM rule_profiles WHERE account_id = $1 ORDER BY name ASC", ruleProfileColumns)
	var profiles []models.RuleProfile
	if err := r.db.SelectContext(ctx, &profiles, query, accountID); err != nil {
		return nil, fmt.Errorf("list rule profiles: %w", err)
	}
	return profiles, nil
}

// Create inserts a new rule profile.
func (r *RuleProfileRepository) Create(ctx context.Context, profile *models.RuleProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO rule_profiles (id, account_id, name, rules, created_at, updated_at)
		VALUES (:id, :account_id, :name, :rules, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create rule profile: %w", err)
	}
	return nil
}
