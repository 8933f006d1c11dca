package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// BasisPlan stores the raw base-plan document (room plan, class windows,
// fixed/flexible slot assignments, pause slots) as submitted by the caller.
// The document schema is owned by the base-plan parser, not by this layer.
type BasisPlan struct {
	ID               string         `db:"id" json:"id"`
	AccountID        string         `db:"account_id" json:"account_id"`
	PlanningPeriodID string         `db:"planning_period_id" json:"planning_period_id"`
	Document         types.JSONText `db:"document" json:"document"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
