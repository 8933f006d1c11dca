package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Plan statuses.
const (
	PlanStatusDraft     = "DRAFT"
	PlanStatusPublished = "PUBLISHED"
	PlanStatusArchived  = "ARCHIVED"
)

// Plan is one search run's result: a versioned, persisted weekly timetable
// together with the rule configuration and solver parameters that produced
// it.
type Plan struct {
	ID               string         `db:"id" json:"id"`
	AccountID        string         `db:"account_id" json:"account_id"`
	Name             string         `db:"name" json:"name"`
	PlanningPeriodID string         `db:"planning_period_id" json:"planning_period_id"`
	VersionID        string         `db:"version_id" json:"version_id"`
	Version          int            `db:"version" json:"version"`
	RuleProfileID    *string        `db:"rule_profile_id" json:"rule_profile_id,omitempty"`
	Status           string         `db:"status" json:"status"`
	Seed             int64          `db:"seed" json:"seed"`
	ObjectiveValue   float64        `db:"objective_value" json:"objective_value"`
	Score            float64        `db:"score" json:"score"`
	Comment          string         `db:"comment" json:"comment,omitempty"`
	RulesSnapshot    types.JSONText `db:"rules_snapshot" json:"rules_snapshot"`
	RuleKeysActive   types.JSONText `db:"rule_keys_active" json:"rule_keys_active"`
	ParamsUsed       types.JSONText `db:"params_used" json:"params_used"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// PlanSlot is a single decoded (class, day, period) assignment belonging to
// a Plan.
type PlanSlot struct {
	ID         string    `db:"id" json:"id"`
	PlanID     string    `db:"plan_id" json:"plan_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	Day        string    `db:"day" json:"day"`
	Period     int       `db:"period" json:"period"`
	IsFixed    bool      `db:"is_fixed" json:"is_fixed"`
	IsFlexible bool      `db:"is_flexible" json:"is_flexible"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
