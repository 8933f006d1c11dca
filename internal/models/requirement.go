package models

import "time"

// Requirement is one class/subject/teacher/weekly-hours tuple describing how
// much teaching time must be scheduled for a planning period.
type Requirement struct {
	ID               string    `db:"id" json:"id"`
	AccountID        string    `db:"account_id" json:"account_id"`
	ClassID          string    `db:"class_id" json:"class_id"`
	SubjectID        string    `db:"subject_id" json:"subject_id"`
	TeacherID        string    `db:"teacher_id" json:"teacher_id"`
	WeeklyHours      int       `db:"weekly_hours" json:"weekly_hours"`
	DoublePeriodRule string    `db:"double_period_rule" json:"double_period_rule"`
	AfternoonRule    string    `db:"afternoon_rule" json:"afternoon_rule"`
	Participation    string    `db:"participation" json:"participation"`
	PlanningPeriodID string    `db:"planning_period_id" json:"planning_period_id"`
	VersionID        string    `db:"version_id" json:"version_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
