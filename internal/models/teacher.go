package models

import "time"

// Teacher represents an instructor record, including the weekly workday
// mask used by availability and gap constraints.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	ShortCode string    `db:"short_code" json:"short_code"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Active    bool      `db:"active" json:"active"`
	WorkMo    bool      `db:"work_mo" json:"work_mo"`
	WorkDi    bool      `db:"work_di" json:"work_di"`
	WorkMi    bool      `db:"work_mi" json:"work_mi"`
	WorkDo    bool      `db:"work_do" json:"work_do"`
	WorkFr    bool      `db:"work_fr" json:"work_fr"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// poolShortCode and poolFullName identify the pool-teacher sentinel that is
// exempt from teacher non-overlap constraints.
const (
	poolShortCode = "POOL"
	poolFullName  = "Lehrkräfte-Pool"
)

// IsPool reports whether this teacher is the pool-teacher sentinel used for
// requirements that are not tied to one real instructor.
func (t Teacher) IsPool() bool {
	return t.ShortCode == poolShortCode || t.FullName == poolFullName
}

// WorkdayMask returns the five-day availability mask in Mo..Fr order,
// matching the planner's CanonicalDays ordering.
func (t Teacher) WorkdayMask() [5]bool {
	return [5]bool{t.WorkMo, t.WorkDi, t.WorkMi, t.WorkDo, t.WorkFr}
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
