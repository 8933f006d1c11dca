package models

import "time"

// Participation kinds.
const (
	ParticipationCurriculum = "curriculum"
	ParticipationAG         = "ag"
)

// Subject represents an academic subject or canonical teaching discipline.
type Subject struct {
	ID                   string    `db:"id" json:"id"`
	Code                 string    `db:"code" json:"code"`
	Name                 string    `db:"name" json:"name"`
	RequiredRoomID       *string   `db:"required_room_id" json:"required_room_id,omitempty"`
	IsBand               bool      `db:"is_band" json:"is_band"`
	IsAG                 bool      `db:"is_ag" json:"is_ag"`
	AliasSubjectID       *string   `db:"alias_subject_id" json:"alias_subject_id,omitempty"`
	DefaultDoubleRule    string    `db:"default_double_rule" json:"default_double_rule"`
	DefaultAfternoonRule string    `db:"default_afternoon_rule" json:"default_afternoon_rule"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
