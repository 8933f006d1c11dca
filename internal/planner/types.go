// Package planner implements the weekly-timetable generation pipeline: a
// requirements loader, a base-plan parser, a rule resolver, a
// constraint-model builder over the package's own CP-SAT-style solver, and
// a multi-start search orchestrator plus result decoder.
package planner

// CanonicalDays is the fixed, ordered set of weekday tags the planner works
// in. Index order doubles as the day index used throughout the builder.
var CanonicalDays = [5]string{"Mo", "Di", "Mi", "Do", "Fr"}

// dayKeyToTag maps the loose input day keys accepted in a base-plan document
// to the canonical day tags above.
var dayKeyToTag = map[string]string{
	"mon": "Mo",
	"tue": "Di",
	"wed": "Mi",
	"thu": "Do",
	"fri": "Fr",
}

// dayIndex returns the 0-based index of a canonical day tag, or -1 if unknown.
func dayIndex(tag string) int {
	for i, d := range CanonicalDays {
		if d == tag {
			return i
		}
	}
	return -1
}

const (
	// morningPeriods is the number of periods the afternoon-related
	// constraints treat as "morning" (p < 6).
	morningPeriods = 6
)

// Double-period discipline values.
const (
	DoubleMust   = "must"
	DoubleShould = "should"
	DoubleMay    = "may"
	DoubleNever  = "never"
)

// Afternoon placement rules (per-requirement).
const (
	AfternoonMust  = "must"
	AfternoonMay   = "may"
	AfternoonNever = "never"
)

// Participation kinds.
const (
	ParticipationCurriculum = "curriculum"
	ParticipationAG         = "ag"
)

// RequirementRow is the flat, indexed view of one requirement the rest of
// the pipeline keys on by its slice position (`fid`).
type RequirementRow struct {
	FID                  int
	ID                   string
	ClassID              string
	ClassName            string
	SubjectID            string
	SubjectName          string
	CanonicalSubjectID   string
	CanonicalSubjectName string
	TeacherID            string
	TeacherName          string
	WeeklyHours          int
	DoublePeriodRule     string
	AfternoonRule        string
	Participation        string
	RequiredRoomID       string
	IsBandSubject        bool
}

// SlotMeta describes one (index, label, start/end, is_pause) entry of the
// ordered slot-metadata sequence.
type SlotMeta struct {
	Index   int     `json:"index"`
	Label   string  `json:"label"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
	IsPause bool    `json:"is_pause"`
}

// SlotOut is one decoded (class, day, period) assignment in the final plan.
type SlotOut struct {
	ClassID    string `json:"class_id"`
	Day        string `json:"day"`
	Period     int    `json:"period"`
	SubjectID  string `json:"subject_id"`
	TeacherID  string `json:"teacher_id"`
	RoomID     string `json:"room_id,omitempty"`
	RoomName   string `json:"room_name,omitempty"`
	IsFixed    bool   `json:"is_fixed"`
	IsFlexible bool   `json:"is_flexible"`
}
