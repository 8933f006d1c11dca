package planner

import (
	"context"
	"sort"

	"github.com/noah-isme/timeplan-api/internal/models"
)

// maxAliasChain bounds how many alias hops canonicalize will follow
// before treating the chain as cyclic.
const maxAliasChain = 64

// RequirementRepository is the persistence boundary the loader reads
// requirement rows through, and the only thing it writes back to (the
// planning-period backfill).
type RequirementRepository interface {
	ListForPeriod(ctx context.Context, tenantID, planningPeriodID string, versionID *string) ([]models.Requirement, error)
	BackfillPlanningPeriod(ctx context.Context, requirementID, planningPeriodID string) error
}

// CatalogRepository supplies the reference data (subjects, teachers,
// classes, rooms) a requirement row is resolved against.
type CatalogRepository interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// LoaderResult is the loader's output: the flat requirement rows plus every
// lookup map the rest of the pipeline needs.
type LoaderResult struct {
	Rows []RequirementRow

	ClassNameByID   map[string]string
	TeacherNameByID map[string]string
	SubjectNameByID map[string]string
	RoomNameByID    map[string]string

	RequiredRoomBySubjectID map[string]string

	CanonicalSubjectIDByID   map[string]string
	CanonicalSubjectNameByID map[string]string

	TeacherWorkdayMask map[string][5]bool
	PoolTeacherIDs     map[string]bool

	SortedClassIDs   []string // sorted by class name
	SortedTeacherIDs []string // sorted by teacher name

	Rooms []models.Room
}

// Loader reads and normalizes the requirement set for a planning period.
type Loader struct {
	requirements RequirementRepository
	catalog      CatalogRepository
}

// NewLoader constructs a Loader over its two persistence collaborators.
func NewLoader(requirements RequirementRepository, catalog CatalogRepository) *Loader {
	return &Loader{requirements: requirements, catalog: catalog}
}

// Load reads and normalizes the requirement set for a (tenant, planning
// period, optional version). An empty result is not an error here; the
// service surfaces the user-facing "no requirements" condition.
func (l *Loader) Load(ctx context.Context, tenantID, planningPeriodID string, versionID *string) (*LoaderResult, error) {
	reqs, err := l.requirements.ListForPeriod(ctx, tenantID, planningPeriodID, versionID)
	if err != nil {
		return nil, err
	}

	subjects, err := l.catalog.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := l.catalog.ListTeachers(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := l.catalog.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := l.catalog.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	res := &LoaderResult{
		ClassNameByID:            make(map[string]string, len(classes)),
		TeacherNameByID:          make(map[string]string, len(teachers)),
		SubjectNameByID:          make(map[string]string, len(subjects)),
		RoomNameByID:             make(map[string]string, len(rooms)),
		RequiredRoomBySubjectID:  make(map[string]string),
		CanonicalSubjectIDByID:   make(map[string]string, len(subjects)),
		CanonicalSubjectNameByID: make(map[string]string, len(subjects)),
		TeacherWorkdayMask:       make(map[string][5]bool, len(teachers)),
		PoolTeacherIDs:           make(map[string]bool),
		Rooms:                    rooms,
	}

	for _, c := range classes {
		res.ClassNameByID[c.ID] = c.Name
	}
	for _, r := range rooms {
		res.RoomNameByID[r.ID] = r.Name
	}
	for _, t := range teachers {
		res.TeacherNameByID[t.ID] = t.FullName
		res.TeacherWorkdayMask[t.ID] = t.WorkdayMask()
		if t.IsPool() {
			res.PoolTeacherIDs[t.ID] = true
		}
	}

	subjectByID := make(map[string]models.Subject, len(subjects))
	for _, s := range subjects {
		subjectByID[s.ID] = s
		res.SubjectNameByID[s.ID] = s.Name
		if s.RequiredRoomID != nil {
			res.RequiredRoomBySubjectID[s.ID] = *s.RequiredRoomID
		}
	}
	for id := range subjectByID {
		canonID, canonName := canonicalize(id, subjectByID)
		res.CanonicalSubjectIDByID[id] = canonID
		res.CanonicalSubjectNameByID[id] = canonName
	}

	rows := make([]RequirementRow, 0, len(reqs))
	for i, r := range reqs {
		if r.PlanningPeriodID == "" {
			if err := l.requirements.BackfillPlanningPeriod(ctx, r.ID, planningPeriodID); err != nil {
				return nil, err
			}
			r.PlanningPeriodID = planningPeriodID
		}
		subj := subjectByID[r.SubjectID]
		doubleRule := r.DoublePeriodRule
		if doubleRule == "" {
			doubleRule = subj.DefaultDoubleRule
		}
		if doubleRule == "" {
			doubleRule = DoubleMay
		}
		afternoonRule := r.AfternoonRule
		if afternoonRule == "" {
			afternoonRule = subj.DefaultAfternoonRule
		}
		if afternoonRule == "" {
			afternoonRule = AfternoonMay
		}
		row := RequirementRow{
			FID:                  i,
			ID:                   r.ID,
			ClassID:              r.ClassID,
			ClassName:            res.ClassNameByID[r.ClassID],
			SubjectID:            r.SubjectID,
			SubjectName:          res.SubjectNameByID[r.SubjectID],
			CanonicalSubjectID:   res.CanonicalSubjectIDByID[r.SubjectID],
			CanonicalSubjectName: res.CanonicalSubjectNameByID[r.SubjectID],
			TeacherID:            r.TeacherID,
			TeacherName:          res.TeacherNameByID[r.TeacherID],
			WeeklyHours:          r.WeeklyHours,
			DoublePeriodRule:     doubleRule,
			AfternoonRule:        afternoonRule,
			Participation:        r.Participation,
			RequiredRoomID:       res.RequiredRoomBySubjectID[r.SubjectID],
			IsBandSubject:        subj.IsBand,
		}
		rows = append(rows, row)
	}
	res.Rows = rows

	res.SortedClassIDs = sortIDsByName(res.ClassNameByID)
	res.SortedTeacherIDs = sortIDsByName(res.TeacherNameByID)

	return res, nil
}

// canonicalize follows alias_subject_id hops until the chain ends or a
// cycle is detected, breaking on the first repeated id.
func canonicalize(start string, byID map[string]models.Subject) (id, name string) {
	seen := make(map[string]bool, maxAliasChain)
	cur := start
	for i := 0; i < maxAliasChain; i++ {
		if seen[cur] {
			break
		}
		seen[cur] = true
		s, ok := byID[cur]
		if !ok || s.AliasSubjectID == nil || *s.AliasSubjectID == "" {
			break
		}
		cur = *s.AliasSubjectID
	}
	return cur, byID[cur].Name
}

func sortIDsByName(nameByID map[string]string) []string {
	ids := make([]string, 0, len(nameByID))
	for id := range nameByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if nameByID[ids[i]] == nameByID[ids[j]] {
			return ids[i] < ids[j]
		}
		return nameByID[ids[i]] < nameByID[ids[j]]
	})
	return ids
}
