package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timeplan-api/internal/models"
)

type fakeRequirementRepo struct {
	reqs       []models.Requirement
	backfilled map[string]string
	err        error
}

func (f *fakeRequirementRepo) ListForPeriod(_ context.Context, _, _ string, _ *string) ([]models.Requirement, error) {
	return f.reqs, f.err
}

func (f *fakeRequirementRepo) BackfillPlanningPeriod(_ context.Context, requirementID, planningPeriodID string) error {
	if f.backfilled == nil {
		f.backfilled = make(map[string]string)
	}
	f.backfilled[requirementID] = planningPeriodID
	return nil
}

type fakeCatalogRepo struct {
	subjects []models.Subject
	teachers []models.Teacher
	classes  []models.Class
	rooms    []models.Room
}

func (f *fakeCatalogRepo) ListSubjects(context.Context) ([]models.Subject, error) {
	return f.subjects, nil
}
func (f *fakeCatalogRepo) ListTeachers(context.Context) ([]models.Teacher, error) {
	return f.teachers, nil
}
func (f *fakeCatalogRepo) ListClasses(context.Context) ([]models.Class, error) {
	return f.classes, nil
}
func (f *fakeCatalogRepo) ListRooms(context.Context) ([]models.Room, error) {
	return f.rooms, nil
}

func strPtr(s string) *string { return &s }

func loaderFixture() (*fakeRequirementRepo, *fakeCatalogRepo) {
	reqRepo := &fakeRequirementRepo{
		reqs: []models.Requirement{
			{ID: "r1", ClassID: "c1", SubjectID: "s-lesen", TeacherID: "t1", WeeklyHours: 2, DoublePeriodRule: DoubleMay, AfternoonRule: AfternoonMay, Participation: ParticipationCurriculum, PlanningPeriodID: "pp1"},
			{ID: "r2", ClassID: "c2", SubjectID: "s-mathe", TeacherID: "t2", WeeklyHours: 4, DoublePeriodRule: DoubleShould, AfternoonRule: AfternoonNever, Participation: ParticipationCurriculum},
		},
	}
	catalog := &fakeCatalogRepo{
		subjects: []models.Subject{
			{ID: "s-deutsch", Name: "Deutsch", RequiredRoomID: strPtr("room1")},
			{ID: "s-lesen", Name: "Lesen", AliasSubjectID: strPtr("s-deutsch"), IsBand: true},
			{ID: "s-mathe", Name: "Mathe"},
			// Cyclic alias pair resolves by breaking on repeat.
			{ID: "s-a", Name: "A", AliasSubjectID: strPtr("s-b")},
			{ID: "s-b", Name: "B", AliasSubjectID: strPtr("s-a")},
		},
		teachers: []models.Teacher{
			{ID: "t1", ShortCode: "MM", FullName: "Maria Muster", WorkMo: true, WorkDi: true, WorkMi: true, WorkDo: true, WorkFr: false},
			{ID: "t2", ShortCode: "POOL", FullName: "Pool", WorkMo: true, WorkDi: true, WorkMi: true, WorkDo: true, WorkFr: true},
		},
		classes: []models.Class{
			{ID: "c2", Name: "1B"},
			{ID: "c1", Name: "1A"},
		},
		rooms: []models.Room{{ID: "room1", Name: "Musikraum"}},
	}
	return reqRepo, catalog
}

func TestLoaderResolvesRowsAndMaps(t *testing.T) {
	reqRepo, catalog := loaderFixture()
	l := NewLoader(reqRepo, catalog)

	res, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	row := res.Rows[0]
	assert.Equal(t, 0, row.FID)
	assert.Equal(t, "1A", row.ClassName)
	assert.Equal(t, "Lesen", row.SubjectName)
	assert.Equal(t, "s-deutsch", row.CanonicalSubjectID)
	assert.Equal(t, "Deutsch", row.CanonicalSubjectName)
	// The room binding is read from the requirement's own subject; s-lesen
	// has none, even though its alias target s-deutsch does.
	assert.Equal(t, "", row.RequiredRoomID)
	assert.True(t, row.IsBandSubject)

	assert.Equal(t, [5]bool{true, true, true, true, false}, res.TeacherWorkdayMask["t1"])
	assert.True(t, res.PoolTeacherIDs["t2"])
	assert.False(t, res.PoolTeacherIDs["t1"])
	assert.Equal(t, "Musikraum", res.RoomNameByID["room1"])
}

func TestLoaderCanonicalizationBreaksCycles(t *testing.T) {
	reqRepo, catalog := loaderFixture()
	l := NewLoader(reqRepo, catalog)

	res, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)

	// A -> B -> A: the walk stops on the first repeated id.
	canonical := res.CanonicalSubjectIDByID["s-a"]
	assert.Contains(t, []string{"s-a", "s-b"}, canonical)
	// Without an alias the subject is its own canonical form.
	assert.Equal(t, "s-mathe", res.CanonicalSubjectIDByID["s-mathe"])
}

func TestLoaderBackfillsLegacyRows(t *testing.T) {
	reqRepo, catalog := loaderFixture()
	l := NewLoader(reqRepo, catalog)

	_, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)

	// r2 had no planning period and was upgraded in place; r1 was left alone.
	assert.Equal(t, map[string]string{"r2": "pp1"}, reqRepo.backfilled)
}

func TestLoaderSortsClassesAndTeachersByName(t *testing.T) {
	reqRepo, catalog := loaderFixture()
	l := NewLoader(reqRepo, catalog)

	res, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, res.SortedClassIDs)
	assert.Equal(t, []string{"t1", "t2"}, res.SortedTeacherIDs)
}

func TestLoaderFallsBackToSubjectDefaultRules(t *testing.T) {
	_, catalog := loaderFixture()
	catalog.subjects = append(catalog.subjects, models.Subject{
		ID: "s-sport", Name: "Sport", DefaultDoubleRule: DoubleMust, DefaultAfternoonRule: AfternoonNever,
	})
	reqRepo := &fakeRequirementRepo{reqs: []models.Requirement{
		{ID: "r3", ClassID: "c1", SubjectID: "s-sport", TeacherID: "t1", WeeklyHours: 2, Participation: ParticipationCurriculum, PlanningPeriodID: "pp1"},
		{ID: "r4", ClassID: "c1", SubjectID: "s-mathe", TeacherID: "t1", WeeklyHours: 2, Participation: ParticipationCurriculum, PlanningPeriodID: "pp1"},
	}}
	l := NewLoader(reqRepo, catalog)

	res, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)

	// The subject's defaults fill blank requirement rules; with neither set,
	// the permissive rules apply.
	assert.Equal(t, DoubleMust, res.Rows[0].DoublePeriodRule)
	assert.Equal(t, AfternoonNever, res.Rows[0].AfternoonRule)
	assert.Equal(t, DoubleMay, res.Rows[1].DoublePeriodRule)
	assert.Equal(t, AfternoonMay, res.Rows[1].AfternoonRule)
}

func TestLoaderEmptyResultIsNotAnError(t *testing.T) {
	_, catalog := loaderFixture()
	l := NewLoader(&fakeRequirementRepo{}, catalog)

	res, err := l.Load(context.Background(), "acc1", "pp1", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}
