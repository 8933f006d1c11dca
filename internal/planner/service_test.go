package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timeplan-api/internal/models"
	"github.com/noah-isme/timeplan-api/pkg/config"
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

type fakeBasisPlanRepo struct {
	plan *models.BasisPlan
}

func (f *fakeBasisPlanRepo) GetLatest(context.Context, string, string) (*models.BasisPlan, error) {
	return f.plan, nil
}

type fakeRuleProfileRepo struct {
	profile *models.RuleProfile
}

func (f *fakeRuleProfileRepo) GetByID(context.Context, string) (*models.RuleProfile, error) {
	if f.profile == nil {
		return nil, appErrors.Clone(appErrors.ErrPlannerNotFound, "Regelprofil wurde nicht gefunden")
	}
	return f.profile, nil
}

type fakePlanRepo struct {
	plans []*models.Plan
	slots map[string][]models.PlanSlot
}

func (f *fakePlanRepo) Create(_ context.Context, plan *models.Plan) error {
	f.plans = append(f.plans, plan)
	return nil
}

func (f *fakePlanRepo) CreateSlots(_ context.Context, planID string, slots []models.PlanSlot) error {
	if f.slots == nil {
		f.slots = make(map[string][]models.PlanSlot)
	}
	f.slots[planID] = slots
	return nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MultiStart:      true,
		MaxAttempts:     3,
		Patience:        3,
		TimePerAttempt:  2 * time.Second,
		BaseSeed:        42,
		SeedStep:        17,
		SearchWorkers:   4,
		RandomizeSearch: true,
		UseValueHints:   true,
	}
}

func newTestService(reqRepo *fakeRequirementRepo, catalog *fakeCatalogRepo, planRepo *fakePlanRepo) *Service {
	return NewService(
		reqRepo,
		catalog,
		&fakeBasisPlanRepo{},
		&fakeRuleProfileRepo{},
		planRepo,
		nil,
		nil,
		testSchedulerConfig(),
	)
}

func serviceFixture() (*fakeRequirementRepo, *fakeCatalogRepo) {
	reqRepo := &fakeRequirementRepo{
		reqs: []models.Requirement{
			{ID: "r1", ClassID: "c1", SubjectID: "s1", TeacherID: "t1", WeeklyHours: 2, DoublePeriodRule: DoubleMay, AfternoonRule: AfternoonMay, Participation: ParticipationCurriculum, PlanningPeriodID: "pp1"},
		},
	}
	catalog := &fakeCatalogRepo{
		subjects: []models.Subject{{ID: "s1", Name: "Mathe"}},
		teachers: []models.Teacher{{ID: "t1", ShortCode: "MM", FullName: "Maria Muster", WorkMo: true, WorkDi: true, WorkMi: true, WorkDo: true, WorkFr: true}},
		classes:  []models.Class{{ID: "c1", Name: "1A"}},
	}
	return reqRepo, catalog
}

func generateRequest(dryRun bool) GenerateRequest {
	return GenerateRequest{
		AccountID:        "acc1",
		PlanningPeriodID: "pp1",
		Name:             "Testplan",
		DryRun:           dryRun,
		OverrideRules:    hardOnlyOverrides(),
	}
}

func TestGenerateNoRequirements(t *testing.T) {
	_, catalog := serviceFixture()
	svc := newTestService(&fakeRequirementRepo{}, catalog, &fakePlanRepo{})

	_, err := svc.Generate(context.Background(), generateRequest(false))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoRequirements.Code, appErrors.FromError(err).Code)
}

func TestGeneratePersistsPlanAndSlots(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	planRepo := &fakePlanRepo{}
	svc := newTestService(reqRepo, catalog, planRepo)

	res, err := svc.Generate(context.Background(), generateRequest(false))
	require.NoError(t, err)

	assert.NotEmpty(t, res.PlanID)
	assert.Contains(t, []string{"OPTIMAL", "FEASIBLE"}, res.Status)
	assert.Len(t, res.Slots, 2)
	assert.NotEmpty(t, res.RulesSnapshot)
	assert.NotEmpty(t, res.RuleKeysActive)
	assert.Equal(t, "pp1", res.PlanningPeriodID)

	require.Len(t, planRepo.plans, 1)
	plan := planRepo.plans[0]
	assert.Equal(t, res.PlanID, plan.ID)
	assert.Equal(t, "acc1", plan.AccountID)
	assert.Equal(t, "Testplan", plan.Name)
	assert.Equal(t, models.PlanStatusDraft, plan.Status)
	assert.NotEmpty(t, plan.RulesSnapshot)
	assert.Len(t, planRepo.slots[plan.ID], 2)
	for _, s := range planRepo.slots[plan.ID] {
		assert.GreaterOrEqual(t, s.Period, 1)
	}
}

func TestGenerateDryRunDoesNotPersist(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	planRepo := &fakePlanRepo{}
	svc := newTestService(reqRepo, catalog, planRepo)

	res, err := svc.Generate(context.Background(), generateRequest(true))
	require.NoError(t, err)

	assert.Empty(t, res.PlanID)
	assert.Contains(t, []string{"OPTIMAL", "FEASIBLE"}, res.Status)
	assert.NotEmpty(t, res.Slots)
	assert.Empty(t, planRepo.plans)
	assert.Empty(t, planRepo.slots)
}

func TestGenerateForeignRuleProfileForbidden(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	svc := NewService(
		reqRepo,
		catalog,
		&fakeBasisPlanRepo{},
		&fakeRuleProfileRepo{profile: &models.RuleProfile{ID: "rp1", AccountID: "other"}},
		&fakePlanRepo{},
		nil,
		nil,
		testSchedulerConfig(),
	)

	req := generateRequest(false)
	profileID := "rp1"
	req.RuleProfileID = &profileID

	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessForbidden.Code, appErrors.FromError(err).Code)
}

func TestGenerateUnknownRuleProfileNotFound(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	svc := newTestService(reqRepo, catalog, &fakePlanRepo{})

	req := generateRequest(false)
	profileID := "missing"
	req.RuleProfileID = &profileID

	_, err := svc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlannerNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateBasePlanOverflowAborts(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	basis := &fakeBasisPlanRepo{plan: &models.BasisPlan{
		Document: []byte(`{"fixed":{"c1":[
			{"subject_id":"s1","day_key":"mon","slot_index":0},
			{"subject_id":"s1","day_key":"tue","slot_index":0},
			{"subject_id":"s1","day_key":"wed","slot_index":0}
		]}}`),
	}}
	svc := NewService(reqRepo, catalog, basis, &fakeRuleProfileRepo{}, &fakePlanRepo{}, nil, nil, testSchedulerConfig())

	_, err := svc.Generate(context.Background(), generateRequest(false))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBasePlanOverflow.Code, appErrors.FromError(err).Code)
}

func TestGenerateSnapshotIsReproducible(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	svc := newTestService(reqRepo, catalog, &fakePlanRepo{})

	first, err := svc.Generate(context.Background(), generateRequest(true))
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), generateRequest(true))
	require.NoError(t, err)

	assert.Equal(t, first.RuleKeysActive, second.RuleKeysActive)
	assert.Equal(t, first.RulesSnapshot, second.RulesSnapshot)
	assert.Equal(t, first.ParamsUsed, second.ParamsUsed)
}

func TestAnalyzeReportsCapacityWarnings(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	// 2 weekly hours against a 1-slot-per-day grid leaves room, but 9 hours
	// do not: 5 days x 1 slot.
	reqRepo.reqs[0].WeeklyHours = 9
	svc := newTestService(reqRepo, catalog, &fakePlanRepo{})

	res, err := svc.Analyze(context.Background(), generateRequest(false))
	require.NoError(t, err)

	assert.Equal(t, 1, res.RequirementCount)
	assert.Equal(t, 1, res.ClassCount)
	assert.Equal(t, 1, res.SlotsPerDay)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1A")
}

func TestSavePreviewWithoutStore(t *testing.T) {
	reqRepo, catalog := serviceFixture()
	svc := newTestService(reqRepo, catalog, &fakePlanRepo{})

	_, err := svc.SavePreview(context.Background(), "acc1", "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlannerNotFound.Code, appErrors.FromError(err).Code)
}
