package planner

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/timeplan-api/internal/models"
	"github.com/noah-isme/timeplan-api/internal/planner/solver"
	"github.com/noah-isme/timeplan-api/internal/service"
	"github.com/noah-isme/timeplan-api/pkg/config"
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

// BasisPlanRepository loads the most recent base-plan document for a
// planning period.
type BasisPlanRepository interface {
	GetLatest(ctx context.Context, accountID, planningPeriodID string) (*models.BasisPlan, error)
}

// RuleProfileRepository reads a named rule profile by id.
type RuleProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.RuleProfile, error)
}

// PlanRepository persists a generated plan and its decoded slots.
type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	CreateSlots(ctx context.Context, planID string, slots []models.PlanSlot) error
}

// GenerateRequest is the pipeline's combined input for one generation run.
type GenerateRequest struct {
	AccountID        string `validate:"required"`
	PlanningPeriodID string `validate:"required"`
	Name             string `validate:"required,max=200"`
	VersionID        *string
	RuleProfileID    *string
	OverrideRules    map[string]interface{}
	Comment          string `validate:"max=2000"`
	DryRun           bool
	Params           Params
}

// GenerateResult is what the handler serializes back to the caller. On a
// dry run PlanID is empty and PreviewID references the cached proposal.
type GenerateResult struct {
	PlanID           string         `json:"plan_id"`
	PreviewID        string         `json:"preview_id,omitempty"`
	AccountID        string         `json:"account_id"`
	PlanningPeriodID string         `json:"planning_period_id"`
	Name             string         `json:"name"`
	Comment          string         `json:"comment,omitempty"`
	VersionID        string         `json:"version_id,omitempty"`
	RuleProfileID    *string        `json:"rule_profile_id,omitempty"`
	Status           string         `json:"status"`
	Score            float64        `json:"score"`
	ObjectiveValue   float64        `json:"objective_value"`
	Slots            []SlotOut      `json:"slots"`
	SlotsMeta        []SlotMeta     `json:"slots_meta"`
	RulesSnapshot    models.JSONMap `json:"rules_snapshot"`
	RuleKeysActive   []string       `json:"rule_keys_active"`
	ParamsUsed       Params         `json:"params_used"`
	Seed             int64          `json:"seed"`
	Attempts         int            `json:"attempts"`
}

// AnalyzeResult is the pre-flight summary: load, parse, and rule resolution
// without paying for a full search, surfacing capacity warnings before a
// caller commits to Generate.
type AnalyzeResult struct {
	RequirementCount int      `json:"requirement_count"`
	ClassCount       int      `json:"class_count"`
	TeacherCount     int      `json:"teacher_count"`
	SlotsPerDay      int      `json:"slots_per_day"`
	RuleKeysActive   []string `json:"rule_keys_active"`
	Warnings         []string `json:"warnings"`
}

// Service glues the loader, parser, resolver, builder, and search together,
// plus persistence, preview caching, and metrics.
type Service struct {
	loader       *Loader
	validate     *validator.Validate
	baseplan     *BasePlanParser
	rules        *RuleResolver
	search       *Search
	basisPlans   BasisPlanRepository
	ruleProfiles RuleProfileRepository
	plans        PlanRepository
	previews     *PreviewStore
	metrics      *service.MetricsService
	defaults     Params
}

// NewService wires the pipeline with its persistence collaborators and the
// scheduler defaults used to fill in zero-valued numeric request parameters.
// previews may be nil, in which case dry runs simply skip the proposal
// cache.
func NewService(
	requirements RequirementRepository,
	catalog CatalogRepository,
	basisPlans BasisPlanRepository,
	ruleProfiles RuleProfileRepository,
	plans PlanRepository,
	previews *PreviewStore,
	metrics *service.MetricsService,
	schedulerCfg config.SchedulerConfig,
) *Service {
	return &Service{
		loader:       NewLoader(requirements, catalog),
		validate:     validator.New(),
		baseplan:     NewBasePlanParser(),
		rules:        NewRuleResolver(),
		search:       NewSearch(metrics),
		basisPlans:   basisPlans,
		ruleProfiles: ruleProfiles,
		plans:        plans,
		previews:     previews,
		metrics:      metrics,
		defaults: Params{
			MultiStart:      schedulerCfg.MultiStart,
			MaxAttempts:     schedulerCfg.MaxAttempts,
			Patience:        schedulerCfg.Patience,
			TimePerAttempt:  schedulerCfg.TimePerAttempt,
			BaseSeed:        schedulerCfg.BaseSeed,
			SeedStep:        schedulerCfg.SeedStep,
			SearchWorkers:   schedulerCfg.SearchWorkers,
			RandomizeSearch: schedulerCfg.RandomizeSearch,
			UseValueHints:   schedulerCfg.UseValueHints,
		},
	}
}

// Defaults exposes the configured search parameter defaults, used by the
// transport layer to fill absent request fields.
func (s *Service) Defaults() Params { return s.defaults }

// fillDefaults overlays the scheduler's configured defaults onto any
// zero-valued numeric field of a caller-supplied Params; the boolean fields
// are kept as given.
func (s *Service) fillDefaults(p Params) Params {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = s.defaults.MaxAttempts
	}
	if p.Patience <= 0 {
		p.Patience = s.defaults.Patience
	}
	if p.TimePerAttempt <= 0 {
		p.TimePerAttempt = s.defaults.TimePerAttempt
	}
	if p.BaseSeed == 0 {
		p.BaseSeed = s.defaults.BaseSeed
	}
	if p.SeedStep == 0 {
		p.SeedStep = s.defaults.SeedStep
	}
	if p.SearchWorkers <= 0 {
		p.SearchWorkers = s.defaults.SearchWorkers
	}
	return p
}

// prepare runs the load, rule-resolution, and base-plan parsing stages —
// the shared prefix of both Generate and Analyze.
func (s *Service) prepare(ctx context.Context, req GenerateRequest) (*LoaderResult, models.EffectiveRules, []string, *BasePlanContext, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, nil, nil, appErrors.Wrap(err, appErrors.ErrConfigInvalid.Code, appErrors.ErrConfigInvalid.Status, appErrors.ErrConfigInvalid.Message)
	}

	load, err := s.loader.Load(ctx, req.AccountID, req.PlanningPeriodID, req.VersionID)
	if err != nil {
		return nil, nil, nil, nil, appErrors.FromError(err)
	}
	if len(load.Rows) == 0 {
		return nil, nil, nil, nil, appErrors.ErrNoRequirements
	}

	var profileRules models.JSONMap
	if req.RuleProfileID != nil && *req.RuleProfileID != "" {
		profile, err := s.ruleProfiles.GetByID(ctx, *req.RuleProfileID)
		if err != nil {
			return nil, nil, nil, nil, appErrors.FromError(err)
		}
		if profile.AccountID != "" && profile.AccountID != req.AccountID {
			return nil, nil, nil, nil, appErrors.ErrAccessForbidden
		}
		profileRules = profile.Rules
	}
	rules, active := s.rules.Resolve(profileRules, req.OverrideRules)

	basis, err := s.basisPlans.GetLatest(ctx, req.AccountID, req.PlanningPeriodID)
	if err != nil {
		return nil, nil, nil, nil, appErrors.FromError(err)
	}
	var raw []byte
	if basis != nil {
		raw = []byte(basis.Document)
	}
	bp, err := s.baseplan.ParseJSON(raw, load.Rows, load.ClassNameByID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return load, rules, active, bp, nil
}

// Generate runs the full pipeline. Unless req.DryRun is set it
// persists the resulting plan and its slots; on a dry run the result is
// cached as a preview instead, so a later save does not repeat the search.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	load, rules, active, bp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	model, x := NewModelBuilder(load.Rows, bp, rules, load).Build()

	params := s.fillDefaults(req.Params)
	result := s.search.Run(model, x, load.Rows, bp, load, params)

	feasible := result.Status == solver.StatusOptimal || result.Status == solver.StatusFeasible
	s.metrics.RecordSearchOutcome(feasible, result.Score)
	if !feasible {
		return nil, appErrors.ErrSolverInfeasible
	}

	versionID := ""
	if req.VersionID != nil {
		versionID = *req.VersionID
	}

	out := &GenerateResult{
		AccountID:        req.AccountID,
		PlanningPeriodID: req.PlanningPeriodID,
		Name:             req.Name,
		Comment:          req.Comment,
		VersionID:        versionID,
		RuleProfileID:    req.RuleProfileID,
		Status:           result.Status.String(),
		Score:            result.Score,
		ObjectiveValue:   result.ObjectiveValue,
		Slots:            result.Slots,
		SlotsMeta:        bp.SlotsMeta,
		RulesSnapshot:    rules2map(rules),
		RuleKeysActive:   active,
		ParamsUsed:       params,
		Seed:             result.Seed,
		Attempts:         result.Attempts,
	}

	if req.DryRun {
		if s.previews != nil {
			previewID, err := s.previews.Put(ctx, req.AccountID, out)
			if err != nil {
				return nil, appErrors.FromError(err)
			}
			out.PreviewID = previewID
		}
		return out, nil
	}

	planID, err := s.persistPlan(ctx, out)
	if err != nil {
		return nil, err
	}
	out.PlanID = planID
	return out, nil
}

// SavePreview persists a previously cached dry-run proposal without
// re-running the search. It returns the cached result with its new plan id
// set.
func (s *Service) SavePreview(ctx context.Context, accountID, previewID string) (*GenerateResult, error) {
	if s.previews == nil {
		return nil, appErrors.Clone(appErrors.ErrPlannerNotFound, "Planvorschau wurde nicht gefunden")
	}
	res, err := s.previews.Get(ctx, accountID, previewID)
	if err != nil {
		return nil, err
	}

	planID, err := s.persistPlan(ctx, res)
	if err != nil {
		return nil, err
	}
	_ = s.previews.Delete(ctx, accountID, previewID)
	res.PlanID = planID
	res.PreviewID = ""
	return res, nil
}

// persistPlan writes the plan header and its slots, returning the plan id.
func (s *Service) persistPlan(ctx context.Context, res *GenerateResult) (string, error) {
	rulesJSON, err := json.Marshal(res.RulesSnapshot)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrSolverInternal.Code, appErrors.ErrSolverInternal.Status, "Regelkonfiguration konnte nicht serialisiert werden")
	}
	activeJSON, err := json.Marshal(res.RuleKeysActive)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrSolverInternal.Code, appErrors.ErrSolverInternal.Status, "aktive Regeln konnten nicht serialisiert werden")
	}
	paramsJSON, err := json.Marshal(res.ParamsUsed)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrSolverInternal.Code, appErrors.ErrSolverInternal.Status, "Suchparameter konnten nicht serialisiert werden")
	}

	planID := uuid.NewString()
	plan := &models.Plan{
		ID:               planID,
		AccountID:        res.AccountID,
		Name:             res.Name,
		PlanningPeriodID: res.PlanningPeriodID,
		VersionID:        res.VersionID,
		RuleProfileID:    res.RuleProfileID,
		Status:           models.PlanStatusDraft,
		Seed:             res.Seed,
		ObjectiveValue:   res.ObjectiveValue,
		Score:            res.Score,
		Comment:          res.Comment,
		RulesSnapshot:    rulesJSON,
		RuleKeysActive:   activeJSON,
		ParamsUsed:       paramsJSON,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return "", appErrors.FromError(err)
	}

	slots := make([]models.PlanSlot, 0, len(res.Slots))
	for _, sl := range res.Slots {
		slots = append(slots, models.PlanSlot{
			ID:         uuid.NewString(),
			PlanID:     planID,
			ClassID:    sl.ClassID,
			SubjectID:  sl.SubjectID,
			TeacherID:  sl.TeacherID,
			Day:        sl.Day,
			Period:     sl.Period,
			IsFixed:    sl.IsFixed,
			IsFlexible: sl.IsFlexible,
		})
	}
	if len(slots) > 0 {
		if err := s.plans.CreateSlots(ctx, planID, slots); err != nil {
			return "", appErrors.FromError(err)
		}
	}
	return planID, nil
}

// Analyze stops before the solver: it surfaces a capacity pre-flight summary without
// paying for a full search, so a caller can catch obviously-infeasible
// configurations (e.g. weekly hours exceeding available slots) cheaply.
func (s *Service) Analyze(ctx context.Context, req GenerateRequest) (*AnalyzeResult, error) {
	load, _, active, bp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	capacityPerDay := bp.SlotsPerDay - len(bp.PauseSlots)
	capacity := capacityPerDay * 5

	totalByClass := make(map[string]int)
	for _, row := range load.Rows {
		totalByClass[row.ClassID] += row.WeeklyHours
	}

	var warnings []string
	for _, classID := range load.SortedClassIDs {
		if total := totalByClass[classID]; total > capacity {
			warnings = append(warnings, "Klasse "+load.ClassNameByID[classID]+": Wochenstundenbedarf überschreitet das verfügbare Stundenraster")
		}
	}

	return &AnalyzeResult{
		RequirementCount: len(load.Rows),
		ClassCount:       len(load.SortedClassIDs),
		TeacherCount:     len(load.SortedTeacherIDs),
		SlotsPerDay:      bp.SlotsPerDay,
		RuleKeysActive:   active,
		Warnings:         warnings,
	}, nil
}

func rules2map(rules models.EffectiveRules) models.JSONMap {
	out := make(models.JSONMap, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out
}
