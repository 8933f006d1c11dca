package dto

import (
	"time"

	"github.com/noah-isme/timeplan-api/internal/planner"
)

// GeneratePlanParams tunes the multi-start search. Absent booleans fall
// back to the configured defaults; time_per_attempt is in seconds.
type GeneratePlanParams struct {
	MultiStart       *bool   `json:"multi_start"`
	MaxAttempts      int     `json:"max_attempts" binding:"omitempty,min=1,max=1000"`
	Patience         int     `json:"patience" binding:"omitempty,min=1,max=1000"`
	TimePerAttempt   float64 `json:"time_per_attempt" binding:"omitempty,gt=0,max=600"`
	RandomizeSearch  *bool   `json:"randomize_search"`
	BaseSeed         int64   `json:"base_seed"`
	SeedStep         int64   `json:"seed_step"`
	NumSearchWorkers int     `json:"num_search_workers" binding:"omitempty,min=1,max=64"`
	UseValueHints    *bool   `json:"use_value_hints"`
}

// GeneratePlanRequest is the body of POST /plans/generate.
type GeneratePlanRequest struct {
	Name          string                 `json:"name" binding:"required,max=200"`
	RuleProfileID *string                `json:"rule_profile_id"`
	OverrideRules map[string]interface{} `json:"override_rules"`
	VersionID     *string                `json:"version_id"`
	Comment       *string                `json:"comment"`
	DryRun        bool                   `json:"dry_run"`
	Params        *GeneratePlanParams    `json:"params"`
}

// ToPlannerParams converts the DTO params into planner.Params, applying
// defaults for absent booleans (all three are on by default).
func (r GeneratePlanRequest) ToPlannerParams(defaults planner.Params) planner.Params {
	p := r.Params
	if p == nil {
		return defaults
	}
	out := defaults
	if p.MultiStart != nil {
		out.MultiStart = *p.MultiStart
	}
	if p.MaxAttempts > 0 {
		out.MaxAttempts = p.MaxAttempts
	}
	if p.Patience > 0 {
		out.Patience = p.Patience
	}
	if p.TimePerAttempt > 0 {
		out.TimePerAttempt = time.Duration(p.TimePerAttempt * float64(time.Second))
	}
	if p.RandomizeSearch != nil {
		out.RandomizeSearch = *p.RandomizeSearch
	}
	if p.BaseSeed != 0 {
		out.BaseSeed = p.BaseSeed
	}
	if p.SeedStep != 0 {
		out.SeedStep = p.SeedStep
	}
	if p.NumSearchWorkers > 0 {
		out.SearchWorkers = p.NumSearchWorkers
	}
	if p.UseValueHints != nil {
		out.UseValueHints = *p.UseValueHints
	}
	return out
}

// PlanParamsOut mirrors the effective search parameters in the response,
// with time_per_attempt rendered back in seconds.
type PlanParamsOut struct {
	MultiStart       bool    `json:"multi_start"`
	MaxAttempts      int     `json:"max_attempts"`
	Patience         int     `json:"patience"`
	TimePerAttempt   float64 `json:"time_per_attempt"`
	RandomizeSearch  bool    `json:"randomize_search"`
	BaseSeed         int64   `json:"base_seed"`
	SeedStep         int64   `json:"seed_step"`
	NumSearchWorkers int     `json:"num_search_workers"`
	UseValueHints    bool    `json:"use_value_hints"`
}

// GeneratePlanResponse is the payload of POST /plans/generate. PlanID is
// nil on dry runs; PreviewID then references the cached proposal.
type GeneratePlanResponse struct {
	PlanID           *string                `json:"plan_id"`
	PreviewID        *string                `json:"preview_id,omitempty"`
	Status           string                 `json:"status"`
	Score            float64                `json:"score"`
	ObjectiveValue   float64                `json:"objective_value"`
	Slots            []planner.SlotOut      `json:"slots"`
	SlotsMeta        []planner.SlotMeta     `json:"slots_meta"`
	RulesSnapshot    map[string]interface{} `json:"rules_snapshot"`
	RuleKeysActive   []string               `json:"rule_keys_active"`
	ParamsUsed       PlanParamsOut          `json:"params_used"`
	Seed             int64                  `json:"seed"`
	Attempts         int                    `json:"attempts"`
	PlanningPeriodID string                 `json:"planning_period_id"`
}

// NewGeneratePlanResponse maps a planner result into the API payload.
func NewGeneratePlanResponse(res *planner.GenerateResult) *GeneratePlanResponse {
	out := &GeneratePlanResponse{
		Status:           res.Status,
		Score:            res.Score,
		ObjectiveValue:   res.ObjectiveValue,
		Slots:            res.Slots,
		SlotsMeta:        res.SlotsMeta,
		RulesSnapshot:    res.RulesSnapshot,
		RuleKeysActive:   res.RuleKeysActive,
		ParamsUsed:       newPlanParamsOut(res.ParamsUsed),
		Seed:             res.Seed,
		Attempts:         res.Attempts,
		PlanningPeriodID: res.PlanningPeriodID,
	}
	if res.PlanID != "" {
		out.PlanID = &res.PlanID
	}
	if res.PreviewID != "" {
		out.PreviewID = &res.PreviewID
	}
	return out
}

func newPlanParamsOut(p planner.Params) PlanParamsOut {
	return PlanParamsOut{
		MultiStart:       p.MultiStart,
		MaxAttempts:      p.MaxAttempts,
		Patience:         p.Patience,
		TimePerAttempt:   p.TimePerAttempt.Seconds(),
		RandomizeSearch:  p.RandomizeSearch,
		BaseSeed:         p.BaseSeed,
		SeedStep:         p.SeedStep,
		NumSearchWorkers: p.SearchWorkers,
		UseValueHints:    p.UseValueHints,
	}
}
