package planner

import (
	"math/rand"
	"time"

	"github.com/noah-isme/timeplan-api/internal/planner/solver"
)

// Params configures the multi-start search, mirroring
// pkg/config.SchedulerConfig's scheduler-tuning fields.
type Params struct {
	MultiStart      bool          `json:"multi_start"`
	MaxAttempts     int           `json:"max_attempts"`
	Patience        int           `json:"patience"`
	TimePerAttempt  time.Duration `json:"time_per_attempt"`
	BaseSeed        int64         `json:"base_seed"`
	SeedStep        int64         `json:"seed_step"`
	SearchWorkers   int           `json:"num_search_workers"`
	RandomizeSearch bool          `json:"randomize_search"`
	UseValueHints   bool          `json:"use_value_hints"`
}

// SearchResult is the search's output: the best attempt's status/objective/score,
// which seed produced it, how many attempts ran, and the decoded slots.
type SearchResult struct {
	Status         solver.Status
	ObjectiveValue float64
	Score          float64
	Seed           int64
	Attempts       int
	Slots          []SlotOut
}

// AttemptObserver receives the wall-clock duration of every solver attempt;
// the metrics service satisfies it.
type AttemptObserver interface {
	ObserveSolveAttempt(d time.Duration)
}

// Search is the multi-start orchestrator and result decoder.
type Search struct {
	obs AttemptObserver
}

// NewSearch constructs a Search. obs may be nil.
func NewSearch(obs AttemptObserver) *Search { return &Search{obs: obs} }

// Run drives up to max_attempts seeded Solve calls over model, breaking as
// soon as an attempt is optimal or the patience budget runs out, and keeps
// the attempt with the best score. The best attempt's assignment is decoded
// into the slot list the rest of the system persists/returns.
func (s *Search) Run(model *solver.Model, x [][5][]solver.VarRef, rows []RequirementRow, bp *BasePlanContext, load *LoaderResult, params Params) *SearchResult {
	attempts := 1
	if params.MultiStart && params.MaxAttempts > 1 {
		attempts = params.MaxAttempts
	}
	patience := params.Patience
	if patience <= 0 {
		patience = attempts
	}

	var best solver.Result
	var bestSeed int64
	haveBest := false
	ran := 0

	for i := 0; i < attempts; i++ {
		seed := params.BaseSeed
		if params.MultiStart {
			seed = params.BaseSeed + int64(i)*params.SeedStep
		}

		if params.UseValueHints {
			hintAssignments(model, x, rows, seed)
		}

		started := time.Now()
		result := model.Solve(solver.Params{
			RandomSeed:       seed,
			MaxTime:          params.TimePerAttempt,
			NumSearchWorkers: params.SearchWorkers,
			RandomizeSearch:  params.RandomizeSearch,
		})
		if s.obs != nil {
			s.obs.ObserveSolveAttempt(time.Since(started))
		}
		ran++

		if result.Status == solver.StatusOptimal || result.Status == solver.StatusFeasible {
			if !haveBest || scoreOf(result) > scoreOf(best) {
				best = result
				bestSeed = seed
				haveBest = true
			}
			if result.Status == solver.StatusOptimal {
				break
			}
		}

		patience--
		if patience <= 0 {
			break
		}
	}

	if !haveBest {
		return &SearchResult{Status: solver.StatusInfeasible, Attempts: ran}
	}

	slots := decode(best, x, rows, bp, load)
	return &SearchResult{
		Status:         best.Status,
		ObjectiveValue: best.ObjectiveValue,
		Score:          scoreOf(best),
		Seed:           bestSeed,
		Attempts:       ran,
		Slots:          slots,
	}
}

// scoreOf turns a solved attempt into the bounded, higher-is-better score
// the service layer reports alongside the raw objective: 1000/(1+penalty).
func scoreOf(r solver.Result) float64 {
	if r.Status != solver.StatusOptimal && r.Status != solver.StatusFeasible {
		return 0
	}
	obj := r.ObjectiveValue
	if obj < 0 {
		obj = 0
	}
	return 1000 / (1 + obj)
}

// hintAssignments seeds one-hints for the current attempt: for each
// requirement, shuffle its candidate (day, period < min(6, S)) cells with a
// PRNG keyed by the attempt seed and hint the first weekly_hours of them to
// 1. Each cell is hinted at most once per attempt.
func hintAssignments(model *solver.Model, x [][5][]solver.VarRef, rows []RequirementRow, seed int64) {
	model.ClearHints()
	rng := rand.New(rand.NewSource(seed))

	type cell struct{ d, p int }
	for fid, row := range rows {
		if row.WeeklyHours <= 0 {
			continue
		}
		maxP := len(x[fid][0])
		if maxP > morningPeriods {
			maxP = morningPeriods
		}
		candidates := make([]cell, 0, 5*maxP)
		for d := 0; d < 5; d++ {
			for p := 0; p < maxP; p++ {
				candidates = append(candidates, cell{d, p})
			}
		}
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})

		n := row.WeeklyHours
		if n > len(candidates) {
			n = len(candidates)
		}
		for _, c := range candidates[:n] {
			model.AddHint(x[fid][c.d][c.p], 1)
		}
	}
}

// decode reads the chosen variable assignment back into the ordered slot
// list the API and persistence layer work with, tagging each cell's
// is_fixed/is_flexible provenance from the parsed base-plan lookups.
// Periods are 0-based inside the solver and 1-based in the decoded output.
func decode(result solver.Result, x [][5][]solver.VarRef, rows []RequirementRow, bp *BasePlanContext, load *LoaderResult) []SlotOut {
	var out []SlotOut
	for fid, row := range rows {
		for d := 0; d < 5; d++ {
			day := CanonicalDays[d]
			for p, v := range x[fid][d] {
				if result.Value(v) != 1 {
					continue
				}
				slot := SlotOut{
					ClassID:   row.ClassID,
					Day:       day,
					Period:    p + 1,
					SubjectID: row.SubjectID,
					TeacherID: row.TeacherID,
				}
				if row.RequiredRoomID != "" {
					slot.RoomID = row.RequiredRoomID
					slot.RoomName = load.RoomNameByID[row.RequiredRoomID]
				}
				if fixedDays, ok := bp.ClassFixedLookup[row.ClassName]; ok {
					if periods, ok := fixedDays[day]; ok {
						slot.IsFixed = periods[p]
					}
				}
				if flexDays, ok := bp.FlexibleSlotLookup[row.ClassName]; ok {
					if periods, ok := flexDays[day]; ok {
						if fids, ok := periods[p]; ok {
							slot.IsFlexible = fids[fid]
						}
					}
				}
				out = append(out, slot)
			}
		}
	}
	return out
}
