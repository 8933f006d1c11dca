package planner

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timeplan-api/internal/models"
	"github.com/noah-isme/timeplan-api/internal/planner/solver"
)

// bigM bounds the "disjunctive" encodings below (e.g. "sum==0 or sum>=4").
// Slots-per-day stays in the single-digit/low-teens range in practice, so a
// constant an order of magnitude above any real weekly-hours total is safe.
const bigM = 1000

// ModelBuilder materializes the decision-variable grid and every enabled
// hard constraint / soft-objective term over the solver's CP-SAT-style
// interface.
type ModelBuilder struct {
	model *solver.Model
	rows  []RequirementRow
	bp    *BasePlanContext
	rules models.EffectiveRules
	load  *LoaderResult

	s int                  // slots per day
	x [][5][]solver.VarRef // x[fid][day][period]

	objective    solver.LinearExpr
	hasObjective bool
	zeroVar      *solver.VarRef
}

// NewModelBuilder constructs a ModelBuilder from the loader, parser, and
// rule-resolver outputs.
func NewModelBuilder(rows []RequirementRow, bp *BasePlanContext, rules models.EffectiveRules, load *LoaderResult) *ModelBuilder {
	return &ModelBuilder{rows: rows, bp: bp, rules: rules, load: load, s: bp.SlotsPerDay}
}

// Build materializes every enabled constraint and soft term and returns
// the populated model together with the variable grid (needed by the
// decoder).
func (b *ModelBuilder) Build() (*solver.Model, [][5][]solver.VarRef) {
	b.model = solver.NewModel()
	b.makeVariableGrid()
	b.maskPauseSlots()

	b.addCoverage()
	b.addClassNonOverlap()
	b.addTeacherNonOverlap()
	b.addTeacherWorkdays()
	b.addRoomAvailability()
	b.addClassWindows()
	b.addFixedPins()
	b.addFlexibleGroups()
	b.addDailyPeriodCaps()
	b.addFirstPeriodWhenFull()
	b.addSubjectAfternoonRules()
	b.addAfternoonBreak()
	b.addMorningMinimum()
	b.addDoublePeriodDiscipline()
	b.addCanonicalSubjectDailyCap()
	b.addBandParallel()
	b.addNoGapConstraints()
	b.addTeacherGapPenalty()
	b.addEvenDistribution()

	if b.hasObjective {
		b.model.Minimize(b.objective)
	}
	return b.model, b.x
}

func (b *ModelBuilder) addObjective(term solver.LinearExpr) {
	b.objective = b.objective.Plus(term)
	b.hasObjective = true
}

// zeroIntVar returns a cached IntVar pinned to 0, used by the max/abs
// encodings below.
func (b *ModelBuilder) zeroIntVar() solver.VarRef {
	if b.zeroVar == nil {
		v := b.model.NewIntVar(0, 0, "zero")
		b.model.AddLinearEq(solver.Sum(v), 0)
		b.zeroVar = &v
	}
	return *b.zeroVar
}

// reifAny ties a boolean indicator to "at least one of vars is 1": the
// indicator is the complement of a reified "sum==0" check, built entirely
// from the AddReifEq primitive the solver interface exposes.
func (b *ModelBuilder) reifAny(vars []solver.VarRef, label string) solver.VarRef {
	any := b.model.NewBoolVar(label)
	if len(vars) == 0 {
		b.model.AddLinearEq(solver.Sum(any), 0)
		return any
	}
	notAny := b.model.NewBoolVar(label + "_not")
	b.model.AddReifEq(notAny, solver.Sum(vars...), 0)
	b.model.AddLinearEq(solver.Sum(any, notAny), 1)
	return any
}

// diffVar introduces an IntVar equal to (expr - k), the building block for
// the max/abs-based soft terms below.
func (b *ModelBuilder) diffVar(expr solver.LinearExpr, k int, bound int, label string) solver.VarRef {
	d := b.model.NewIntVar(-bound, bound, label)
	// expr - d == k  =>  d == expr - k
	b.model.AddLinearEq(expr.Plus(solver.Sum(d).Scaled(-1)), k)
	return d
}

// excessOverCap returns max(0, value - cap) as a fresh IntVar.
func (b *ModelBuilder) excessOverCap(value solver.VarRef, cap int, bound int, label string) solver.VarRef {
	d := b.diffVar(solver.Sum(value), cap, bound, label+"_diff")
	excess := b.model.NewIntVar(0, bound, label+"_excess")
	b.model.AddMaxEquality(excess, d, b.zeroIntVar())
	return excess
}

func (b *ModelBuilder) makeVariableGrid() {
	b.x = make([][5][]solver.VarRef, len(b.rows))
	for fid, row := range b.rows {
		for d := 0; d < 5; d++ {
			periods := make([]solver.VarRef, b.s)
			for p := 0; p < b.s; p++ {
				name := fmt.Sprintf("x[%d,%s,%d,%d]", fid, row.ClassName, d, p)
				periods[p] = b.model.NewBoolVar(name)
			}
			b.x[fid][d] = periods
		}
	}
}

func (b *ModelBuilder) maskPauseSlots() {
	for p := range b.bp.PauseSlots {
		if p < 0 || p >= b.s {
			continue
		}
		for fid := range b.rows {
			for d := 0; d < 5; d++ {
				b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
			}
		}
	}
}

func (b *ModelBuilder) rowVars(fid int) []solver.VarRef {
	all := make([]solver.VarRef, 0, 5*b.s)
	for d := 0; d < 5; d++ {
		all = append(all, b.x[fid][d]...)
	}
	return all
}

// addCoverage requires every curriculum requirement to place exactly its
// weekly hours; AG hours are an upper bound.
func (b *ModelBuilder) addCoverage() {
	for fid, row := range b.rows {
		sum := solver.Sum(b.rowVars(fid)...)
		if !b.rules.Bool(RuleStundenbedarfVollstaendig) {
			b.model.AddLinearLe(sum, row.WeeklyHours)
			continue
		}
		if row.Participation == ParticipationAG {
			b.model.AddLinearLe(sum, row.WeeklyHours)
		} else {
			b.model.AddLinearEq(sum, row.WeeklyHours)
		}
	}
}

// addClassNonOverlap caps every (class, day, period) cell at one lesson.
func (b *ModelBuilder) addClassNonOverlap() {
	if !b.rules.Bool(RuleKeineKlassenkonflikte) {
		return
	}
	for _, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			for p := 0; p < b.s; p++ {
				vars := make([]solver.VarRef, 0, len(fids))
				for _, fid := range fids {
					vars = append(vars, b.x[fid][d][p])
				}
				b.model.AddLinearLe(solver.Sum(vars...), 1)
			}
		}
	}
}

// addTeacherNonOverlap caps every teacher at one lesson per cell, with the
// `band_lehrer_parallel` band-bucket relaxation: a bucket indicator is
// reified OR over the rows in that bucket, so it is 1 exactly when the
// teacher is "busy with this band subject" at (d,p).
func (b *ModelBuilder) addTeacherNonOverlap() {
	if !b.rules.Bool(RuleKeineLehrerkonflikte) {
		return
	}
	byTeacher := b.groupByTeacher()
	bandParallel := b.rules.Bool(RuleBandLehrerParallel)

	for teacherID, fids := range byTeacher {
		if b.load.PoolTeacherIDs[teacherID] {
			continue
		}
		for d := 0; d < 5; d++ {
			for p := 0; p < b.s; p++ {
				if !bandParallel {
					vars := make([]solver.VarRef, 0, len(fids))
					for _, fid := range fids {
						vars = append(vars, b.x[fid][d][p])
					}
					b.model.AddLinearLe(solver.Sum(vars...), 1)
					continue
				}

				buckets := map[string][]int{}
				var nonBand []int
				for _, fid := range fids {
					row := b.rows[fid]
					if row.IsBandSubject {
						buckets[row.CanonicalSubjectID] = append(buckets[row.CanonicalSubjectID], fid)
					} else {
						nonBand = append(nonBand, fid)
					}
				}

				nonBandVars := make([]solver.VarRef, 0, len(nonBand))
				for _, fid := range nonBand {
					nonBandVars = append(nonBandVars, b.x[fid][d][p])
				}
				if len(nonBandVars) > 0 {
					b.model.AddLinearLe(solver.Sum(nonBandVars...), 1)
				}
				nb := b.reifAny(nonBandVars, fmt.Sprintf("nb[%s,%d,%d]", teacherID, d, p))

				bucketKeys := make([]string, 0, len(buckets))
				for k := range buckets {
					bucketKeys = append(bucketKeys, k)
				}
				sort.Strings(bucketKeys)

				sumExpr := solver.Sum(nb)
				for _, k := range bucketKeys {
					rowsInBucket := buckets[k]
					bucketVars := make([]solver.VarRef, 0, len(rowsInBucket))
					for _, fid := range rowsInBucket {
						bucketVars = append(bucketVars, b.x[fid][d][p])
					}
					bb := b.reifAny(bucketVars, fmt.Sprintf("bb[%s,%s,%d,%d]", teacherID, k, d, p))
					sumExpr = sumExpr.Plus(solver.Sum(bb))
				}
				b.model.AddLinearLe(sumExpr, 1)
			}
		}
	}
}

// addTeacherWorkdays zeroes a teacher's rows on days outside their mask.
func (b *ModelBuilder) addTeacherWorkdays() {
	if !b.rules.Bool(RuleLehrerArbeitstage) {
		return
	}
	for fid, row := range b.rows {
		mask, ok := b.load.TeacherWorkdayMask[row.TeacherID]
		if !ok {
			continue
		}
		for d := 0; d < 5; d++ {
			if mask[d] {
				continue
			}
			for p := 0; p < b.s; p++ {
				b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
			}
		}
	}
}

// addRoomAvailability zeroes cells where a requirement's bound room is
// closed. Rooms are not exclusive resources here.
func (b *ModelBuilder) addRoomAvailability() {
	if !b.rules.Bool(RuleRaumVerfuegbarkeit) {
		return
	}
	for fid, row := range b.rows {
		if row.RequiredRoomID == "" {
			continue
		}
		roomDays, ok := b.bp.RoomPlan[row.RequiredRoomID]
		if !ok {
			continue
		}
		for d := 0; d < 5; d++ {
			mask := roomDays[CanonicalDays[d]]
			for p := 0; p < b.s; p++ {
				if p < len(mask) && mask[p] {
					continue
				}
				b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
			}
		}
	}
}

// addClassWindows zeroes cells outside a class's availability window.
func (b *ModelBuilder) addClassWindows() {
	if !b.rules.Bool(RuleBasisplanWindows) {
		return
	}
	for fid, row := range b.rows {
		windows, ok := b.bp.ClassWindowsByName[row.ClassName]
		if !ok {
			continue
		}
		for d := 0; d < 5; d++ {
			mask, ok := windows[CanonicalDays[d]]
			if !ok {
				continue
			}
			for p := 0; p < b.s; p++ {
				if p < len(mask) && mask[p] {
					continue
				}
				b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
			}
		}
	}
}

// addFixedPins forces every base-plan pin to 1.
func (b *ModelBuilder) addFixedPins() {
	if !b.rules.Bool(RuleBasisplanFixed) {
		return
	}
	for fid, byDay := range b.bp.FixedSlotMap {
		if fid < 0 || fid >= len(b.rows) {
			continue
		}
		for day, periods := range byDay {
			d := dayIndex(day)
			if d < 0 {
				continue
			}
			for p := range periods {
				if p < 0 || p >= b.s {
					continue
				}
				b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 1)
			}
		}
	}
}

// addFlexibleGroups restricts a flexibly-planned requirement to the union
// of its candidate cells. A requirement with exactly one group must occupy
// exactly one of that group's cells, not just stay inside them.
func (b *ModelBuilder) addFlexibleGroups() {
	if !b.rules.Bool(RuleBasisplanFlexible) {
		return
	}

	allowedByFid := make(map[int]map[SlotKey]bool)
	groupCountByFid := make(map[int]int)
	for _, g := range b.bp.FlexibleGroups {
		groupCountByFid[g.FID]++
		set := allowedByFid[g.FID]
		if set == nil {
			set = make(map[SlotKey]bool)
			allowedByFid[g.FID] = set
		}
		for _, s := range g.Slots {
			set[s] = true
		}
	}

	for fid, allowed := range allowedByFid {
		if fid < 0 || fid >= len(b.rows) {
			continue
		}
		for d := 0; d < 5; d++ {
			day := CanonicalDays[d]
			for p := 0; p < b.s; p++ {
				if b.bp.PauseSlots[p] {
					continue
				}
				if !allowed[SlotKey{Day: day, Period: p}] {
					b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
				}
			}
		}
	}

	for _, g := range b.bp.FlexibleGroups {
		if groupCountByFid[g.FID] != 1 || len(g.Slots) == 0 {
			continue
		}
		vars := make([]solver.VarRef, 0, len(g.Slots))
		for _, s := range g.Slots {
			d := dayIndex(s.Day)
			if d < 0 || s.Period < 0 || s.Period >= b.s {
				continue
			}
			vars = append(vars, b.x[g.FID][d][s.Period])
		}
		if len(vars) > 0 {
			b.model.AddLinearEq(solver.Sum(vars...), 1)
		}
	}
}

// dailyCap returns 6 for Mo-Do and 5 for Fr, clipped to S.
func dailyCap(day, s int) int {
	cap := 6
	if day == 4 {
		cap = 5
	}
	if cap > s {
		cap = s
	}
	return cap
}

// addDailyPeriodCaps bounds a class's lessons at 6 per day Mo-Do and 5 on Fr.
func (b *ModelBuilder) addDailyPeriodCaps() {
	if !b.rules.Bool(RuleStundenbegrenzung) {
		return
	}
	for _, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			cap := dailyCap(d, b.s)
			vars := make([]solver.VarRef, 0, len(fids))
			for _, fid := range fids {
				for p := 0; p < cap; p++ {
					vars = append(vars, b.x[fid][d][p])
				}
			}
			b.model.AddLinearLe(solver.Sum(vars...), cap)
		}
	}
}

// addFirstPeriodWhenFull: a day filled to exact capacity must start in
// period 0. Days below capacity may start later.
func (b *ModelBuilder) addFirstPeriodWhenFull() {
	if !b.rules.Bool(RuleStundenbegrenzungErste) {
		return
	}
	for _, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			cap := dailyCap(d, b.s)
			vars := make([]solver.VarRef, 0, len(fids))
			for _, fid := range fids {
				for p := 0; p < cap; p++ {
					vars = append(vars, b.x[fid][d][p])
				}
			}
			full := b.model.NewBoolVar(fmt.Sprintf("full[%d]", d))
			b.model.AddReifEq(full, solver.Sum(vars...), cap)

			firstPeriodVars := make([]solver.VarRef, 0, len(fids))
			for _, fid := range fids {
				firstPeriodVars = append(firstPeriodVars, b.x[fid][d][0])
			}
			eqOne := b.model.NewBoolVar(fmt.Sprintf("firstPeriodUsed[%d]", d))
			b.model.AddReifEq(eqOne, solver.Sum(firstPeriodVars...), 1)
			b.model.AddImplication(full, eqOne)
		}
	}
}

// addSubjectAfternoonRules applies the per-requirement afternoon policy:
// must concentrates all hours after period 6, never bans them there.
func (b *ModelBuilder) addSubjectAfternoonRules() {
	if !b.rules.Bool(RuleFachNachmittagRegeln) {
		return
	}
	for fid, row := range b.rows {
		switch row.AfternoonRule {
		case AfternoonMust:
			for d := 0; d < 5; d++ {
				for p := 0; p < morningPeriods && p < b.s; p++ {
					b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
				}
			}
			var afternoonVars []solver.VarRef
			for d := 0; d < 5; d++ {
				for p := morningPeriods; p < b.s; p++ {
					afternoonVars = append(afternoonVars, b.x[fid][d][p])
				}
			}
			b.model.AddLinearEq(solver.Sum(afternoonVars...), row.WeeklyHours)
		case AfternoonNever:
			for d := 0; d < 5; d++ {
				for p := morningPeriods; p < b.s; p++ {
					b.model.AddLinearEq(solver.Sum(b.x[fid][d][p]), 0)
				}
			}
		}
	}
}

// addAfternoonBreak frees the sixth teaching period on any day with
// afternoon lessons.
func (b *ModelBuilder) addAfternoonBreak() {
	if !b.rules.Bool(RuleNachmittagPauseStunde) || morningPeriods >= b.s {
		return
	}
	for _, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			var afternoonVars []solver.VarRef
			for _, fid := range fids {
				for p := morningPeriods; p < b.s; p++ {
					afternoonVars = append(afternoonVars, b.x[fid][d][p])
				}
			}
			if len(afternoonVars) == 0 {
				continue
			}
			hasAfternoon := b.reifAny(afternoonVars, fmt.Sprintf("hasAfternoon[%d]", d))

			var sixthVars []solver.VarRef
			for _, fid := range fids {
				sixthVars = append(sixthVars, b.x[fid][d][morningPeriods-1])
			}
			sixthZero := b.model.NewBoolVar(fmt.Sprintf("sixthZero[%d]", d))
			b.model.AddReifEq(sixthZero, solver.Sum(sixthVars...), 0)
			b.model.AddImplication(hasAfternoon, sixthZero)
		}
	}
}

// addMorningMinimum: a (class, day) with any morning lesson gets at least
// four of them. Encoded as the disjunction "sum==0 or sum>=4" via a big-M
// linear lower bound gated by the reified "has any morning row" indicator.
func (b *ModelBuilder) addMorningMinimum() {
	if !b.rules.Bool(RuleMittagsschuleVormittag) {
		return
	}
	for _, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			var morningVars []solver.VarRef
			for _, fid := range fids {
				for p := 0; p < morningPeriods && p < b.s; p++ {
					morningVars = append(morningVars, b.x[fid][d][p])
				}
			}
			if len(morningVars) == 0 {
				continue
			}
			hasMorning := b.reifAny(morningVars, fmt.Sprintf("hasMorning[%d]", d))
			expr := solver.Sum(morningVars...).Plus(solver.WeightedSum(solver.Term{Coeff: -bigM, Var: hasMorning}))
			b.model.AddLinearGe(expr, 4-bigM)
		}
	}
}

// addDoublePeriodDiscipline reifies adjacent pairs and isolated singles
// per requirement and enforces the must/should/may/never pairing policy,
// with the `einzelstunde_nur_rand` sub-toggle pushing a must-rule's one
// allowed single to the edge of the day.
func (b *ModelBuilder) addDoublePeriodDiscipline() {
	if !b.rules.Bool(RuleDoppelstundenregel) {
		return
	}
	nurRand := b.rules.Bool(RuleEinzelstundeNurRand)

	for fid, row := range b.rows {
		var allPairs, allSingles []solver.VarRef

		for d := 0; d < 5; d++ {
			xs := b.x[fid][d]

			for p := 0; p <= b.s-3; p++ {
				b.model.AddLinearLe(solver.Sum(xs[p], xs[p+1], xs[p+2]), 2)
			}

			pairs := make([]solver.VarRef, 0, b.s)
			for p := 0; p < b.s-1; p++ {
				pair := b.model.NewBoolVar(fmt.Sprintf("pair[%d,%d,%d]", fid, d, p))
				b.model.AddReifEq(pair, solver.Sum(xs[p], xs[p+1]), 2)
				pairs = append(pairs, pair)
				allPairs = append(allPairs, pair)
			}

			singles := make([]solver.VarRef, 0, b.s)
			for p := 0; p < b.s; p++ {
				terms := []solver.Term{{Coeff: 1, Var: xs[p]}}
				if p > 0 {
					terms = append(terms, solver.Term{Coeff: -1, Var: xs[p-1]})
				}
				if p < b.s-1 {
					terms = append(terms, solver.Term{Coeff: -1, Var: xs[p+1]})
				}
				single := b.model.NewBoolVar(fmt.Sprintf("single[%d,%d,%d]", fid, d, p))
				b.model.AddReifEq(single, solver.WeightedSum(terms...), 1)
				singles = append(singles, single)
				allSingles = append(allSingles, single)

				if nurRand && row.DoublePeriodRule == DoubleMust && p != 0 && p != b.s-1 {
					b.model.AddLinearEq(solver.Sum(single), 0)
				}
			}

			if row.DoublePeriodRule == DoubleNever {
				for _, pair := range pairs {
					b.model.AddLinearEq(solver.Sum(pair), 0)
				}
			}
			if row.DoublePeriodRule == DoubleMust {
				for p := 0; p <= b.s-3; p++ {
					b.model.AddLinearLe(solver.WeightedSum(
						solver.Term{Coeff: 1, Var: xs[p]},
						solver.Term{Coeff: 1, Var: xs[p+2]},
						solver.Term{Coeff: -1, Var: xs[p+1]},
					), 1)
				}
			}
		}

		countExpr := sumScaled(allPairs, 2).Plus(solver.Sum(allSingles...))
		if row.Participation == ParticipationAG {
			b.model.AddLinearLe(countExpr, row.WeeklyHours)
		} else {
			b.model.AddLinearEq(countExpr, row.WeeklyHours)
		}

		switch row.DoublePeriodRule {
		case DoubleMust:
			b.model.AddLinearEq(solver.Sum(allSingles...), row.WeeklyHours%2)
		case DoubleMay:
			b.model.AddLinearLe(solver.Sum(allPairs...), row.WeeklyHours/2)
			term := solver.Sum(allPairs...).Scaled(2).Plus(solver.Sum(allSingles...).Scaled(-1)).Scaled(b.rules.Int(WeightEinzelKann))
			b.addObjective(term)
		case DoubleShould:
			missing := b.excessOverCap(negatedSumVar(b, allPairs), -(row.WeeklyHours / 2), bigM, fmt.Sprintf("missingPairs[%d]", fid))
			extra := b.excessOverCap(sumVar(b, allSingles), row.WeeklyHours%2, bigM, fmt.Sprintf("extraSingles[%d]", fid))
			w := b.rules.Int(WeightEinzelSoll)
			b.addObjective(solver.Sum(missing, extra).Scaled(w))
		}
	}
}

// sumScaled builds a LinearExpr summing vars with a fixed coefficient.
func sumScaled(vars []solver.VarRef, coeff int) solver.LinearExpr {
	terms := make([]solver.Term, len(vars))
	for i, v := range vars {
		terms[i] = solver.Term{Coeff: coeff, Var: v}
	}
	return solver.LinearExpr{Terms: terms}
}

// sumVar materializes an IntVar equal to the sum of vars, so it can feed
// excessOverCap (which needs a VarRef, not an arbitrary expression).
func sumVar(b *ModelBuilder, vars []solver.VarRef) solver.VarRef {
	v := b.model.NewIntVar(-bigM, bigM, "sumVar")
	b.model.AddLinearEq(solver.Sum(vars...).Plus(solver.Sum(v).Scaled(-1)), 0)
	return v
}

// negatedSumVar materializes an IntVar equal to -(sum of vars).
func negatedSumVar(b *ModelBuilder, vars []solver.VarRef) solver.VarRef {
	v := b.model.NewIntVar(-bigM, bigM, "negSumVar")
	b.model.AddLinearEq(solver.Sum(vars...).Plus(solver.Sum(v)), 0)
	return v
}

// addCanonicalSubjectDailyCap bounds each (class, canonical subject) at two
// lessons per day, across all of its requirement rows. Always on.
func (b *ModelBuilder) addCanonicalSubjectDailyCap() {
	type key struct{ class, subject string }
	groups := make(map[key][]int)
	for fid, row := range b.rows {
		k := key{row.ClassID, row.CanonicalSubjectID}
		groups[k] = append(groups[k], fid)
	}
	for _, fids := range groups {
		for d := 0; d < 5; d++ {
			var vars []solver.VarRef
			for _, fid := range fids {
				vars = append(vars, b.x[fid][d]...)
			}
			b.model.AddLinearLe(solver.Sum(vars...), 2)
		}
	}
}

// addBandParallel schedules band subjects simultaneously across their
// classes: mandatory rows track a per-cell parallel indicator, optional AG
// rows may join, and joining classes suspend their other lessons.
func (b *ModelBuilder) addBandParallel() {
	if !b.rules.Bool(RuleBandstundenParallel) {
		return
	}

	type group struct {
		mandatory []int
		optional  []int
		classes   map[string]bool
	}
	bySubject := make(map[string]*group)
	for fid, row := range b.rows {
		if !row.IsBandSubject {
			continue
		}
		g, ok := bySubject[row.SubjectName]
		if !ok {
			g = &group{classes: make(map[string]bool)}
			bySubject[row.SubjectName] = g
		}
		if row.Participation == ParticipationAG {
			g.optional = append(g.optional, fid)
			g.classes[row.ClassID] = true
		} else {
			g.mandatory = append(g.mandatory, fid)
		}
	}

	subjectNames := make([]string, 0, len(bySubject))
	for name := range bySubject {
		subjectNames = append(subjectNames, name)
	}
	sort.Strings(subjectNames)

	for _, name := range subjectNames {
		g := bySubject[name]
		if len(g.mandatory) == 0 {
			continue
		}
		t := b.rows[g.mandatory[0]].WeeklyHours
		if t <= 0 {
			continue
		}
		agree := true
		for _, fid := range g.mandatory {
			if b.rows[fid].WeeklyHours != t {
				agree = false
				break
			}
		}
		if !agree {
			continue
		}

		var allParallel []solver.VarRef
		for d := 0; d < 5; d++ {
			var dayParallel []solver.VarRef
			for p := 0; p < b.s; p++ {
				parallel := b.model.NewBoolVar(fmt.Sprintf("bandParallel[%s,%d,%d]", name, d, p))

				for _, fid := range g.mandatory {
					b.model.AddImplication(b.x[fid][d][p], parallel)
					b.model.AddImplication(parallel, b.x[fid][d][p])
				}
				for _, fid := range g.optional {
					b.model.AddImplication(b.x[fid][d][p], parallel)
				}
				for classID := range g.classes {
					for fid, row := range b.rows {
						if row.ClassID != classID || isIn(fid, g.mandatory) || isIn(fid, g.optional) {
							continue
						}
						zero := b.model.NewBoolVar(fmt.Sprintf("bandExcl[%s,%d,%d,%d]", classID, d, p, fid))
						b.model.AddReifEq(zero, solver.Sum(b.x[fid][d][p]), 0)
						b.model.AddImplication(parallel, zero)
					}
				}

				allParallel = append(allParallel, parallel)
				dayParallel = append(dayParallel, parallel)
			}
			b.model.AddLinearLe(solver.Sum(dayParallel...), 1)
		}
		b.model.AddLinearEq(solver.Sum(allParallel...), t)

		if len(g.optional) > 0 {
			var assignedVars []solver.VarRef
			for _, fid := range g.optional {
				assignedVars = append(assignedVars, b.reifAny(b.rowVars(fid), fmt.Sprintf("bandOptAssigned[%d]", fid)))
			}
			w := b.rules.Int(WeightBandOptional)
			term := solver.LinearExpr{Const: len(g.optional) * w}.Plus(sumScaled(assignedVars, -w))
			b.addObjective(term)
		}
	}
}

func isIn(v int, list []int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// addNoGapConstraints penalizes (soft) or forbids (hard) holes in a
// class's day: late starts and empty periods between lessons.
func (b *ModelBuilder) addNoGapConstraints() {
	soft := b.rules.Bool(RuleKeineHohlstunden)
	hard := b.rules.Bool(RuleKeineHohlstundenHard)
	if !soft && !hard {
		return
	}

	periods := b.teachingPeriods()
	if len(periods) == 0 {
		return
	}

	for classID, fids := range b.groupByClass() {
		for d := 0; d < 5; d++ {
			occ := make([]solver.VarRef, len(periods))
			for i, p := range periods {
				var vars []solver.VarRef
				for _, fid := range fids {
					vars = append(vars, b.x[fid][d][p])
				}
				occ[i] = b.reifAny(vars, fmt.Sprintf("occ[%s,%d,%d]", classID, d, p))
			}

			if soft {
				wStart := b.rules.Int(WeightGapsStart)
				wInside := b.rules.Int(WeightGapsInside)
				term := solver.LinearExpr{Const: wStart}.Plus(sumScaled([]solver.VarRef{occ[0]}, -wStart))
				for i := 0; i < len(occ)-1; i++ {
					t01 := b.model.NewBoolVar(fmt.Sprintf("gapStart[%s,%d,%d]", classID, d, i))
					b.model.AddReifEq(t01, solver.WeightedSum(
						solver.Term{Coeff: 1, Var: occ[i+1]},
						solver.Term{Coeff: -1, Var: occ[i]},
					), 1)
					term = term.Plus(sumScaled([]solver.VarRef{t01}, wInside))
				}
				b.addObjective(term)
			}

			if hard {
				for i := 1; i < len(occ)-1; i++ {
					for i1 := 0; i1 < i; i1++ {
						for i2 := i + 1; i2 < len(occ); i2++ {
							b.model.AddLinearLe(solver.WeightedSum(
								solver.Term{Coeff: 1, Var: occ[i1]},
								solver.Term{Coeff: 1, Var: occ[i2]},
								solver.Term{Coeff: -1, Var: occ[i]},
							), 1)
						}
					}
				}
			}
		}
	}
}

// teachingPeriods lists the non-pause period indices in order; gap
// constraints run over this sequence so a pause never counts as a gap.
func (b *ModelBuilder) teachingPeriods() []int {
	out := make([]int, 0, b.s)
	for p := 0; p < b.s; p++ {
		if !b.bp.PauseSlots[p] {
			out = append(out, p)
		}
	}
	return out
}

// addTeacherGapPenalty penalizes teacher gaps beyond the configured daily
// and weekly allowances.
func (b *ModelBuilder) addTeacherGapPenalty() {
	if !b.rules.Bool(RuleLehrerHohlstundenSoft) {
		return
	}
	dayMax := b.rules.Int(TeacherGapsDayMax)
	weekMax := b.rules.Int(TeacherGapsWeekMax)
	w := b.rules.Int(WeightTeacherGaps)

	periods := b.teachingPeriods()
	if len(periods) == 0 {
		return
	}

	for teacherID, fids := range b.groupByTeacher() {
		if b.load.PoolTeacherIDs[teacherID] {
			continue
		}
		var weekGaps []solver.VarRef
		for d := 0; d < 5; d++ {
			occ := make([]solver.VarRef, len(periods))
			for i, p := range periods {
				var vars []solver.VarRef
				for _, fid := range fids {
					vars = append(vars, b.x[fid][d][p])
				}
				occ[i] = b.reifAny(vars, fmt.Sprintf("tocc[%s,%d,%d]", teacherID, d, p))
			}

			var segVars []solver.VarRef
			segVars = append(segVars, occ[0])
			for i := 1; i < len(occ); i++ {
				seg := b.model.NewBoolVar(fmt.Sprintf("seg[%s,%d,%d]", teacherID, d, i))
				b.model.AddReifEq(seg, solver.WeightedSum(
					solver.Term{Coeff: 1, Var: occ[i]},
					solver.Term{Coeff: -1, Var: occ[i-1]},
				), 1)
				segVars = append(segVars, seg)
			}

			diff := b.diffVar(solver.Sum(segVars...), 1, bigM, fmt.Sprintf("segDiff[%s,%d]", teacherID, d))
			gaps := b.model.NewIntVar(0, bigM, fmt.Sprintf("gaps[%s,%d]", teacherID, d))
			b.model.AddMaxEquality(gaps, diff, b.zeroIntVar())

			dayExcess := b.excessOverCap(gaps, dayMax, bigM, fmt.Sprintf("dayGapExcess[%s,%d]", teacherID, d))
			b.addObjective(sumScaled([]solver.VarRef{dayExcess}, w))

			weekGaps = append(weekGaps, gaps)
		}

		weekTotal := sumVar(b, weekGaps)
		weekExcess := b.excessOverCap(weekTotal, weekMax, bigM, fmt.Sprintf("weekGapExcess[%s]", teacherID))
		b.addObjective(sumScaled([]solver.VarRef{weekExcess}, w))
	}
}

// addEvenDistribution penalizes per-day deviation from a class's average
// daily load.
func (b *ModelBuilder) addEvenDistribution() {
	if !b.rules.Bool(RuleGleichverteilung) {
		return
	}
	w := b.rules.Int(WeightEvenDist)

	for classID, fids := range b.groupByClass() {
		total := 0
		for _, fid := range fids {
			total += b.rows[fid].WeeklyHours
		}
		avg := total / 5

		for d := 0; d < 5; d++ {
			var vars []solver.VarRef
			for _, fid := range fids {
				vars = append(vars, b.x[fid][d]...)
			}
			load := sumVar(b, vars)
			diff := b.diffVar(solver.Sum(load), avg, bigM, fmt.Sprintf("loadDiff[%s,%d]", classID, d))
			abs := b.model.NewIntVar(0, bigM, fmt.Sprintf("loadAbs[%s,%d]", classID, d))
			b.model.AddAbsEquality(abs, diff)
			b.addObjective(sumScaled([]solver.VarRef{abs}, w))
		}
	}
}

// groupByClass partitions requirement row indices (fids) by class id.
func (b *ModelBuilder) groupByClass() map[string][]int {
	out := make(map[string][]int)
	for fid, row := range b.rows {
		out[row.ClassID] = append(out[row.ClassID], fid)
	}
	return out
}

// groupByTeacher partitions requirement row indices (fids) by teacher id.
func (b *ModelBuilder) groupByTeacher() map[string][]int {
	out := make(map[string][]int)
	for fid, row := range b.rows {
		out[row.TeacherID] = append(out[row.TeacherID], fid)
	}
	return out
}
