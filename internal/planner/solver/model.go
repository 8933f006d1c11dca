// Package solver implements a CP-SAT-style modeling and solving interface:
// boolean/integer decision variables, linear (in)equalities, reified
// constraints, and a single combined minimization objective, backed by a
// seeded local-search engine instead of an external constraint solver
// binding (see engine.go).
package solver

// VarRef identifies a decision variable within a Model.
type VarRef int

type varSpec struct {
	lo, hi int
	name   string
}

// Term is one coeff*var addend of a LinearExpr.
type Term struct {
	Coeff int
	Var   VarRef
}

// LinearExpr is a sum of weighted variables plus a constant.
type LinearExpr struct {
	Terms []Term
	Const int
}

// Sum builds a LinearExpr with coefficient 1 for each variable.
func Sum(vars ...VarRef) LinearExpr {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Coeff: 1, Var: v}
	}
	return LinearExpr{Terms: terms}
}

// WeightedSum builds a LinearExpr directly from terms.
func WeightedSum(terms ...Term) LinearExpr {
	return LinearExpr{Terms: append([]Term(nil), terms...)}
}

// Plus returns a new expression with other's terms and constant appended.
func (e LinearExpr) Plus(other LinearExpr) LinearExpr {
	terms := append(append([]Term(nil), e.Terms...), other.Terms...)
	return LinearExpr{Terms: terms, Const: e.Const + other.Const}
}

// Scaled returns a new expression with every coefficient multiplied by k.
func (e LinearExpr) Scaled(k int) LinearExpr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Coeff: t.Coeff * k, Var: t.Var}
	}
	return LinearExpr{Terms: terms, Const: e.Const * k}
}

func (e LinearExpr) eval(assign []int) int {
	total := e.Const
	for _, t := range e.Terms {
		total += t.Coeff * assign[t.Var]
	}
	return total
}

type cmpOp int

const (
	opEq cmpOp = iota
	opLe
	opGe
)

type constraint interface {
	// violation returns 0 when satisfied, and a positive magnitude of
	// infeasibility otherwise.
	violation(assign []int) int
}

// Model accumulates decision variables, constraints, and a single
// minimization objective.
type Model struct {
	vars         []varSpec
	constraints  []constraint
	hints        map[VarRef]int
	objective    LinearExpr
	hasObjective bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{hints: make(map[VarRef]int)}
}

// NewBoolVar creates a 0/1 decision variable.
func (m *Model) NewBoolVar(name string) VarRef {
	m.vars = append(m.vars, varSpec{lo: 0, hi: 1, name: name})
	return VarRef(len(m.vars) - 1)
}

// NewIntVar creates an integer decision variable bounded by [lo, hi].
func (m *Model) NewIntVar(lo, hi int, name string) VarRef {
	m.vars = append(m.vars, varSpec{lo: lo, hi: hi, name: name})
	return VarRef(len(m.vars) - 1)
}

// NumVars returns the number of variables registered so far.
func (m *Model) NumVars() int { return len(m.vars) }

// AddLinearEq requires expr == k.
func (m *Model) AddLinearEq(expr LinearExpr, k int) {
	m.constraints = append(m.constraints, &linearConstraint{expr: expr, op: opEq, k: k})
}

// AddLinearLe requires expr <= k.
func (m *Model) AddLinearLe(expr LinearExpr, k int) {
	m.constraints = append(m.constraints, &linearConstraint{expr: expr, op: opLe, k: k})
}

// AddLinearGe requires expr >= k.
func (m *Model) AddLinearGe(expr LinearExpr, k int) {
	m.constraints = append(m.constraints, &linearConstraint{expr: expr, op: opGe, k: k})
}

// AddBoolOr requires at least one of vars to be true.
func (m *Model) AddBoolOr(vars ...VarRef) {
	m.constraints = append(m.constraints, &boolOrConstraint{vars: vars})
}

// AddBoolAnd requires every var to be true.
func (m *Model) AddBoolAnd(vars ...VarRef) {
	m.constraints = append(m.constraints, &boolAndConstraint{vars: vars})
}

// AddImplication requires that if from is true, to must also be true.
func (m *Model) AddImplication(from, to VarRef) {
	m.constraints = append(m.constraints, &implicationConstraint{from: from, to: to})
}

// AddReifEq ties a boolean indicator to whether expr == k: indicator is 1
// exactly when the linear expression equals k.
func (m *Model) AddReifEq(indicator VarRef, expr LinearExpr, k int) {
	m.constraints = append(m.constraints, &reifEqConstraint{indicator: indicator, expr: expr, k: k})
}

// AddMinEquality requires result == min(vars...).
func (m *Model) AddMinEquality(result VarRef, vars ...VarRef) {
	m.constraints = append(m.constraints, &minEqConstraint{result: result, vars: vars})
}

// AddMaxEquality requires result == max(vars...).
func (m *Model) AddMaxEquality(result VarRef, vars ...VarRef) {
	m.constraints = append(m.constraints, &maxEqConstraint{result: result, vars: vars})
}

// AddAbsEquality requires result == |v|.
func (m *Model) AddAbsEquality(result VarRef, v VarRef) {
	m.constraints = append(m.constraints, &absEqConstraint{result: result, v: v})
}

// AddHint suggests an initial value for var; the search engine uses hints to
// seed its starting assignment but never treats them as binding.
func (m *Model) AddHint(v VarRef, value int) {
	m.hints[v] = value
}

// ClearHints removes all hints, letting a multi-start orchestrator re-seed
// them per attempt.
func (m *Model) ClearHints() {
	m.hints = make(map[VarRef]int)
}

// Minimize installs the objective expression. Calling it more than once
// replaces the previous objective.
func (m *Model) Minimize(expr LinearExpr) {
	m.objective = expr
	m.hasObjective = true
}

// HasObjective reports whether Minimize has been called.
func (m *Model) HasObjective() bool { return m.hasObjective }
