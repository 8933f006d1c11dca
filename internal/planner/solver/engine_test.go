package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearConstraintViolation(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")

	tests := []struct {
		name   string
		c      constraint
		assign []int
		want   int
	}{
		{"eq satisfied", &linearConstraint{expr: Sum(a, b), op: opEq, k: 1}, []int{1, 0}, 0},
		{"eq violated", &linearConstraint{expr: Sum(a, b), op: opEq, k: 1}, []int{1, 1}, 1},
		{"le satisfied", &linearConstraint{expr: Sum(a, b), op: opLe, k: 1}, []int{0, 1}, 0},
		{"le violated", &linearConstraint{expr: Sum(a, b), op: opLe, k: 1}, []int{1, 1}, 1},
		{"ge violated", &linearConstraint{expr: Sum(a, b), op: opGe, k: 2}, []int{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.violation(tt.assign))
		})
	}
}

func TestReifEqConstraint(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	ind := m.NewBoolVar("ind")

	c := &reifEqConstraint{indicator: ind, expr: Sum(x), k: 1}

	assert.Equal(t, 0, c.violation([]int{1, 1}))
	assert.Equal(t, 0, c.violation([]int{0, 0}))
	assert.Equal(t, 1, c.violation([]int{1, 0}))
	assert.Equal(t, 1, c.violation([]int{0, 1}))
}

func TestMinMaxAbsConstraints(t *testing.T) {
	m := NewModel()
	a := m.NewIntVar(-5, 5, "a")
	b := m.NewIntVar(-5, 5, "b")
	r := m.NewIntVar(-5, 5, "r")

	minC := &minEqConstraint{result: r, vars: []VarRef{a, b}}
	assert.Equal(t, 0, minC.violation([]int{3, -2, -2}))
	assert.Equal(t, 5, minC.violation([]int{3, -2, 3}))

	maxC := &maxEqConstraint{result: r, vars: []VarRef{a, b}}
	assert.Equal(t, 0, maxC.violation([]int{3, -2, 3}))

	absC := &absEqConstraint{result: r, v: a}
	assert.Equal(t, 0, absC.violation([]int{-4, 0, 4}))
	assert.Equal(t, 4, absC.violation([]int{-4, 0, 0}))
}

func TestLinearExprScaledAndPlus(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")

	e := Sum(a).Scaled(3).Plus(LinearExpr{Terms: []Term{{Coeff: -1, Var: b}}, Const: 2})
	assert.Equal(t, 3+(-1)+2, e.eval([]int{1, 1}))
	assert.Equal(t, 2, e.eval([]int{0, 0}))
}

func TestSolveFindsOptimalOnTinyModel(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddLinearEq(Sum(a, b), 1)
	m.Minimize(Sum(a))

	res := m.Solve(Params{RandomSeed: 7, MaxTime: time.Second, NumSearchWorkers: 1})

	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, 0.0, res.ObjectiveValue)
	assert.Equal(t, 0, res.Value(a))
	assert.Equal(t, 1, res.Value(b))
}

func TestSolveHonorsHintsDeterministically(t *testing.T) {
	m := NewModel()
	vars := make([]VarRef, 6)
	for i := range vars {
		vars[i] = m.NewBoolVar("v")
	}
	m.AddLinearEq(Sum(vars...), 2)
	m.AddHint(vars[0], 1)
	m.AddHint(vars[3], 1)

	res := m.Solve(Params{RandomSeed: 42, MaxTime: time.Second, NumSearchWorkers: 1})

	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, 1, res.Value(vars[0]))
	assert.Equal(t, 1, res.Value(vars[3]))
}

func TestSolveReportsInfeasibleContradiction(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	m.AddLinearEq(Sum(a), 1)
	m.AddLinearEq(Sum(a), 0)

	res := m.Solve(Params{RandomSeed: 1, MaxTime: 50 * time.Millisecond, NumSearchWorkers: 1})

	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestSolveMultiWorkerPicksFeasible(t *testing.T) {
	m := NewModel()
	vars := make([]VarRef, 4)
	for i := range vars {
		vars[i] = m.NewBoolVar("v")
	}
	m.AddLinearLe(Sum(vars...), 2)
	m.AddLinearGe(Sum(vars...), 2)

	res := m.Solve(Params{RandomSeed: 3, MaxTime: time.Second, NumSearchWorkers: 4, RandomizeSearch: true})

	require.Equal(t, StatusOptimal, res.Status)
	total := 0
	for _, v := range vars {
		total += res.Value(v)
	}
	assert.Equal(t, 2, total)
}

func TestClearHints(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	m.AddHint(a, 1)
	m.ClearHints()
	m.AddLinearEq(Sum(a), 0)

	res := m.Solve(Params{RandomSeed: 5, MaxTime: 100 * time.Millisecond, NumSearchWorkers: 1})
	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, 0, res.Value(a))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OPTIMAL", StatusOptimal.String())
	assert.Equal(t, "FEASIBLE", StatusFeasible.String())
	assert.Equal(t, "INFEASIBLE", StatusInfeasible.String())
	assert.Equal(t, "UNKNOWN", StatusUnknown.String())
}
