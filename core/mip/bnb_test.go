package mip

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knapsack(t *testing.T) (*Model, []*Var) {
	t.Helper()
	m := NewModel("knapsack")
	a, err := m.NewBinary("a")
	require.NoError(t, err)
	b, err := m.NewBinary("b")
	require.NoError(t, err)
	c, err := m.NewBinary("c")
	require.NoError(t, err)
	w := Expr{}
	w.Add(a, 2)
	w.Add(b, 3)
	w.Add(c, 1)
	_, err = m.AddConstraint("weight", w, LessEqual, 5)
	require.NoError(t, err)
	obj := Expr{}
	obj.Add(a, 5)
	obj.Add(b, 4)
	obj.Add(c, 3)
	require.NoError(t, m.SetObjective(obj, Maximize))
	return m, []*Var{a, b, c}
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	m, vars := knapsack(t)
	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 9, sol.Objective, 1e-6)
	assert.True(t, sol.IsOne(vars[0]))
	assert.True(t, sol.IsOne(vars[1]))
	assert.False(t, sol.IsOne(vars[2]))
	assert.NoError(t, m.Check(sol.Values, 1e-6))
}

func TestBranchAndBound_Assignment(t *testing.T) {
	cost := [2][2]float64{{1, 3}, {2, 1}}
	m := NewModel("assign")
	var x [2][2]*Var
	obj := Expr{}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v, err := m.NewBinary(varName("x", i, j))
			require.NoError(t, err)
			x[i][j] = v
			obj.Add(v, cost[i][j])
		}
	}
	for i := 0; i < 2; i++ {
		_, err := m.AddConstraint(varName("row", i, 0), Sum(x[i][0], x[i][1]), Equal, 1)
		require.NoError(t, err)
		_, err = m.AddConstraint(varName("col", i, 0), Sum(x[0][i], x[1][i]), Equal, 1)
		require.NoError(t, err)
	}
	require.NoError(t, m.SetObjective(obj, Minimize))

	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-6)
	assert.True(t, sol.IsOne(x[0][0]))
	assert.True(t, sol.IsOne(x[1][1]))
}

func TestBranchAndBound_GeneralInteger(t *testing.T) {
	m := NewModel("cover")
	x, err := m.NewVar("x", 0, 5, true)
	require.NoError(t, err)
	y, err := m.NewVar("y", 0, 5, true)
	require.NoError(t, err)
	row := Expr{}
	row.Add(x, 2)
	row.Add(y, 2)
	_, err = m.AddConstraint("demand", row, GreaterEqual, 3)
	require.NoError(t, err)
	require.NoError(t, m.SetObjective(Sum(x, y), Minimize))

	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-6)
	assert.InDelta(t, 2, sol.Value(x)+sol.Value(y), 1e-9)
}

func TestBranchAndBound_MixedContinuous(t *testing.T) {
	m := NewModel("mixed")
	x, err := m.NewVar("x", 0, 10, false)
	require.NoError(t, err)
	b, err := m.NewBinary("b")
	require.NoError(t, err)
	_, err = m.AddConstraint("cap", Sum(x, b), LessEqual, 1.5)
	require.NoError(t, err)
	obj := Sum(x)
	obj.Add(b, 2)
	require.NoError(t, m.SetObjective(obj, Maximize))

	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2.5, sol.Objective, 1e-6)
	assert.InDelta(t, 0.5, sol.Value(x), 1e-6)
	assert.True(t, sol.IsOne(b))
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := NewModel("infeasible")
	x, _ := m.NewBinary("x")
	y, _ := m.NewBinary("y")
	_, err := m.AddConstraint("too_much", Sum(x, y), GreaterEqual, 3)
	require.NoError(t, err)
	require.NoError(t, m.SetObjective(Sum(x, y), Maximize))

	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_CancelledContext(t *testing.T) {
	m, _ := knapsack(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := NewBranchAndBound(nil).Solve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, StatusLimit, sol.Status)
	assert.Equal(t, 0, sol.Nodes)
}

func TestBranchAndBound_SimplexFailure(t *testing.T) {
	orig := onPivot
	defer func() { onPivot = orig }()
	onPivot = func() error { return errors.New("singular basis") }
	m, _ := knapsack(t)
	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNumerical))
	assert.Equal(t, StatusError, sol.Status)
}

func TestBranchAndBound_SimplexPanicRecovered(t *testing.T) {
	orig := onPivot
	defer func() { onPivot = orig }()
	onPivot = func() error { panic("boom") }
	m, _ := knapsack(t)
	_, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNumerical))
}

var assignmentCosts = [][]float64{
	{4, 1, 3, 7, 5},
	{2, 0, 5, 3, 6},
	{3, 2, 2, 4, 1},
	{6, 5, 3, 2, 4},
	{5, 3, 4, 1, 2},
}

func assignment(t *testing.T, cost [][]float64) (*Model, [][]*Var) {
	t.Helper()
	n := len(cost)
	m := NewModel("assign")
	x := make([][]*Var, n)
	obj := Expr{}
	for i := range x {
		x[i] = make([]*Var, n)
		for j := range x[i] {
			v, err := m.NewBinary(varName("x", i, j))
			require.NoError(t, err)
			x[i][j] = v
			obj.Add(v, cost[i][j])
		}
	}
	for i := 0; i < n; i++ {
		var row, col Expr
		for j := 0; j < n; j++ {
			row.Add(x[i][j], 1)
			col.Add(x[j][i], 1)
		}
		_, err := m.AddConstraint(varName("row", i, 0), row, Equal, 1)
		require.NoError(t, err)
		_, err = m.AddConstraint(varName("col", i, 0), col, Equal, 1)
		require.NoError(t, err)
	}
	require.NoError(t, m.SetObjective(obj, Minimize))
	return m, x
}

func cheapestPermutation(cost [][]float64) float64 {
	n := len(cost)
	best := math.Inf(1)
	used := make([]bool, n)
	var walk func(i int, sum float64)
	walk = func(i int, sum float64) {
		if i == n {
			best = math.Min(best, sum)
			return
		}
		for j := 0; j < n; j++ {
			if !used[j] {
				used[j] = true
				walk(i+1, sum+cost[i][j])
				used[j] = false
			}
		}
	}
	walk(0, 0)
	return best
}

func TestBranchAndBound_AssignmentMatchesEnumeration(t *testing.T) {
	m, x := assignment(t, assignmentCosts)
	sol, err := NewBranchAndBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, cheapestPermutation(assignmentCosts), sol.Objective, 1e-6)
	require.NoError(t, m.Check(sol.Values, 1e-6))
	for i := range x {
		ones := 0
		for j := range x[i] {
			if sol.IsOne(x[i][j]) {
				ones++
			}
		}
		assert.Equal(t, 1, ones)
	}
}

func TestBranchAndBound_CancelledDuringRelaxation(t *testing.T) {
	orig := onPivot
	defer func() { onPivot = orig }()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	onPivot = func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil
	}
	m, _ := assignment(t, assignmentCosts)
	sol, err := NewBranchAndBound(nil).Solve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, StatusLimit, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
	assert.Equal(t, 2, calls)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_TimeLimitDuringRelaxation(t *testing.T) {
	orig := onPivot
	defer func() { onPivot = orig }()
	calls := 0
	onPivot = func() error {
		calls++
		time.Sleep(20 * time.Millisecond)
		return nil
	}
	m, _ := assignment(t, assignmentCosts)
	s := &BranchAndBound{TimeLimit: 30 * time.Millisecond}
	start := time.Now()
	sol, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusLimit, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
	assert.LessOrEqual(t, calls, 2)
}

func TestObjectiveStep(t *testing.T) {
	ints := []bool{true, true, true}
	assert.InDelta(t, 1.0/312, objectiveStep([]float64{1.0 / 312, -1.0 / 312, 2.0 / 312}, ints), 1e-12)
	assert.InDelta(t, 0.5, objectiveStep([]float64{1.5, 2, 0}, ints), 1e-12)
	assert.Zero(t, objectiveStep([]float64{1, 2, 3}, []bool{true, false, true}))
	assert.Zero(t, objectiveStep([]float64{1, math.Sqrt2, 0}, ints))
	assert.InDelta(t, 1e-10, objectiveStep([]float64{1e-10, 3e-10, 0}, ints), 1e-20)
}

func TestBranchAndBound_Progress(t *testing.T) {
	m, _ := knapsack(t)
	var updates []Progress
	s := &BranchAndBound{OnProgress: func(p Progress) { updates = append(updates, p) }}
	_, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, "knapsack", last.Model)
	assert.True(t, last.HasIncumbent)
	assert.InDelta(t, 9, last.Incumbent, 1e-6)
}

func TestBranchAndBound_Deterministic(t *testing.T) {
	m, _ := knapsack(t)
	s := NewBranchAndBound(nil)
	first, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	second, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Nodes, second.Nodes)
}

func varName(prefix string, i, j int) string {
	return prefix + "_" + string(rune('0'+i)) + "_" + string(rune('0'+j))
}
