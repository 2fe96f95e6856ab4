package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mishra-lab/scheduler/core/logger"
)

const (
	defaultNodeLimit = 200000
	defaultTolerance = 1e-6
	progressEvery    = 100
)

// BranchAndBound is a depth-first branch-and-bound solver. Each node tightens
// variable bounds by propagation and bounds its subtree with the LP relaxation,
// solved by a dual simplex that restarts from the previous node's basis. When
// every objective coefficient is a multiple of a common step over integer
// variables, node bounds are rounded up to that lattice before pruning. The
// search is deterministic for a given model.
type BranchAndBound struct {
	// NodeLimit caps explored nodes; zero selects a default.
	NodeLimit int
	// TimeLimit stops the search after the given duration when positive.
	TimeLimit time.Duration
	// Tolerance is the integrality and feasibility tolerance.
	Tolerance float64
	// Gap prunes nodes whose bound cannot improve the incumbent by more than Gap.
	Gap float64
	// OnProgress receives periodic search updates.
	OnProgress ProgressFunc
	Logger     logger.Logger
}

// NewBranchAndBound returns a solver with default limits.
func NewBranchAndBound(log logger.Logger) *BranchAndBound {
	return &BranchAndBound{Logger: log}
}

// node is a box of the search tree. bound is the relaxation bound of its
// parent.
type node struct {
	lb, ub []float64
	depth  int
	bound  float64
}

type search struct {
	s         *BranchAndBound
	m         *Model
	rows      []row
	integer   []bool
	relax     *relaxation
	sign      float64
	constant  float64
	best      []float64
	bestObj   float64
	hasBest   bool
	nodes     int
	started   time.Time
	tol       float64
	gap       float64
	step      float64
	nodeLimit int
}

// Solve implements Solver.
func (s *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	log := logger.OrNop(s.Logger)
	se := s.newSearch(m)
	sol, err := se.run(ctx)
	if err != nil {
		log.Errorf("branch and bound on %s failed after %d nodes: %v", m.Name(), se.nodes, err)
		return &Solution{Status: StatusError, Nodes: se.nodes, Duration: time.Since(se.started)}, err
	}
	log.Debugw("branch and bound finished", map[string]any{
		"model":     m.Name(),
		"status":    sol.Status.String(),
		"nodes":     sol.Nodes,
		"pivots":    se.relax.pivots,
		"objective": sol.Objective,
		"elapsed":   sol.Duration.String(),
	})
	return sol, nil
}

func (s *BranchAndBound) newSearch(m *Model) *search {
	obj, dir := m.Objective()
	sign := 1.0
	if dir == Maximize {
		sign = -1
	}
	n := m.NumVars()
	c := make([]float64, n)
	for _, t := range obj.Terms {
		c[t.Var.ID] += sign * t.Coef
	}
	integer := make([]bool, n)
	bounded := make([]bool, n)
	for _, v := range m.Vars() {
		integer[v.ID] = v.Integer
		bounded[v.ID] = !math.IsInf(v.Upper, 1)
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	gap := s.Gap
	if gap <= 0 {
		gap = 1e-6
	}
	limit := s.NodeLimit
	if limit <= 0 {
		limit = defaultNodeLimit
	}
	rows := rowsFromModel(m)
	return &search{
		s:         s,
		m:         m,
		rows:      rows,
		integer:   integer,
		relax:     newRelaxation(c, rows, bounded),
		sign:      sign,
		constant:  obj.Constant,
		started:   time.Now(),
		tol:       tol,
		gap:       gap,
		step:      objectiveStep(c, integer),
		nodeLimit: limit,
	}
}

func (se *search) run(ctx context.Context) (*Solution, error) {
	n := se.m.NumVars()
	root := node{lb: make([]float64, n), ub: make([]float64, n), bound: math.Inf(-1)}
	for _, v := range se.m.Vars() {
		root.lb[v.ID], root.ub[v.ID] = v.Lower, v.Upper
		if v.Integer {
			root.lb[v.ID] = math.Ceil(v.Lower - se.tol)
			root.ub[v.ID] = math.Floor(v.Upper + se.tol)
		}
	}

	se.relax.interrupted = func() bool { return ctx.Err() != nil || se.timeUp() }
	stack := []node{root}
	limited := false
	for len(stack) > 0 {
		if ctx.Err() != nil || se.timeUp() || se.nodes >= se.nodeLimit {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		se.nodes++
		if se.s.OnProgress != nil && se.nodes%progressEvery == 1 {
			se.s.OnProgress(se.progress(nd.depth))
		}

		children, err := se.expand(nd)
		if errors.Is(err, errInterrupted) {
			limited = true
			break
		}
		if err != nil {
			return nil, err
		}
		stack = append(stack, children...)
	}

	sol := &Solution{Nodes: se.nodes, Duration: time.Since(se.started)}
	switch {
	case se.hasBest && !limited:
		sol.Status = StatusOptimal
	case !se.hasBest && !limited:
		sol.Status = StatusInfeasible
	default:
		sol.Status = StatusLimit
	}
	if se.hasBest {
		sol.Values = se.best
		sol.Objective = se.sign*se.bestObj + se.constant
	}
	if se.s.OnProgress != nil {
		se.s.OnProgress(se.progress(0))
	}
	return sol, nil
}

// expand processes one node and returns the children to push, the preferred
// child last.
func (se *search) expand(nd node) ([]node, error) {
	if se.dominated(nd.bound) {
		return nil, nil
	}
	if !propagate(se.rows, se.integer, nd.lb, nd.ub, se.tol) {
		return nil, nil
	}
	status, x, bound, err := se.relax.solve(nd.lb, nd.ub)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", se.nodes, err)
	}
	if status == relaxInfeasible || se.dominated(bound) {
		return nil, nil
	}

	branch, frac := -1, 0.0
	for j, isInt := range se.integer {
		if !isInt {
			continue
		}
		d := math.Abs(x[j] - math.Round(x[j]))
		if d > se.tol && d > frac {
			branch, frac = j, d
		}
	}
	if branch < 0 {
		se.offer(x)
		return nil, nil
	}

	v := x[branch]
	down := node{lb: clone(nd.lb), ub: clone(nd.ub), depth: nd.depth + 1, bound: bound}
	down.ub[branch] = math.Floor(v)
	up := node{lb: clone(nd.lb), ub: clone(nd.ub), depth: nd.depth + 1, bound: bound}
	up.lb[branch] = math.Ceil(v)
	if v-math.Floor(v) >= 0.5 {
		return []node{down, up}, nil
	}
	return []node{up, down}, nil
}

// dominated reports whether a node whose relaxation is bounded below by bound
// cannot improve the incumbent.
func (se *search) dominated(bound float64) bool {
	if !se.hasBest {
		return false
	}
	if bound >= se.bestObj-se.gap {
		return true
	}
	if se.step > 0 {
		return math.Ceil(bound/se.step-1e-5) >= math.Round(se.bestObj/se.step)
	}
	return false
}

func (se *search) timeUp() bool {
	return se.s.TimeLimit > 0 && time.Since(se.started) > se.s.TimeLimit
}

// offer rounds an integral relaxation point and keeps it when it is feasible
// and improves the incumbent.
func (se *search) offer(x []float64) {
	vals := make([]float64, len(x))
	for j, v := range x {
		if se.integer[j] {
			v = math.Round(v)
		}
		vals[j] = v
	}
	if err := se.m.Check(vals, 1e3*se.tol); err != nil {
		logger.OrNop(se.s.Logger).Debugf("discarding rounded point: %v", err)
		return
	}
	obj := dot(se.relax.c, vals)
	if !se.hasBest || obj < se.bestObj-1e-12 {
		se.best, se.bestObj, se.hasBest = vals, obj, true
	}
}

func (se *search) progress(depth int) Progress {
	p := Progress{Model: se.m.Name(), Nodes: se.nodes, Depth: depth, HasIncumbent: se.hasBest, Elapsed: time.Since(se.started)}
	if se.hasBest {
		p.Incumbent = se.sign*se.bestObj + se.constant
	}
	return p
}

// objectiveStep returns the largest step that divides every cost, or zero when
// a cost sits on a continuous variable or no useful step exists.
func objectiveStep(c []float64, integer []bool) float64 {
	g, maxC := 0.0, 0.0
	for j, v := range c {
		a := math.Abs(v)
		if a < 1e-12 {
			continue
		}
		if !integer[j] {
			return 0
		}
		maxC = math.Max(maxC, a)
		if g == 0 {
			g = a
			continue
		}
		g = floatGCD(g, a)
	}
	if g < 1e-6*maxC {
		return 0
	}
	for _, v := range c {
		if k := math.Abs(v) / g; math.Abs(k-math.Round(k)) > 1e-6 {
			return 0
		}
	}
	return g
}

func floatGCD(a, b float64) float64 {
	eps := 1e-9 * math.Max(a, b)
	for i := 0; i < 64; i++ {
		if a < b {
			a, b = b, a
		}
		if b < eps {
			return a
		}
		r := math.Mod(a, b)
		if r < eps || b-r < eps {
			return b
		}
		a = r
	}
	return 0
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
