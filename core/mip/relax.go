package mip

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// onPivot runs before every simplex pivot. Tests replace it to inject delays
// and failures.
var onPivot = func() error { return nil }

// errInterrupted stops a relaxation when the search context ends or its time
// limit passes.
var errInterrupted = errors.New("mip: relaxation interrupted")

type relaxStatus int

const (
	relaxOptimal relaxStatus = iota
	relaxInfeasible
)

const (
	primalTol = 1e-9
	dualTol   = 1e-12
	pivotTol  = 1e-9
	dropTol   = 1e-14
	// artificialBound stands in for an infinite bound a nonbasic column
	// would have to sit on. An optimum that still uses it is unbounded.
	artificialBound = 1e7
	perturbScale    = 1e-7
)

type colState int8

const (
	atLower colState = iota
	atUpper
	basic
)

// relaxation is a bounded dual simplex over the rows Σ a·x - s = 0, where
// every row owns a slack s bounded by the row range. Columns 0..n-1 are the
// model variables and n..n+m-1 the slacks. The dense tableau B⁻¹[A | -I]
// survives between solves, so a node restarts from the basis that was
// optimal for the previously solved node and only the changed bounds have to
// be repaired.
type relaxation struct {
	c    []float64 // minimization costs of the model variables
	cost []float64 // perturbed costs of every column
	rows []row
	n, m int

	colRows [][]int
	colCoef [][]float64

	tab   *mat.Dense
	d     []float64
	x     []float64
	lb    []float64
	ub    []float64
	state []colState
	head  []int

	dirty         bool
	pivots        int
	sinceRefactor int
	maxIter       int
	interrupted   func() bool
}

// newRelaxation prepares the slack basis. Costs of variables with a finite
// upper bound get a tiny column-specific perturbation so that ties in the
// ratio test are rare; solve corrects the returned bound for it.
func newRelaxation(c []float64, rows []row, bounded []bool) *relaxation {
	n, m := len(c), len(rows)
	r := &relaxation{
		c:       c,
		cost:    make([]float64, n+m),
		rows:    rows,
		n:       n,
		m:       m,
		colRows: make([][]int, n),
		colCoef: make([][]float64, n),
		d:       make([]float64, n+m),
		x:       make([]float64, n+m),
		lb:      make([]float64, n+m),
		ub:      make([]float64, n+m),
		state:   make([]colState, n+m),
		head:    make([]int, m),
	}
	maxC := 0.0
	for _, v := range c {
		maxC = math.Max(maxC, math.Abs(v))
	}
	for j, v := range c {
		r.cost[j] = v
		if bounded[j] {
			r.cost[j] += perturbScale * maxC * (1 + float64((j*7919)%101)/101)
		}
	}
	copy(r.d, r.cost)
	if m > 0 {
		r.tab = mat.NewDense(m, n+m, nil)
	}
	for i, rw := range rows {
		for k, j := range rw.idx {
			r.tab.Set(i, j, -rw.coef[k])
			r.colRows[j] = append(r.colRows[j], i)
			r.colCoef[j] = append(r.colCoef[j], rw.coef[k])
		}
		r.tab.Set(i, n+i, 1)
		r.head[i] = n + i
		r.state[n+i] = basic
		r.lb[n+i], r.ub[n+i] = rw.lo, rw.hi
	}
	return r
}

// solve returns the optimal x for the box [lb,ub] and a lower bound on the
// minimised objective (without constant).
func (r *relaxation) solve(lb, ub []float64) (status relaxStatus, x []float64, bound float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: simplex panic: %v", ErrNumerical, p)
		}
	}()
	copy(r.lb, lb)
	copy(r.ub, ub)
	r.place()
	if r.m > 0 {
		status, err = r.iterate()
		if err != nil || status == relaxInfeasible {
			return status, nil, 0, err
		}
	}

	x = make([]float64, r.n)
	for j := range x {
		v := r.x[j]
		if math.IsInf(ub[j], 1) && v > artificialBound/2 {
			return 0, nil, 0, ErrUnbounded
		}
		x[j] = math.Min(math.Max(v, lb[j]), ub[j])
	}
	return relaxOptimal, x, dot(r.c, x) - r.perturbation(lb, ub), nil
}

// perturbation bounds how much the perturbed optimum can overstate the true
// optimum over the box.
func (r *relaxation) perturbation(lb, ub []float64) float64 {
	s := 0.0
	for j := 0; j < r.n; j++ {
		if e := r.cost[j] - r.c[j]; e != 0 {
			s += math.Abs(e) * (ub[j] - lb[j])
		}
	}
	return s
}

// place moves every nonbasic column onto the bound its reduced cost asks for,
// which keeps the basis dual feasible under any new box, and recomputes the
// basic values.
func (r *relaxation) place() {
	for j, st := range r.state {
		if st == basic {
			continue
		}
		switch {
		case r.ub[j] <= r.lb[j]:
			st = atLower
		case r.d[j] > dualTol:
			st = atLower
		case r.d[j] < -dualTol:
			st = atUpper
		case st == atLower && math.IsInf(r.lb[j], -1):
			st = atUpper
		case st == atUpper && math.IsInf(r.ub[j], 1):
			st = atLower
		}
		r.state[j] = st
		r.x[j] = r.boundValue(j, st)
	}
	r.computeBasics()
}

func (r *relaxation) boundValue(j int, st colState) float64 {
	if st == atUpper {
		if math.IsInf(r.ub[j], 1) {
			return artificialBound
		}
		return r.ub[j]
	}
	if math.IsInf(r.lb[j], -1) {
		return -artificialBound
	}
	return r.lb[j]
}

// computeBasics sets x_B = -B⁻¹N·x_N from the nonbasic values.
func (r *relaxation) computeBasics() {
	var nz []int
	for j, st := range r.state {
		if st != basic && r.x[j] != 0 {
			nz = append(nz, j)
		}
	}
	for i, h := range r.head {
		row := r.tab.RawRowView(i)
		s := 0.0
		for _, j := range nz {
			s -= row[j] * r.x[j]
		}
		r.x[h] = s
	}
	r.dirty = false
}

func (r *relaxation) iterate() (relaxStatus, error) {
	limit := r.maxIter
	if limit <= 0 {
		limit = 50*(r.n+r.m) + 1000
	}
	for it := 0; ; it++ {
		if r.interrupted != nil && r.interrupted() {
			return 0, errInterrupted
		}
		i := r.leaving()
		if i < 0 {
			if !r.dirty {
				return relaxOptimal, nil
			}
			r.computeBasics()
			continue
		}
		if it >= limit {
			return 0, fmt.Errorf("%w: no optimum after %d pivots", ErrNumerical, limit)
		}
		if err := onPivot(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNumerical, err)
		}
		q := r.entering(i)
		if q < 0 {
			return relaxInfeasible, nil
		}
		if err := r.pivot(i, q); err != nil {
			return 0, err
		}
	}
}

// leaving returns the row whose basic column violates its bounds the most, or
// -1 when the basis is primal feasible.
func (r *relaxation) leaving() int {
	best, out := primalTol, -1
	for i, h := range r.head {
		v := r.x[h]
		viol := 0.0
		if v < r.lb[h] {
			viol = r.lb[h] - v
		} else if v > r.ub[h] {
			viol = v - r.ub[h]
		}
		if viol > best {
			best, out = viol, i
		}
	}
	return out
}

// entering runs the dual ratio test on row i. It returns -1 when no column can
// repair the row, which proves the box infeasible.
func (r *relaxation) entering(i int) int {
	p := r.head[i]
	up := r.x[p] < r.lb[p]
	row := r.tab.RawRowView(i)
	q, bestRatio, bestAbs := -1, math.Inf(1), 0.0
	for j, st := range r.state {
		if st == basic || r.ub[j] <= r.lb[j] {
			continue
		}
		a := row[j]
		if math.Abs(a) < pivotTol {
			continue
		}
		// x_p moves by -a per unit increase of column j.
		var ok bool
		if up {
			ok = (st == atLower && a < 0) || (st == atUpper && a > 0)
		} else {
			ok = (st == atLower && a > 0) || (st == atUpper && a < 0)
		}
		if !ok {
			continue
		}
		dj := r.d[j]
		if st == atUpper {
			dj = -dj
		}
		ratio := math.Max(dj, 0) / math.Abs(a)
		if ratio < bestRatio || (ratio == bestRatio && math.Abs(a) > bestAbs) {
			q, bestRatio, bestAbs = j, ratio, math.Abs(a)
		}
	}
	return q
}

// pivot moves column q into the basis of row i. The leaving column settles on
// the bound it violated.
func (r *relaxation) pivot(i, q int) error {
	p := r.head[i]
	rowI := r.tab.RawRowView(i)
	a := rowI[q]
	bound, st := r.lb[p], atLower
	if r.x[p] > r.ub[p] {
		bound, st = r.ub[p], atUpper
	}

	t := (r.x[p] - bound) / a
	for k, h := range r.head {
		if f := r.tab.RawRowView(k)[q]; f != 0 {
			r.x[h] -= f * t
		}
	}
	r.x[q] += t
	r.x[p] = bound

	floats.Scale(1/a, rowI)
	for k := 0; k < r.m; k++ {
		if k == i {
			continue
		}
		rowK := r.tab.RawRowView(k)
		f := rowK[q]
		if math.Abs(f) < dropTol {
			rowK[q] = 0
			continue
		}
		floats.AddScaled(rowK, -f, rowI)
		rowK[q] = 0
	}
	rowI[q] = 1
	if dq := r.d[q]; dq != 0 {
		floats.AddScaled(r.d, -dq, rowI)
	}
	r.d[q] = 0

	r.state[p], r.state[q] = st, basic
	r.head[i] = q
	r.dirty = true
	r.pivots++
	r.sinceRefactor++
	if r.sinceRefactor >= 4*r.m+100 {
		return r.refactor()
	}
	return nil
}

// refactor rebuilds the tableau, the reduced costs and the basic values from
// the original rows to shed the rounding error of repeated pivots.
func (r *relaxation) refactor() error {
	B := mat.NewDense(r.m, r.m, nil)
	for i, h := range r.head {
		if h >= r.n {
			B.Set(h-r.n, i, -1)
			continue
		}
		for k, row := range r.colRows[h] {
			B.Set(row, i, r.colCoef[h][k])
		}
	}
	var lu mat.LU
	lu.Factorize(B)
	if c := lu.Cond(); math.IsInf(c, 1) || c > 1e14 {
		return fmt.Errorf("%w: basis condition %g", ErrNumerical, c)
	}

	full := mat.NewDense(r.m, r.n+r.m, nil)
	for j := 0; j < r.n; j++ {
		for k, row := range r.colRows[j] {
			full.Set(row, j, r.colCoef[j][k])
		}
	}
	for i := 0; i < r.m; i++ {
		full.Set(i, r.n+i, -1)
	}
	if err := lu.SolveTo(r.tab, false, full); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("%w: refactor: %v", ErrNumerical, err)
		}
	}

	raw := r.tab.RawMatrix()
	for k, v := range raw.Data {
		if math.Abs(v) < dropTol {
			raw.Data[k] = 0
		}
	}

	cB := make([]float64, r.m)
	for i, h := range r.head {
		cB[i] = r.cost[h]
	}
	var y mat.VecDense
	y.MulVec(r.tab.T(), mat.NewVecDense(r.m, cB))
	for j := range r.d {
		r.d[j] = r.cost[j] - y.AtVec(j)
	}
	for _, h := range r.head {
		r.d[h] = 0
	}
	r.computeBasics()
	r.sinceRefactor = 0
	return nil
}

func dot(c, x []float64) float64 {
	s := 0.0
	for j := range c {
		s += c[j] * x[j]
	}
	return s
}
