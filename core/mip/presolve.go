package mip

import (
	"math"
)

// row is a ranged constraint lo <= Σ coef[k]·x[idx[k]] <= hi.
type row struct {
	name string
	idx  []int
	coef []float64
	lo   float64
	hi   float64
}

// propagationPasses caps bound tightening sweeps per node.
const propagationPasses = 50

func rowsFromModel(m *Model) []row {
	rows := make([]row, 0, len(m.cons))
	for _, c := range m.cons {
		r := row{name: c.Name, lo: math.Inf(-1), hi: math.Inf(1)}
		for _, t := range c.Expr.Terms {
			r.idx = append(r.idx, t.Var.ID)
			r.coef = append(r.coef, t.Coef)
		}
		switch c.Sense {
		case LessEqual:
			r.hi = c.RHS
		case GreaterEqual:
			r.lo = c.RHS
		case Equal:
			r.lo, r.hi = c.RHS, c.RHS
		}
		rows = append(rows, r)
	}
	return rows
}

// activity returns the finite part of the minimum and maximum of the row over
// the box [lb,ub] and how many terms contribute an infinite amount to each.
func (r row) activity(lb, ub []float64) (minAct, maxAct float64, minInf, maxInf int) {
	for k, j := range r.idx {
		a := r.coef[k]
		lo, hi := a*lb[j], a*ub[j]
		if a < 0 {
			lo, hi = hi, lo
		}
		if math.IsInf(lo, 0) {
			minInf++
		} else {
			minAct += lo
		}
		if math.IsInf(hi, 0) {
			maxInf++
		} else {
			maxAct += hi
		}
	}
	return minAct, maxAct, minInf, maxInf
}

// propagate tightens lb and ub in place using every row until a fixpoint or
// the pass limit. It returns false when the box is proven empty.
func propagate(rows []row, integer []bool, lb, ub []float64, tol float64) bool {
	for pass := 0; pass < propagationPasses; pass++ {
		changed := false
		for _, r := range rows {
			minAct, maxAct, minInf, maxInf := r.activity(lb, ub)
			if minInf == 0 && minAct > r.hi+tol {
				return false
			}
			if maxInf == 0 && maxAct < r.lo-tol {
				return false
			}
			hiActive := !math.IsInf(r.hi, 1) && minInf == 0
			loActive := !math.IsInf(r.lo, -1) && maxInf == 0
			if !hiActive && !loActive {
				continue
			}
			for k, j := range r.idx {
				if ub[j]-lb[j] <= tol {
					continue
				}
				a := r.coef[k]
				newLo, newHi := lb[j], ub[j]
				if hiActive {
					slack := r.hi - minAct
					if a > 0 {
						newHi = math.Min(newHi, lb[j]+slack/a)
					} else {
						newLo = math.Max(newLo, ub[j]+slack/a)
					}
				}
				if loActive {
					slack := r.lo - maxAct
					if a > 0 {
						newLo = math.Max(newLo, ub[j]+slack/a)
					} else {
						newHi = math.Min(newHi, lb[j]+slack/a)
					}
				}
				if integer[j] {
					newLo = math.Ceil(newLo - tol)
					newHi = math.Floor(newHi + tol)
				}
				if newLo > newHi+tol {
					return false
				}
				if newLo > newHi {
					newHi = newLo
				}
				if newLo > lb[j]+tol {
					lb[j] = newLo
					changed = true
				}
				if newHi < ub[j]-tol {
					ub[j] = newHi
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return true
}
