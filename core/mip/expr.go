package mip

// Term is a coefficient applied to a variable.
type Term struct {
	Var  *Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression with coefficient 1 on every variable.
func Sum(vars ...*Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// Add appends coef·v.
func (e *Expr) Add(v *Var, coef float64) {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// AddExpr appends scale·o.
func (e *Expr) AddExpr(o Expr, scale float64) {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: t.Coef * scale})
	}
	e.Constant += o.Constant * scale
}

// Scaled returns a copy of e multiplied by s.
func (e Expr) Scaled(s float64) Expr {
	out := Expr{Terms: make([]Term, len(e.Terms)), Constant: e.Constant * s}
	for i, t := range e.Terms {
		out.Terms[i] = Term{Var: t.Var, Coef: t.Coef * s}
	}
	return out
}

// Len is the number of terms, duplicates included.
func (e Expr) Len() int { return len(e.Terms) }

// Compact merges duplicate variables and drops zero coefficients. Term order
// follows the first occurrence of each variable.
func (e Expr) Compact() Expr {
	idx := make(map[*Var]int, len(e.Terms))
	out := Expr{Terms: make([]Term, 0, len(e.Terms)), Constant: e.Constant}
	for _, t := range e.Terms {
		if i, ok := idx[t.Var]; ok {
			out.Terms[i].Coef += t.Coef
			continue
		}
		idx[t.Var] = len(out.Terms)
		out.Terms = append(out.Terms, t)
	}
	n := 0
	for _, t := range out.Terms {
		if t.Coef != 0 {
			out.Terms[n] = t
			n++
		}
	}
	out.Terms = out.Terms[:n]
	return out
}

// Eval computes the expression for the values indexed by Var.ID.
func (e Expr) Eval(values []float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var.ID]
	}
	return s
}
