package mip

import (
	"errors"
	"fmt"
	"math"
)

// Sense is the relation between a constraint expression and its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Direction selects whether the objective is minimized or maximized.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

var (
	// ErrDuplicateName is returned when a variable or constraint name is reused.
	ErrDuplicateName = errors.New("mip: duplicate name")
	// ErrForeignVar is returned when an expression references a variable of another model.
	ErrForeignVar = errors.New("mip: variable does not belong to model")
)

// Var is a decision variable registered on a Model. ID is the index of the
// variable inside its model and of its value inside a Solution.
type Var struct {
	ID      int
	Name    string
	Lower   float64
	Upper   float64
	Integer bool
}

// Binary reports whether v is an integer variable bounded by [0,1].
func (v *Var) Binary() bool {
	return v.Integer && v.Lower == 0 && v.Upper == 1
}

// Constraint is a linear row: Expr Sense RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Model is a mixed-integer linear program. A Model is not safe for concurrent
// mutation; build it on one goroutine and hand it to a Solver.
type Model struct {
	name      string
	vars      []*Var
	varNames  map[string]*Var
	cons      []*Constraint
	conNames  map[string]struct{}
	objective Expr
	direction Direction
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:     name,
		varNames: make(map[string]*Var),
		conNames: make(map[string]struct{}),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NewVar registers a variable with bounds [lb, ub]. The lower bound must be
// finite.
func (m *Model) NewVar(name string, lb, ub float64, integer bool) (*Var, error) {
	if name == "" {
		return nil, fmt.Errorf("mip: empty variable name")
	}
	if _, ok := m.varNames[name]; ok {
		return nil, fmt.Errorf("%w: variable %s", ErrDuplicateName, name)
	}
	if math.IsInf(lb, 0) || math.IsNaN(lb) || math.IsNaN(ub) {
		return nil, fmt.Errorf("mip: variable %s: lower bound must be finite", name)
	}
	if ub < lb {
		return nil, fmt.Errorf("mip: variable %s: upper bound %g below lower bound %g", name, ub, lb)
	}
	v := &Var{ID: len(m.vars), Name: name, Lower: lb, Upper: ub, Integer: integer}
	m.vars = append(m.vars, v)
	m.varNames[name] = v
	return v, nil
}

// NewBinary registers a 0/1 integer variable.
func (m *Model) NewBinary(name string) (*Var, error) {
	return m.NewVar(name, 0, 1, true)
}

// AddConstraint appends the row e sense rhs. Constant terms of e are moved to
// the right-hand side.
func (m *Model) AddConstraint(name string, e Expr, sense Sense, rhs float64) (*Constraint, error) {
	if name == "" {
		name = fmt.Sprintf("c%d", len(m.cons))
	}
	if _, ok := m.conNames[name]; ok {
		return nil, fmt.Errorf("%w: constraint %s", ErrDuplicateName, name)
	}
	if err := m.owns(e); err != nil {
		return nil, fmt.Errorf("constraint %s: %w", name, err)
	}
	c := &Constraint{
		Name:  name,
		Expr:  Expr{Terms: e.Compact().Terms},
		Sense: sense,
		RHS:   rhs - e.Constant,
	}
	m.cons = append(m.cons, c)
	m.conNames[name] = struct{}{}
	return c, nil
}

// SetObjective replaces the objective function.
func (m *Model) SetObjective(e Expr, dir Direction) error {
	if err := m.owns(e); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	m.objective = e.Compact()
	m.direction = dir
	return nil
}

func (m *Model) owns(e Expr) error {
	for _, t := range e.Terms {
		if t.Var == nil || t.Var.ID < 0 || t.Var.ID >= len(m.vars) || m.vars[t.Var.ID] != t.Var {
			return ErrForeignVar
		}
	}
	return nil
}

// Vars returns the registered variables in creation order.
func (m *Model) Vars() []*Var { return m.vars }

// Var looks up a variable by name.
func (m *Model) Var(name string) (*Var, bool) {
	v, ok := m.varNames[name]
	return v, ok
}

// Constraints returns the rows in insertion order.
func (m *Model) Constraints() []*Constraint { return m.cons }

// Objective returns the objective expression and direction.
func (m *Model) Objective() (Expr, Direction) { return m.objective, m.direction }

func (m *Model) NumVars() int        { return len(m.vars) }
func (m *Model) NumConstraints() int { return len(m.cons) }

// Check verifies that values satisfy bounds, integrality and every row within tol.
func (m *Model) Check(values []float64, tol float64) error {
	if len(values) != len(m.vars) {
		return fmt.Errorf("mip: %d values for %d variables", len(values), len(m.vars))
	}
	for _, v := range m.vars {
		x := values[v.ID]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("mip: %s=%g outside [%g,%g]", v.Name, x, v.Lower, v.Upper)
		}
		if v.Integer && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("mip: %s=%g not integral", v.Name, x)
		}
	}
	for _, c := range m.cons {
		lhs := c.Expr.Eval(values)
		ok := true
		switch c.Sense {
		case LessEqual:
			ok = lhs <= c.RHS+tol
		case GreaterEqual:
			ok = lhs >= c.RHS-tol
		case Equal:
			ok = math.Abs(lhs-c.RHS) <= tol
		}
		if !ok {
			return fmt.Errorf("mip: %s violated: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}
