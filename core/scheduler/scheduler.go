package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mishra-lab/scheduler/core/logger"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/core/roster"
)

// State is the lifecycle position of a Scheduler.
type State int

const (
	StateUnbuilt State = iota
	StateBuilt
	StateOptimal
	StateInfeasible
	StateError
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateOptimal:
		return "optimal"
	case StateInfeasible:
		return "infeasible"
	case StateError:
		return "error"
	default:
		return "unbuilt"
	}
}

// Stats describes the last built model.
type Stats struct {
	Variables     int
	Constraints   int
	BlockVars     int
	WeekendVars   int
	AdjacencyVars int
	Nodes         int
	SolveTime     time.Duration
}

// Scheduler builds, solves and extracts one on-call schedule. It is not safe
// for concurrent use; run independent attempts on separate instances.
type Scheduler struct {
	cfg          Config
	base         *roster.Roster
	longWeekends []int
	solver       mip.Solver
	log          logger.Logger

	state     State
	roster    *roster.Roster
	model     *mip.Model
	vars      *Variables
	objective objective
	solution  *mip.Solution
}

// New validates cfg and returns an unbuilt Scheduler working on a copy of r.
// A nil solver selects the built-in branch and bound.
func New(r *roster.Roster, cfg Config, solver mip.Solver, log logger.Logger) (*Scheduler, error) {
	log = logger.OrNop(log)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, configErrorf("roster", "missing")
	}
	if err := r.Validate(); err != nil {
		return nil, &ConfigError{Field: "roster", Msg: err.Error()}
	}
	if solver == nil {
		solver = mip.NewBranchAndBound(log)
	}
	return &Scheduler{cfg: cfg, base: r.Clone(), solver: solver, log: log}, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// State returns the lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Model returns the last built model, or nil.
func (s *Scheduler) Model() *mip.Model { return s.model }

// Variables returns the variables of the last build, or nil.
func (s *Scheduler) Variables() *Variables { return s.vars }

// Solution returns the raw solver result of the last solve, or nil.
func (s *Scheduler) Solution() *mip.Solution { return s.solution }

// Roster returns the roster of the last build. After ExtractSchedule its
// divisions and clinicians carry their assignments.
func (s *Scheduler) Roster() *roster.Roster {
	if s.roster == nil {
		return s.base
	}
	return s.roster
}

// SetAvailability merges time-off overrides into the roster. The model must
// be rebuilt afterwards.
func (s *Scheduler) SetAvailability(av roster.AvailabilityFile) error {
	if err := s.base.ApplyAvailability(av); err != nil {
		return &ConfigError{Field: "availability", Msg: err.Error()}
	}
	s.reset()
	return nil
}

// SetLongWeekends replaces the weeks flagged as long weekends.
func (s *Scheduler) SetLongWeekends(weeks []int) {
	s.longWeekends = lo.Uniq(weeks)
	sort.Ints(s.longWeekends)
	s.reset()
}

// LongWeekends returns the flagged weeks in ascending order.
func (s *Scheduler) LongWeekends() []int { return s.longWeekends }

func (s *Scheduler) reset() {
	s.state = StateUnbuilt
	s.model, s.vars, s.solution, s.roster = nil, nil, nil, nil
}

// Build creates a fresh model: variables, every enabled constraint, then the
// objective. Structurally invalid input yields a *ConfigError.
func (s *Scheduler) Build() error {
	s.reset()
	if err := s.checkIndices(); err != nil {
		return err
	}
	r := s.base.Clone()
	if s.cfg.Shuffle {
		r.Shuffle(rand.New(rand.NewSource(s.cfg.Seed)))
	}
	if err := r.Validate(); err != nil {
		return &ConfigError{Field: "roster", Msg: err.Error()}
	}

	m := mip.NewModel("oncall")
	vars, err := newVariables(m, r, s.cfg.NumBlocks, s.cfg.BlockSize)
	if err != nil {
		return err
	}
	bc := &buildContext{model: m, roster: r, vars: vars, longWeekends: s.longWeekends, log: s.log}
	if err := applyConstraints(bc, s.cfg.Constraints); err != nil {
		return err
	}
	if err := linearizeAdjacency(bc); err != nil {
		return err
	}
	obj, err := composeObjective(bc, s.cfg.Weights)
	if err != nil {
		return err
	}

	s.roster, s.model, s.vars, s.objective = r, m, vars, obj
	s.state = StateBuilt
	st := s.Stats()
	s.log.Infof("model built: %d variables, %d constraints, %d clinicians, %d divisions",
		st.Variables, st.Constraints, len(r.Clinicians), len(r.Divisions))
	return nil
}

func (s *Scheduler) checkIndices() error {
	weeks := s.cfg.NumWeekends()
	for _, c := range s.base.Clinicians {
		for _, b := range c.BlocksOff.Sorted() {
			if b < 1 || b > s.cfg.NumBlocks {
				return configErrorf("availability", "clinician %s: block %d outside [1,%d]", c.Name, b, s.cfg.NumBlocks)
			}
		}
		for _, w := range c.WeekendsOff.Sorted() {
			if w < 1 || w > weeks {
				return configErrorf("availability", "clinician %s: weekend %d outside [1,%d]", c.Name, w, weeks)
			}
		}
	}
	for _, w := range s.longWeekends {
		if w < 1 || w > weeks {
			return configErrorf("long_weekends", "week %d outside [1,%d]", w, weeks)
		}
	}
	return nil
}

// Stats reports the size of the last built model and solve.
func (s *Scheduler) Stats() Stats {
	var st Stats
	if s.model == nil {
		return st
	}
	st.Variables, st.Constraints = s.model.NumVars(), s.model.NumConstraints()
	st.BlockVars, st.WeekendVars, st.AdjacencyVars = s.vars.Counts()
	if s.solution != nil {
		st.Nodes, st.SolveTime = s.solution.Nodes, s.solution.Duration
	}
	return st
}

// Solve runs the solver on the built model, building it first unless the
// Scheduler is in StateBuilt. It returns nil on an optimal solution,
// ErrInfeasible when the solver proves infeasibility and a *SolverError
// otherwise. Nothing is retried.
func (s *Scheduler) Solve(ctx context.Context) error {
	if s.state != StateBuilt {
		if err := s.Build(); err != nil {
			return err
		}
	}
	sol, err := s.solver.Solve(ctx, s.model)
	s.solution = sol
	if err != nil {
		s.state = StateError
		status := mip.StatusError
		if sol != nil {
			status = sol.Status
		}
		s.log.Errorf("solve failed: %v", err)
		return &SolverError{Status: status, Err: err}
	}
	switch sol.Status {
	case mip.StatusOptimal:
		s.state = StateOptimal
		s.log.Infof("optimal schedule found: objective %.6f after %d nodes", sol.Objective, sol.Nodes)
		return nil
	case mip.StatusInfeasible:
		s.state = StateInfeasible
		s.log.Warnf("model is infeasible")
		return ErrInfeasible
	case mip.StatusLimit:
		s.state = StateError
		s.log.Warnf("search stopped after %d nodes without proving optimality", sol.Nodes)
		return &SolverError{Status: sol.Status, Err: ErrLimitReached}
	default:
		s.state = StateError
		return &SolverError{Status: sol.Status}
	}
}

// ExtractSchedule maps the optimal solution back onto the roster and returns
// the schedule. It fails with ErrNotSolved unless the last solve was optimal.
func (s *Scheduler) ExtractSchedule() (*Schedule, error) {
	if s.state != StateOptimal {
		return nil, fmt.Errorf("%w (state %s)", ErrNotSolved, s.state)
	}
	sol := s.solution
	out := &Schedule{
		NumBlocks:    s.cfg.NumBlocks,
		BlockSize:    s.cfg.BlockSize,
		Divisions:    make(map[string][]string, len(s.roster.Divisions)),
		Weekends:     make([]string, s.cfg.NumWeekends()),
		LongWeekends: append([]int(nil), s.longWeekends...),
		Objective:    sol.Objective,
		Breakdown:    s.objective.breakdown(sol.Values),
	}

	for _, d := range s.roster.Divisions {
		d.Assignments = d.Assignments[:0]
		for b := 1; b <= s.cfg.NumBlocks; b++ {
			var owner *roster.Clinician
			for _, c := range d.Clinicians {
				cv, _ := s.vars.For(c.Name)
				if sol.IsOne(cv.Block(d.Name, b)) {
					owner = c
					break
				}
			}
			if owner == nil {
				return nil, fmt.Errorf("scheduler: division %s block %d has no clinician", d.Name, b)
			}
			for i := 0; i < s.cfg.BlockSize; i++ {
				d.Assignments = append(d.Assignments, owner)
			}
		}
		out.Divisions[d.Name] = lo.Map(d.Assignments, func(c *roster.Clinician, _ int) string { return c.Name })
	}

	for _, cv := range s.vars.Clinicians() {
		c := cv.Clinician
		c.WeekendsAssigned = nil
		for i, v := range cv.Weekends {
			if sol.IsOne(v) {
				c.WeekendsAssigned = append(c.WeekendsAssigned, i+1)
				out.Weekends[i] = c.Name
			}
		}
	}
	for i, name := range out.Weekends {
		if name == "" {
			return nil, fmt.Errorf("scheduler: weekend %d has no clinician", i+1)
		}
	}

	out.Conflicts = s.conflicts()
	for _, cf := range out.Conflicts {
		s.log.Debugf("conflicts %s: %d/%d blocks, %d/%d weekends",
			cf.Clinician, cf.BlocksOffAssigned, cf.BlocksOff, cf.WeekendsOffAssigned, cf.WeekendsOff)
	}
	return out, nil
}

func (s *Scheduler) conflicts() []Conflict {
	out := make([]Conflict, 0, len(s.vars.Clinicians()))
	for _, cv := range s.vars.Clinicians() {
		c := cv.Clinician
		cf := Conflict{
			Clinician:   c.Name,
			BlocksOff:   len(c.BlocksOff),
			WeekendsOff: len(c.WeekendsOff),
			Weekends:    len(c.WeekendsAssigned),
		}
		for _, d := range cv.Divisions() {
			for i, v := range cv.Blocks[d] {
				if !s.solution.IsOne(v) {
					continue
				}
				cf.Blocks++
				if c.BlocksOff.Has(i + 1) {
					cf.BlocksOffAssigned++
				}
			}
		}
		cf.WeekendsOffAssigned = lo.CountBy(c.WeekendsAssigned, c.WeekendsOff.Has)
		out = append(out, cf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clinician < out[j].Clinician })
	return out
}

// Generate builds, solves and extracts in one call.
func (s *Scheduler) Generate(ctx context.Context) (*Schedule, error) {
	if err := s.Build(); err != nil {
		return nil, err
	}
	if err := s.Solve(ctx); err != nil {
		return nil, err
	}
	return s.ExtractSchedule()
}
