package scheduler

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/mishra-lab/scheduler/core/logger"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/core/roster"
)

// Constraint names a procedure of the constraint library.
type Constraint string

const (
	Coverage             Constraint = "coverage"
	MinMax               Constraint = "min-max"
	ConsecutiveBlocks    Constraint = "consecutive-blocks"
	ConsecutiveWeekends  Constraint = "consecutive-weekends"
	SpreadBlocks         Constraint = "spread-blocks"
	SpreadWeekends       Constraint = "spread-weekends"
	BalancedLongWeekends Constraint = "balanced-long-weekends"
	BalancedWeekends     Constraint = "balanced-weekends"
	ExclusiveDivisions   Constraint = "exclusive-divisions"
)

const (
	spreadBlocksMin   = 5
	spreadWeekendsLen = 4
)

// buildContext is the state shared by constraint procedures during one build.
type buildContext struct {
	model        *mip.Model
	roster       *roster.Roster
	vars         *Variables
	longWeekends []int
	log          logger.Logger
}

func (bc *buildContext) add(name string, e mip.Expr, sense mip.Sense, rhs float64) error {
	if _, err := bc.model.AddConstraint(name, e, sense, rhs); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

type constraintFunc func(*buildContext) error

// ConstraintInfo describes a registered constraint.
type ConstraintInfo struct {
	Name        Constraint
	Description string
	Default     bool
}

type registration struct {
	ConstraintInfo
	build constraintFunc
}

// registry lists the procedures in the order they are applied.
var registry = []registration{
	{ConstraintInfo{Coverage, "exactly one clinician per division block and per weekend", true}, buildCoverage},
	{ConstraintInfo{MinMax, "per division block count between the clinician's min and max", true}, buildMinMax},
	{ConstraintInfo{ConsecutiveBlocks, "no clinician works two adjacent blocks", true}, buildConsecutiveBlocks},
	{ConstraintInfo{ConsecutiveWeekends, "no clinician works two adjacent weekends", true}, buildConsecutiveWeekends},
	{ConstraintInfo{SpreadBlocks, "at most two of blocks b, b+2 and b+4", false}, buildSpreadBlocks},
	{ConstraintInfo{SpreadWeekends, "at most one weekend in any four consecutive weeks", false}, buildSpreadWeekends},
	{ConstraintInfo{BalancedLongWeekends, "long weekends split evenly between clinicians", true}, buildBalancedLongWeekends},
	{ConstraintInfo{BalancedWeekends, "weekends split evenly between clinicians", true}, buildBalancedWeekends},
	{ConstraintInfo{ExclusiveDivisions, "one division per clinician per block", false}, buildExclusiveDivisions},
}

// Known reports whether c is registered.
func (c Constraint) Known() bool {
	_, ok := lo.Find(registry, func(r registration) bool { return r.Name == c })
	return ok
}

// Registered returns every constraint in application order.
func Registered() []ConstraintInfo {
	return lo.Map(registry, func(r registration, _ int) ConstraintInfo { return r.ConstraintInfo })
}

// DefaultConstraints returns the constraints enabled when none are configured.
func DefaultConstraints() []Constraint {
	return lo.FilterMap(registry, func(r registration, _ int) (Constraint, bool) { return r.Name, r.Default })
}

// applyConstraints runs the enabled procedures in registry order.
func applyConstraints(bc *buildContext, enabled []Constraint) error {
	for _, r := range registry {
		if !lo.Contains(enabled, r.Name) {
			continue
		}
		before := bc.model.NumConstraints()
		if err := r.build(bc); err != nil {
			return fmt.Errorf("constraint %s: %w", r.Name, err)
		}
		bc.log.Debugf("constraint %s added %d rows", r.Name, bc.model.NumConstraints()-before)
	}
	return nil
}

func buildCoverage(bc *buildContext) error {
	for _, d := range bc.roster.Divisions {
		for b := 1; b <= bc.vars.NumBlocks; b++ {
			name := fmt.Sprintf("cover_%s_%d", bc.vars.divToken(d.Name), b)
			if err := bc.add(name, mip.Sum(bc.vars.Division(d, b)...), mip.Equal, 1); err != nil {
				return err
			}
		}
	}
	for w := 1; w <= bc.vars.NumWeekends(); w++ {
		if err := bc.add(fmt.Sprintf("weekendcover_%d", w), mip.Sum(bc.vars.Week(w)...), mip.Equal, 1); err != nil {
			return err
		}
	}
	return nil
}

func buildMinMax(bc *buildContext) error {
	for _, d := range bc.roster.Divisions {
		for _, c := range d.Clinicians {
			cv, _ := bc.vars.For(c.Name)
			bounds := d.Bounds[c.Name]
			sum := mip.Sum(cv.Blocks[d.Name]...)
			prefix := fmt.Sprintf("%s_%s", bc.vars.divToken(d.Name), cv.token)
			if bounds.Min > 0 {
				if err := bc.add("min_"+prefix, sum, mip.GreaterEqual, float64(bounds.Min)); err != nil {
					return err
				}
			}
			if bounds.Max < bc.vars.NumBlocks {
				if err := bc.add("max_"+prefix, sum, mip.LessEqual, float64(bounds.Max)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func buildConsecutiveBlocks(bc *buildContext) error {
	for _, cv := range bc.vars.Clinicians() {
		for b := 1; b < bc.vars.NumBlocks; b++ {
			e := mip.Sum(cv.BlocksAt(b)...)
			e.AddExpr(mip.Sum(cv.BlocksAt(b+1)...), 1)
			if err := bc.add(fmt.Sprintf("consec_block_%s_%d", cv.token, b), e, mip.LessEqual, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildConsecutiveWeekends(bc *buildContext) error {
	for _, cv := range bc.vars.Clinicians() {
		for w := 1; w < bc.vars.NumWeekends(); w++ {
			e := mip.Sum(cv.Weekend(w), cv.Weekend(w+1))
			if err := bc.add(fmt.Sprintf("consec_weekend_%s_%d", cv.token, w), e, mip.LessEqual, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildSpreadBlocks(bc *buildContext) error {
	if bc.vars.NumBlocks < spreadBlocksMin {
		bc.log.Warnf("constraint %s skipped: needs at least %d blocks, have %d", SpreadBlocks, spreadBlocksMin, bc.vars.NumBlocks)
		return nil
	}
	for _, cv := range bc.vars.Clinicians() {
		for b := 1; b <= bc.vars.NumBlocks-4; b++ {
			var e mip.Expr
			for _, k := range []int{b, b + 2, b + 4} {
				e.AddExpr(mip.Sum(cv.BlocksAt(k)...), 1)
			}
			if err := bc.add(fmt.Sprintf("spread_block_%s_%d", cv.token, b), e, mip.LessEqual, 2); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildSpreadWeekends(bc *buildContext) error {
	weeks := bc.vars.NumWeekends()
	if weeks < spreadWeekendsLen {
		bc.log.Warnf("constraint %s skipped: needs at least %d weekends, have %d", SpreadWeekends, spreadWeekendsLen, weeks)
		return nil
	}
	for _, cv := range bc.vars.Clinicians() {
		for w := 1; w+spreadWeekendsLen-1 <= weeks; w++ {
			e := mip.Sum(cv.Weekends[w-1 : w-1+spreadWeekendsLen]...)
			if err := bc.add(fmt.Sprintf("spread_weekend_%s_%d", cv.token, w), e, mip.LessEqual, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildBalancedLongWeekends(bc *buildContext) error {
	if len(bc.longWeekends) == 0 {
		bc.log.Debugf("constraint %s skipped: no long weekends", BalancedLongWeekends)
		return nil
	}
	floor, ceil, err := shareBounds(len(bc.longWeekends), len(bc.vars.Clinicians()))
	if err != nil {
		return err
	}
	for _, cv := range bc.vars.Clinicians() {
		var e mip.Expr
		for _, w := range bc.longWeekends {
			e.Add(cv.Weekend(w), 1)
		}
		if err := bc.addRange("long_weekends_"+cv.token, e, floor, ceil); err != nil {
			return err
		}
	}
	return nil
}

func buildBalancedWeekends(bc *buildContext) error {
	floor, ceil, err := shareBounds(bc.vars.NumWeekends(), len(bc.vars.Clinicians()))
	if err != nil {
		return err
	}
	for _, cv := range bc.vars.Clinicians() {
		if err := bc.addRange("weekends_"+cv.token, mip.Sum(cv.Weekends...), floor, ceil); err != nil {
			return err
		}
	}
	return nil
}

func buildExclusiveDivisions(bc *buildContext) error {
	for _, cv := range bc.vars.Clinicians() {
		if len(cv.Divisions()) < 2 {
			continue
		}
		for b := 1; b <= bc.vars.NumBlocks; b++ {
			if err := bc.add(fmt.Sprintf("exclusive_%s_%d", cv.token, b), mip.Sum(cv.BlocksAt(b)...), mip.LessEqual, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// addRange adds lower <= e <= upper, as one equality row when the bounds meet.
func (bc *buildContext) addRange(name string, e mip.Expr, lower, upper float64) error {
	if lower == upper {
		return bc.add(name, e, mip.Equal, lower)
	}
	if err := bc.add(name+"_min", e, mip.GreaterEqual, lower); err != nil {
		return err
	}
	return bc.add(name+"_max", e, mip.LessEqual, upper)
}

// shareBounds returns floor(total/n) and ceil(total/n).
func shareBounds(total, n int) (float64, float64, error) {
	if n == 0 {
		return 0, 0, configErrorf("roster", "balance constraints need at least one clinician")
	}
	share := float64(total) / float64(n)
	return math.Floor(share), math.Ceil(share), nil
}
