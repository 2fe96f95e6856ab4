package scheduler

import (
	"fmt"

	"github.com/mishra-lab/scheduler/core/mip"
)

// Breakdown holds the normalized value of each sub-objective.
type Breakdown struct {
	BlockAppeasement   float64 `json:"block_appeasement"`
	WeekendAppeasement float64 `json:"weekend_appeasement"`
	Adjacency          float64 `json:"adjacency"`
}

// subObjective is a signed sum normalized by its term count.
type subObjective struct {
	expr  mip.Expr
	terms int
}

func (o subObjective) scale() float64 {
	if o.terms == 0 {
		return 0
	}
	return 1 / float64(o.terms)
}

func (o subObjective) value(values []float64) float64 {
	return o.expr.Eval(values) * o.scale()
}

// objective keeps the three parts so a solution can be reported per part.
type objective struct {
	block, weekend, adjacency subObjective
	weights                   Weights
}

func (o objective) expr() mip.Expr {
	var e mip.Expr
	e.AddExpr(o.block.expr, o.weights.BlockAppeasement*o.block.scale())
	e.AddExpr(o.weekend.expr, o.weights.WeekendAppeasement*o.weekend.scale())
	e.AddExpr(o.adjacency.expr, o.weights.Adjacency*o.adjacency.scale())
	return e
}

func (o objective) breakdown(values []float64) Breakdown {
	return Breakdown{
		BlockAppeasement:   o.block.value(values),
		WeekendAppeasement: o.weekend.value(values),
		Adjacency:          o.adjacency.value(values),
	}
}

// linearizeAdjacency adds a helper a <= block, a <= weekend for every
// (division, clinician, block) whose trailing week block*BlockSize-1 exists.
// Maximizing a drives it to the product of the two binaries.
func linearizeAdjacency(bc *buildContext) error {
	for _, d := range bc.roster.Divisions {
		dtok := bc.vars.divToken(d.Name)
		for _, c := range d.Clinicians {
			cv, _ := bc.vars.For(c.Name)
			adj := make([]*mip.Var, bc.vars.NumBlocks)
			for b := 1; b <= bc.vars.NumBlocks; b++ {
				week := b*bc.vars.BlockSize - 1
				wv := cv.Weekend(week)
				if wv == nil {
					continue
				}
				name := fmt.Sprintf("adj_%s_%s_%d", dtok, cv.token, b)
				a, err := bc.model.NewBinary(name)
				if err != nil {
					return err
				}
				block := mip.Expr{Terms: []mip.Term{{Var: a, Coef: 1}, {Var: cv.Block(d.Name, b), Coef: -1}}}
				if err := bc.add(name+"_block", block, mip.LessEqual, 0); err != nil {
					return err
				}
				weekend := mip.Expr{Terms: []mip.Term{{Var: a, Coef: 1}, {Var: wv, Coef: -1}}}
				if err := bc.add(name+"_weekend", weekend, mip.LessEqual, 0); err != nil {
					return err
				}
				adj[b-1] = a
			}
			cv.Adjacency[d.Name] = adj
		}
	}
	return nil
}

// composeObjective builds block appeasement, weekend appeasement and the
// adjacency bonus and sets their weighted sum as the maximized objective.
func composeObjective(bc *buildContext, w Weights) (objective, error) {
	o := objective{weights: w}
	for _, cv := range bc.vars.Clinicians() {
		for _, d := range cv.Divisions() {
			for i, v := range cv.Blocks[d] {
				o.block.expr.Add(v, appeasement(cv.Clinician.BlocksOff.Has(i+1)))
				o.block.terms++
			}
			for _, a := range cv.Adjacency[d] {
				if a != nil {
					o.adjacency.expr.Add(a, 1)
					o.adjacency.terms++
				}
			}
		}
		for i, v := range cv.Weekends {
			o.weekend.expr.Add(v, appeasement(cv.Clinician.WeekendsOff.Has(i+1)))
			o.weekend.terms++
		}
	}
	if err := bc.model.SetObjective(o.expr(), mip.Maximize); err != nil {
		return o, err
	}
	return o, nil
}

func appeasement(conflict bool) float64 {
	if conflict {
		return -1
	}
	return 1
}
