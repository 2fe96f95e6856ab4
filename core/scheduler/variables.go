package scheduler

import (
	"fmt"
	"strings"

	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/core/roster"
)

// ClinicianVars indexes the decision variables owned by one clinician.
type ClinicianVars struct {
	Clinician *roster.Clinician
	// Blocks maps a division name to its block variables, index block-1.
	Blocks map[string][]*mip.Var
	// Weekends holds the weekend variables, index week-1.
	Weekends []*mip.Var
	// Adjacency maps a division name to the adjacency helpers, index
	// block-1. Blocks whose trailing week falls before week 1 have none.
	Adjacency map[string][]*mip.Var

	divisions []string
	token     string
}

// Block returns the variable for (division, block) or nil.
func (cv *ClinicianVars) Block(division string, block int) *mip.Var {
	vars := cv.Blocks[division]
	if block < 1 || block > len(vars) {
		return nil
	}
	return vars[block-1]
}

// Weekend returns the variable for week or nil.
func (cv *ClinicianVars) Weekend(week int) *mip.Var {
	if week < 1 || week > len(cv.Weekends) {
		return nil
	}
	return cv.Weekends[week-1]
}

// BlocksAt returns the clinician's block variables for block across all of
// their divisions.
func (cv *ClinicianVars) BlocksAt(block int) []*mip.Var {
	out := make([]*mip.Var, 0, len(cv.divisions))
	for _, d := range cv.divisions {
		if v := cv.Block(d, block); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Divisions lists the divisions the clinician has block variables in.
func (cv *ClinicianVars) Divisions() []string { return cv.divisions }

// Variables is the typed variable set of one model build.
type Variables struct {
	NumBlocks int
	BlockSize int

	clinicians []*ClinicianVars
	byName     map[string]*ClinicianVars
	divTokens  map[string]string
}

// NumWeekends is NumBlocks * BlockSize.
func (v *Variables) NumWeekends() int { return v.NumBlocks * v.BlockSize }

// Clinicians returns the per-clinician indices in roster order.
func (v *Variables) Clinicians() []*ClinicianVars { return v.clinicians }

// For returns the variables of the named clinician.
func (v *Variables) For(name string) (*ClinicianVars, bool) {
	cv, ok := v.byName[name]
	return cv, ok
}

// Division returns the block variables of every member of d at block, in
// member order.
func (v *Variables) Division(d *roster.Division, block int) []*mip.Var {
	out := make([]*mip.Var, 0, len(d.Clinicians))
	for _, c := range d.Clinicians {
		if bv := v.byName[c.Name].Block(d.Name, block); bv != nil {
			out = append(out, bv)
		}
	}
	return out
}

// Week returns every clinician's weekend variable for week.
func (v *Variables) Week(week int) []*mip.Var {
	out := make([]*mip.Var, 0, len(v.clinicians))
	for _, cv := range v.clinicians {
		if wv := cv.Weekend(week); wv != nil {
			out = append(out, wv)
		}
	}
	return out
}

// Counts returns the number of block, weekend and adjacency variables.
func (v *Variables) Counts() (blocks, weekends, adjacency int) {
	for _, cv := range v.clinicians {
		for _, vars := range cv.Blocks {
			blocks += len(vars)
		}
		weekends += len(cv.Weekends)
		for _, vars := range cv.Adjacency {
			for _, a := range vars {
				if a != nil {
					adjacency++
				}
			}
		}
	}
	return blocks, weekends, adjacency
}

func (v *Variables) divToken(name string) string { return v.divTokens[name] }

// newVariables registers NumBlocks block variables per (division, member) pair
// and NumWeekends weekend variables per clinician on m.
func newVariables(m *mip.Model, r *roster.Roster, numBlocks, blockSize int) (*Variables, error) {
	v := &Variables{
		NumBlocks: numBlocks,
		BlockSize: blockSize,
		byName:    make(map[string]*ClinicianVars, len(r.Clinicians)),
		divTokens: make(map[string]string, len(r.Divisions)),
	}
	tokens := newTokenSet()
	for _, c := range r.Clinicians {
		cv := &ClinicianVars{
			Clinician: c,
			Blocks:    make(map[string][]*mip.Var),
			Adjacency: make(map[string][]*mip.Var),
			token:     tokens.take(c.Name),
		}
		v.clinicians = append(v.clinicians, cv)
		v.byName[c.Name] = cv
	}
	for _, d := range r.Divisions {
		v.divTokens[d.Name] = tokens.take(d.Name)
	}

	for _, d := range r.Divisions {
		for _, c := range d.Clinicians {
			cv, ok := v.byName[c.Name]
			if !ok {
				return nil, configErrorf("roster", "division %s member %s is not on the roster", d.Name, c.Name)
			}
			vars := make([]*mip.Var, numBlocks)
			for b := 1; b <= numBlocks; b++ {
				bv, err := m.NewBinary(fmt.Sprintf("block_%s_%s_%d", v.divTokens[d.Name], cv.token, b))
				if err != nil {
					return nil, err
				}
				vars[b-1] = bv
			}
			cv.Blocks[d.Name] = vars
			cv.divisions = append(cv.divisions, d.Name)
		}
	}
	for _, cv := range v.clinicians {
		cv.Weekends = make([]*mip.Var, v.NumWeekends())
		for w := 1; w <= v.NumWeekends(); w++ {
			wv, err := m.NewBinary(fmt.Sprintf("weekend_%s_%d", cv.token, w))
			if err != nil {
				return nil, err
			}
			cv.Weekends[w-1] = wv
		}
	}
	return v, nil
}

// tokenSet hands out solver-safe identifiers, suffixing collisions. Tokens
// never contain '_', so a name joining tokens with '_' splits back into them
// and two different (division, clinician, index) tuples cannot share a name.
type tokenSet map[string]struct{}

func newTokenSet() tokenSet { return tokenSet{} }

func (t tokenSet) take(name string) string {
	base := sanitize(name)
	tok := base
	for i := 2; ; i++ {
		if _, used := t[tok]; !used {
			break
		}
		tok = fmt.Sprintf("%s%d", base, i)
	}
	t[tok] = struct{}{}
	return tok
}

// sanitize keeps ASCII letters and digits.
func sanitize(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, name)
	if s == "" {
		return "x"
	}
	return s
}
