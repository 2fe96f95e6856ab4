// Package roster holds the clinicians and divisions a schedule is built for.
package roster

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/samber/lo"
)

// IntSet is a set of block or week numbers.
type IntSet map[int]struct{}

// NewIntSet builds a set from values.
func NewIntSet(values ...int) IntSet {
	s := make(IntSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IntSet) Has(v int) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s IntSet) Sorted() []int {
	out := lo.Keys(s)
	sort.Ints(out)
	return out
}

// Clinician is a member of one or more divisions.
type Clinician struct {
	Name        string
	Email       string
	BlocksOff   IntSet
	WeekendsOff IntSet
	// WeekendsAssigned is filled after a successful solve.
	WeekendsAssigned []int
}

// Division is a service line needing one clinician per block.
type Division struct {
	Name       string
	Clinicians []*Clinician
	Bounds     map[string]Bounds
	// Assignments is filled after a successful solve, one entry per week.
	Assignments []*Clinician
}

// Roster is the validated set of clinicians and divisions, both ordered by name
// unless shuffled.
type Roster struct {
	Clinicians []*Clinician
	Divisions  []*Division
}

// New builds a Roster from a roster file.
func New(f File) (*Roster, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r := &Roster{}
	divs := make(map[string]*Division)
	for _, name := range f.Names() {
		e := f[name]
		c := &Clinician{Name: name, Email: e.Email, BlocksOff: IntSet{}, WeekendsOff: IntSet{}}
		r.Clinicians = append(r.Clinicians, c)
		divNames := lo.Keys(e.Divisions)
		sort.Strings(divNames)
		for _, dn := range divNames {
			b := e.Divisions[dn]
			if b.Min < 0 || b.Max < b.Min {
				return nil, fmt.Errorf("roster: clinician %s division %s: invalid bounds min=%d max=%d", name, dn, b.Min, b.Max)
			}
			d, ok := divs[dn]
			if !ok {
				d = &Division{Name: dn, Bounds: make(map[string]Bounds)}
				divs[dn] = d
			}
			d.Clinicians = append(d.Clinicians, c)
			d.Bounds[name] = b
		}
	}
	r.Divisions = lo.Values(divs)
	sort.Slice(r.Divisions, func(i, j int) bool { return r.Divisions[i].Name < r.Divisions[j].Name })
	return r, r.Validate()
}

// Validate checks the structural invariants: names are unique and every
// clinician referenced by a division's bounds is a member of it.
func (r *Roster) Validate() error {
	if len(r.Clinicians) == 0 {
		return fmt.Errorf("roster: no clinicians")
	}
	if len(r.Divisions) == 0 {
		return fmt.Errorf("roster: no divisions")
	}
	seen := make(map[string]bool, len(r.Clinicians))
	for _, c := range r.Clinicians {
		if seen[c.Name] {
			return fmt.Errorf("roster: duplicate clinician %s", c.Name)
		}
		seen[c.Name] = true
	}
	for _, d := range r.Divisions {
		if len(d.Clinicians) == 0 {
			return fmt.Errorf("roster: division %s has no clinicians", d.Name)
		}
		members := lo.SliceToMap(d.Clinicians, func(c *Clinician) (string, bool) { return c.Name, true })
		for name := range d.Bounds {
			if !members[name] {
				return fmt.Errorf("roster: division %s bounds reference non-member %s", d.Name, name)
			}
		}
		for _, c := range d.Clinicians {
			if !seen[c.Name] {
				return fmt.Errorf("roster: division %s member %s is not on the roster", d.Name, c.Name)
			}
			if _, ok := d.Bounds[c.Name]; !ok {
				return fmt.Errorf("roster: division %s has no bounds for %s", d.Name, c.Name)
			}
		}
	}
	return nil
}

// Clinician finds a clinician by name.
func (r *Roster) Clinician(name string) (*Clinician, bool) {
	return lo.Find(r.Clinicians, func(c *Clinician) bool { return c.Name == name })
}

// Division finds a division by name.
func (r *Roster) Division(name string) (*Division, bool) {
	return lo.Find(r.Divisions, func(d *Division) bool { return d.Name == name })
}

// ApplyAvailability merges time-off requests into the clinicians. Unknown
// clinician names are an error.
func (r *Roster) ApplyAvailability(av AvailabilityFile) error {
	for name, a := range av {
		c, ok := r.Clinician(name)
		if !ok {
			return fmt.Errorf("roster: availability for unknown clinician %s", name)
		}
		for _, b := range a.BlocksOff {
			c.BlocksOff[b] = struct{}{}
		}
		for _, w := range a.WeekendsOff {
			c.WeekendsOff[w] = struct{}{}
		}
	}
	return nil
}

// Clone returns a deep copy sharing no pointers with r. Post-solve fields are
// reset.
func (r *Roster) Clone() *Roster {
	out := &Roster{}
	byName := make(map[string]*Clinician, len(r.Clinicians))
	for _, c := range r.Clinicians {
		cp := &Clinician{
			Name:        c.Name,
			Email:       c.Email,
			BlocksOff:   NewIntSet(c.BlocksOff.Sorted()...),
			WeekendsOff: NewIntSet(c.WeekendsOff.Sorted()...),
		}
		byName[c.Name] = cp
		out.Clinicians = append(out.Clinicians, cp)
	}
	for _, d := range r.Divisions {
		cp := &Division{Name: d.Name, Bounds: make(map[string]Bounds, len(d.Bounds))}
		for k, v := range d.Bounds {
			cp.Bounds[k] = v
		}
		for _, c := range d.Clinicians {
			cp.Clinicians = append(cp.Clinicians, byName[c.Name])
		}
		out.Divisions = append(out.Divisions, cp)
	}
	return out
}

// Shuffle permutes the clinician order, globally and inside every division.
func (r *Roster) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(r.Clinicians), func(i, j int) {
		r.Clinicians[i], r.Clinicians[j] = r.Clinicians[j], r.Clinicians[i]
	})
	order := make(map[string]int, len(r.Clinicians))
	for i, c := range r.Clinicians {
		order[c.Name] = i
	}
	for _, d := range r.Divisions {
		sort.SliceStable(d.Clinicians, func(i, j int) bool {
			return order[d.Clinicians[i].Name] < order[d.Clinicians[j].Name]
		})
	}
}

// CapacityIssues returns human readable hints when a division cannot be
// covered for numBlocks: the members' minimums exceed the blocks or their
// maximums fall short.
func (r *Roster) CapacityIssues(numBlocks int) []string {
	var out []string
	for _, d := range r.Divisions {
		minSum, maxSum := 0, 0
		for _, b := range d.Bounds {
			minSum += b.Min
			maxSum += b.Max
		}
		if minSum > numBlocks {
			out = append(out, fmt.Sprintf("division %s: minimums add up to %d, more than %d blocks", d.Name, minSum, numBlocks))
		}
		if maxSum < numBlocks {
			out = append(out, fmt.Sprintf("division %s: maximums add up to %d, fewer than %d blocks", d.Name, maxSum, numBlocks))
		}
	}
	return out
}
