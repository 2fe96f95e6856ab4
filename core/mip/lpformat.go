package mip

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

const lpTermsPerLine = 8

// WriteLP writes the model in CPLEX LP format. Variable and constraint names
// are written verbatim and must be valid LP identifiers. The objective
// constant is not representable and is omitted.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	obj, dir := m.Objective()
	fmt.Fprintf(bw, "\\ Model %s\n", m.Name())
	if dir == Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	bw.WriteString(" obj:")
	if len(obj.Terms) == 0 && len(m.vars) > 0 {
		// LP readers reject an empty objective.
		fmt.Fprintf(bw, " 0 %s", m.vars[0].Name)
	}
	writeTerms(bw, obj.Terms)
	bw.WriteString("\nSubject To\n")
	for _, c := range m.cons {
		fmt.Fprintf(bw, " %s:", c.Name)
		if len(c.Expr.Terms) == 0 && len(m.vars) > 0 {
			fmt.Fprintf(bw, " 0 %s", m.vars[0].Name)
		}
		writeTerms(bw, c.Expr.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNum(c.RHS))
	}

	bw.WriteString("Bounds\n")
	var general, binary []*Var
	for _, v := range m.vars {
		switch {
		case v.Binary():
			binary = append(binary, v)
			continue
		case v.Integer:
			general = append(general, v)
		}
		if math.IsInf(v.Upper, 1) {
			fmt.Fprintf(bw, " %s >= %s\n", v.Name, formatNum(v.Lower))
		} else {
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(v.Lower), v.Name, formatNum(v.Upper))
		}
	}
	writeSection(bw, "Generals", general)
	writeSection(bw, "Binaries", binary)
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerms(bw *bufio.Writer, terms []Term) {
	for i, t := range terms {
		if i > 0 && i%lpTermsPerLine == 0 {
			bw.WriteString("\n  ")
		}
		op := "+"
		coef := t.Coef
		if coef < 0 {
			op, coef = "-", -coef
		}
		if coef == 1 {
			fmt.Fprintf(bw, " %s %s", op, t.Var.Name)
		} else {
			fmt.Fprintf(bw, " %s %s %s", op, formatNum(coef), t.Var.Name)
		}
	}
}

func writeSection(bw *bufio.Writer, title string, vars []*Var) {
	if len(vars) == 0 {
		return
	}
	bw.WriteString(title + "\n")
	for i, v := range vars {
		if i%lpTermsPerLine == 0 {
			bw.WriteString(" ")
		}
		bw.WriteString(" " + v.Name)
		if i%lpTermsPerLine == lpTermsPerLine-1 || i == len(vars)-1 {
			bw.WriteString("\n")
		}
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', 12, 64)
}
