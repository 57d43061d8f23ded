package simconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Variable is an iteration variable collected from a profile's values.
type Variable struct {
	Name       string
	Values     []string
	ParallelTo string
	Line       int
}

// RunPoint is one fully expanded simulation run.
type RunPoint struct {
	Config     string
	RunNumber  int
	Repetition int
	// Assignment maps each iteration variable to its value for this run.
	Assignment map[string]string
	// Values holds every effective config key with all `${...}` expressions
	// substituted for this run.
	Values map[string]string
}

// Value returns the interpolated value of a config key with surrounding
// quotes stripped, or "" if the key is not set.
func (rp *RunPoint) Value(key string) string {
	return unquote(rp.Values[key])
}

// VectorFile returns the interpolated output vector file path for this run.
func (rp *RunPoint) VectorFile() string { return rp.Value("output-vector-file") }

// ScalarFile returns the interpolated output scalar file path for this run.
func (rp *RunPoint) ScalarFile() string { return rp.Value("output-scalar-file") }

// IterationLabel renders the assignment as "name=value, ..." in variable
// declaration order, for logs and the plan listing.
func (rp *RunPoint) IterationLabel(vars []*Variable) string {
	parts := make([]string, 0, len(vars))
	for _, v := range vars {
		parts = append(parts, v.Name+"="+rp.Assignment[v.Name])
	}
	return strings.Join(parts, ", ")
}

// entryTokens pairs a profile entry with its scanned sweep tokens.
type entryTokens struct {
	entry  *Entry
	tokens []token
}

// Variables scans the profile and returns its iteration variables in order
// of first appearance.
func (p *Profile) Variables() ([]*Variable, error) {
	vars, _, err := p.collect()
	return vars, err
}

func (p *Profile) collect() ([]*Variable, []entryTokens, error) {
	var vars []*Variable
	byName := make(map[string]*Variable)
	var scanned []entryTokens
	autoIndex := 0

	for _, e := range p.Entries {
		tokens, err := scanTokens(e.Value, e.Line, &autoIndex)
		if err != nil {
			return nil, nil, err
		}
		scanned = append(scanned, entryTokens{entry: e, tokens: tokens})

		for _, tok := range tokens {
			if tok.Kind != tokenIterVar {
				continue
			}
			if existing, ok := byName[tok.Name]; ok {
				if !equalValues(existing.Values, tok.Values) || existing.ParallelTo != tok.ParallelTo {
					return nil, nil, fmt.Errorf("line %d: iteration variable %q redefined with different values (first defined on line %d)",
						e.Line, tok.Name, existing.Line)
				}
				continue
			}
			v := &Variable{Name: tok.Name, Values: tok.Values, ParallelTo: tok.ParallelTo, Line: e.Line}
			byName[tok.Name] = v
			vars = append(vars, v)
		}
	}

	// Parallel variables must follow an independent master of equal size.
	for _, v := range vars {
		if v.ParallelTo == "" {
			continue
		}
		master, ok := byName[v.ParallelTo]
		if !ok {
			return nil, nil, fmt.Errorf("line %d: variable %q is parallel to unknown variable %q", v.Line, v.Name, v.ParallelTo)
		}
		if master.ParallelTo != "" {
			return nil, nil, fmt.Errorf("line %d: variable %q is parallel to %q, which is itself parallel", v.Line, v.Name, v.ParallelTo)
		}
		if len(master.Values) != len(v.Values) {
			return nil, nil, fmt.Errorf("line %d: variable %q has %d values but its master %q has %d",
				v.Line, v.Name, len(v.Values), v.ParallelTo, len(master.Values))
		}
	}

	return vars, scanned, nil
}

// Expand enumerates every run of the profile. repeatOverride > 0 replaces
// the profile's `repeat` key; 0 keeps it.
func (p *Profile) Expand(repeatOverride int) ([]*RunPoint, error) {
	vars, scanned, err := p.collect()
	if err != nil {
		return nil, err
	}

	repeat := repeatOverride
	if repeat <= 0 {
		repeat, err = p.Repeat()
		if err != nil {
			return nil, err
		}
	}

	var dims []*Variable
	for _, v := range vars {
		if v.ParallelTo == "" {
			dims = append(dims, v)
		}
	}

	total := repeat
	for _, d := range dims {
		total *= len(d.Values)
	}

	byName := make(map[string]*Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	runs := make([]*RunPoint, 0, total)
	for n := 0; n < total; n++ {
		// Repetition is the innermost loop; the first declared variable is
		// the outermost.
		idx := n
		rep := idx % repeat
		idx /= repeat

		dimIdx := make(map[string]int, len(dims))
		for i := len(dims) - 1; i >= 0; i-- {
			d := dims[i]
			dimIdx[d.Name] = idx % len(d.Values)
			idx /= len(d.Values)
		}

		assignment := make(map[string]string, len(vars))
		for _, v := range vars {
			i := dimIdx[v.Name]
			if v.ParallelTo != "" {
				i = dimIdx[v.ParallelTo]
			}
			assignment[v.Name] = v.Values[i]
		}

		rp := &RunPoint{
			Config:     p.Config,
			RunNumber:  n,
			Repetition: rep,
			Assignment: assignment,
			Values:     make(map[string]string, len(scanned)),
		}
		if err := p.interpolate(rp, scanned, vars); err != nil {
			return nil, err
		}
		runs = append(runs, rp)
	}

	return runs, nil
}

// interpolate substitutes every token of every entry for one run.
func (p *Profile) interpolate(rp *RunPoint, scanned []entryTokens, vars []*Variable) error {
	predefined := map[string]string{
		"configname": rp.Config,
		"runnumber":  strconv.Itoa(rp.RunNumber),
		"repetition": strconv.Itoa(rp.Repetition),
		"resultdir":  p.ResultDir(),
	}
	predefined["iterationvars"] = rp.IterationLabel(vars)

	for _, et := range scanned {
		raw := et.entry.Value
		if len(et.tokens) == 0 {
			rp.Values[et.entry.Key] = raw
			continue
		}

		var b strings.Builder
		pos := 0
		for _, tok := range et.tokens {
			b.WriteString(raw[pos:tok.start])
			switch tok.Kind {
			case tokenIterVar:
				b.WriteString(rp.Assignment[tok.Name])
			case tokenRef:
				val, ok := rp.Assignment[tok.Name]
				if !ok {
					val, ok = predefined[tok.Name]
				}
				if !ok {
					return fmt.Errorf("line %d: reference to undefined variable ${%s}", et.entry.Line, tok.Name)
				}
				b.WriteString(val)
			}
			pos = tok.end
		}
		b.WriteString(raw[pos:])
		rp.Values[et.entry.Key] = b.String()
	}
	return nil
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
