// Package vecfile implements a streaming reader for version-2 OMNeT++
// output vector files.
//
// A file starts with a `version 2` line and a `run <id>` line, followed by
// run metadata (`attr`, `itervar`, `param`), vector declarations
// (`vector <id> <module> <name> ETV`) and tab-separated sample lines
// (`<vectorId> <eventNumber> <time> <value>`).
package vecfile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Vector is one declared output vector.
type Vector struct {
	ID     int
	Module string // full module path, e.g. "Highway.node[3].appl"
	Name   string // recorded signal name, e.g. "speed"
	NodeID int    // first [n] index in the module path
}

// Sample is one recorded value of a vector.
type Sample struct {
	Vector  *Vector
	Seconds float64
	Value   float64
}

// Run holds the run identity and metadata collected from the file header.
type Run struct {
	// ID is the numeric run number extracted from the run identifier
	// ("<config>-<number>-<date>-...").
	ID int
	// Label is the full run identifier string.
	Label string
	// Vars merges all attr, itervar and param lines.
	Vars map[string]string
}

// Var returns a run variable with surrounding double quotes and escaped
// quotes stripped, or "" if absent.
func (r *Run) Var(name string) string {
	v := strings.ReplaceAll(r.Vars[name], `\"`, "")
	return strings.Trim(v, `"`)
}

// Handler receives parse events. OnVector is called once per declaration,
// before any of that vector's samples reach OnSample.
type Handler interface {
	OnRun(run *Run) error
	OnVector(v *Vector) error
	OnSample(s Sample) error
}

var (
	runIDRe  = regexp.MustCompile(`^[^-]+-([0-9]+)`)
	nodeIDRe = regexp.MustCompile(`^.*?\[([0-9]+)\]`)
)

// Parse streams the vector file from r into the handler.
func Parse(r io.Reader, h Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)

	line := 0
	next := func() (string, bool) {
		for scanner.Scan() {
			line++
			s := strings.TrimSpace(scanner.Text())
			if s != "" {
				return s, true
			}
		}
		return "", false
	}

	s, ok := next()
	if !ok {
		return fmt.Errorf("empty vector file")
	}
	if !strings.HasPrefix(s, "version ") {
		return fmt.Errorf("line %d: expected version line, got %q", line, s)
	}
	if v := strings.TrimSpace(strings.TrimPrefix(s, "version")); v != "2" {
		return fmt.Errorf("line %d: unsupported vector file version %s", line, v)
	}

	s, ok = next()
	if !ok || !strings.HasPrefix(s, "run ") {
		return fmt.Errorf("line %d: expected run identifier", line)
	}
	label := strings.Fields(s)[1]
	m := runIDRe.FindStringSubmatch(label)
	if m == nil {
		return fmt.Errorf("line %d: cannot extract run number from %q", line, label)
	}
	runID, _ := strconv.Atoi(m[1])
	run := &Run{ID: runID, Label: label, Vars: make(map[string]string)}

	vectors := make(map[int]*Vector)
	runDelivered := false
	deliverRun := func() error {
		if runDelivered {
			return nil
		}
		runDelivered = true
		return h.OnRun(run)
	}

	for {
		s, ok = next()
		if !ok {
			break
		}
		fields := strings.Fields(s)
		switch fields[0] {
		case "attr", "itervar", "param", "config":
			if len(fields) < 3 {
				return fmt.Errorf("line %d: malformed %s line", line, fields[0])
			}
			name := fields[1]
			rest := strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
			value := strings.TrimSpace(strings.TrimPrefix(rest, name))
			run.Vars[name] = value

		case "vector":
			if err := deliverRun(); err != nil {
				return err
			}
			if len(fields) < 5 {
				return fmt.Errorf("line %d: malformed vector declaration", line)
			}
			if fields[4] != "ETV" {
				return fmt.Errorf("line %d: expected ETV vector, got %q", line, fields[4])
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("line %d: bad vector id %q", line, fields[1])
			}
			module := fields[2]
			nm := nodeIDRe.FindStringSubmatch(module)
			if nm == nil {
				return fmt.Errorf("line %d: no node index in module path %q", line, module)
			}
			nodeID, _ := strconv.Atoi(nm[1])
			v := &Vector{ID: id, Module: module, Name: fields[3], NodeID: nodeID}
			vectors[id] = v
			if err := h.OnVector(v); err != nil {
				return err
			}

		default:
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				// Skip other metadata line types (version-2 files may carry
				// scalar or statistics blocks alongside vectors).
				continue
			}
			if err := deliverRun(); err != nil {
				return err
			}
			if len(fields) < 4 {
				return fmt.Errorf("line %d: malformed sample line", line)
			}
			v, ok := vectors[id]
			if !ok {
				return fmt.Errorf("line %d: sample for undeclared vector %d", line, id)
			}
			seconds, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return fmt.Errorf("line %d: bad timestamp %q", line, fields[2])
			}
			value, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return fmt.Errorf("line %d: bad value %q", line, fields[3])
			}
			if err := h.OnSample(Sample{Vector: v, Seconds: seconds, Value: value}); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return deliverRun()
}

// ColumnName derives the results column for a vector: the last segment of
// its module path joined with the vector name, e.g. "appl_speed".
func ColumnName(v *Vector) string {
	module := v.Module
	if i := strings.LastIndex(module, "."); i >= 0 {
		module = module[i+1:]
	}
	return module + "_" + v.Name
}
