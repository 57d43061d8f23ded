package resultsdb

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// defaultColumns is the set of vector columns ingested into the results
// table when no column map file is configured.
var defaultColumns = []string{
	"mobility_posx",
	"mobility_posy",
	"mobility_acceleration",
	"mobility_co2emission",
	"appl_posx",
	"appl_posy",
	"appl_speed",
	"appl_acceleration",
	"appl_leaderDistance",
	"appl_relativeSpeed",
	"appl_controllerAcceleration",
	"appl_distanceTravelled",
	"appl_laneIdx",
	"prot_nodeId",
	"prot_busyTime",
	"prot_collisions",
}

// ColumnSet is the ordered set of metric columns recorded during ingest.
type ColumnSet struct {
	names []string
	index map[string]bool
}

// DefaultColumns returns the built-in column set.
func DefaultColumns() *ColumnSet {
	return newColumnSet(defaultColumns)
}

var columnNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadColumns reads a column map file, a YAML document with a `columns`
// list of vector column names.
func LoadColumns(path string) (*ColumnSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column map: %w", err)
	}
	var doc struct {
		Columns []string `yaml:"columns"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse column map %s: %w", path, err)
	}
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("column map %s lists no columns", path)
	}
	for _, c := range doc.Columns {
		// Column names are spliced into SQL; restrict them to identifiers.
		if !columnNameRe.MatchString(c) {
			return nil, fmt.Errorf("column map %s: invalid column name %q", path, c)
		}
	}
	return newColumnSet(doc.Columns), nil
}

func newColumnSet(names []string) *ColumnSet {
	cs := &ColumnSet{index: make(map[string]bool, len(names))}
	for _, n := range names {
		if cs.index[n] {
			continue
		}
		cs.index[n] = true
		cs.names = append(cs.names, n)
	}
	return cs
}

// Names returns the column names in declaration order.
func (cs *ColumnSet) Names() []string { return cs.names }

// Contains reports whether the set records the given column.
func (cs *ColumnSet) Contains(name string) bool { return cs.index[name] }
