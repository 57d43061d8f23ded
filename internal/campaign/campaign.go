// Package campaign loads and validates the harness campaign file, the HCL
// document describing the simulator invocation, the scenarios to sweep and
// the post-processing pipeline.
package campaign

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Simulator describes how to invoke the external simulation binary.
type Simulator struct {
	Binary    string   `hcl:"binary"`
	Ini       string   `hcl:"ini"`
	UI        string   `hcl:"ui,optional"`
	ExtraArgs []string `hcl:"extra_args,optional"`
	WorkDir   string   `hcl:"workdir,optional"`
	LogDir    string   `hcl:"log_dir,optional"`
}

// Scenario selects one named config of the simulation ini for expansion.
type Scenario struct {
	Name string `hcl:"name,label"`
	// Config is the ini config block to run; defaults to the scenario name.
	Config string `hcl:"config,optional"`
	// Repetitions overrides the ini's repeat count when positive.
	Repetitions int `hcl:"repetitions,optional"`
}

// Ingest configures the vector-file ingestion stage.
type Ingest struct {
	Database  string   `hcl:"database"`
	Patterns  []string `hcl:"patterns,optional"`
	ColumnMap string   `hcl:"column_map,optional"`
}

// Transform holds the corner points and margin of the coordinate transform
// between the simulator and network frames.
type Transform struct {
	X1     float64 `hcl:"x1"`
	Y1     float64 `hcl:"y1"`
	X2     float64 `hcl:"x2"`
	Y2     float64 `hcl:"y2"`
	Margin float64 `hcl:"margin,optional"`
}

// Collisions configures the collision scan stage.
type Collisions struct {
	NetFile      string     `hcl:"net_file"`
	TTC          float64    `hcl:"ttc,optional"`
	AllSnapshots bool       `hcl:"all_snapshots,optional"`
	StartTime    *float64   `hcl:"start_time,optional"`
	EndTime      *float64   `hcl:"end_time,optional"`
	Transform    *Transform `hcl:"transform,block"`
}

// EdgeData configures the edge congestion export stage.
type EdgeData struct {
	NetFile   string     `hcl:"net_file"`
	Output    string     `hcl:"output"`
	StartTime *float64   `hcl:"start_time,optional"`
	EndTime   *float64   `hcl:"end_time,optional"`
	Transform *Transform `hcl:"transform,block"`
}

// Report configures the HTML report stage.
type Report struct {
	Output string `hcl:"output"`
	Title  string `hcl:"title,optional"`
}

// Campaign is the validated campaign model.
type Campaign struct {
	Simulator  *Simulator  `hcl:"simulator,block"`
	Scenarios  []*Scenario `hcl:"scenario,block"`
	Ingest     *Ingest     `hcl:"ingest,block"`
	Collisions *Collisions `hcl:"collisions,block"`
	EdgeData   *EdgeData   `hcl:"edgedata,block"`
	Report     *Report     `hcl:"report,block"`

	// Dir is the directory of the campaign file; relative paths in the
	// campaign resolve against it.
	Dir string
}

// Load parses and validates the campaign file at path. The campaign file
// may reference ${cwd}, the absolute directory of the file itself.
func Load(path string) (*Campaign, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse campaign: %w", diags)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cwd": cty.StringVal(dir),
		},
	}

	c := &Campaign{}
	if diags := gohcl.DecodeBody(file.Body, evalCtx, c); diags.HasErrors() {
		return nil, fmt.Errorf("decode campaign: %w", diags)
	}
	c.Dir = dir

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("campaign %s: %w", path, err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Campaign) validate() error {
	if c.Simulator == nil {
		return fmt.Errorf("missing required simulator block")
	}
	if c.Simulator.Binary == "" {
		return fmt.Errorf("simulator binary must not be empty")
	}
	if c.Simulator.Ini == "" {
		return fmt.Errorf("simulator ini must not be empty")
	}
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario block is required")
	}
	seen := make(map[string]bool)
	for _, s := range c.Scenarios {
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario %q", s.Name)
		}
		seen[s.Name] = true
		if s.Repetitions < 0 {
			return fmt.Errorf("scenario %q: repetitions must not be negative", s.Name)
		}
	}
	if c.Collisions != nil && c.Collisions.TTC < 0 {
		return fmt.Errorf("collisions ttc must not be negative")
	}
	if (c.Collisions != nil || c.EdgeData != nil || c.Report != nil) && c.Ingest == nil {
		return fmt.Errorf("analysis stages require an ingest block")
	}
	return nil
}

func (c *Campaign) applyDefaults() {
	if c.Simulator.UI == "" {
		c.Simulator.UI = "Cmdenv"
	}
	if c.Simulator.LogDir == "" {
		c.Simulator.LogDir = "logs"
	}
	for _, s := range c.Scenarios {
		if s.Config == "" {
			s.Config = s.Name
		}
	}
	if c.Ingest != nil && len(c.Ingest.Patterns) == 0 {
		c.Ingest.Patterns = []string{filepath.Join("results", "*.vec")}
	}
	if c.Collisions != nil && c.Collisions.TTC == 0 {
		c.Collisions.TTC = 1.0
	}
}

// Corners returns the transform's corner points and margin, or zeros when
// the block is absent.
func (t *Transform) Corners() (x1, y1, x2, y2, margin float64) {
	if t == nil {
		return 0, 0, 0, 0, 0
	}
	return t.X1, t.Y1, t.X2, t.Y2, t.Margin
}
