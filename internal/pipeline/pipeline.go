// Package pipeline assembles a campaign into an executable run graph and
// hosts the standalone post-processing stages.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gargmohit24/platoonbench/internal/campaign"
	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/dag"
	"github.com/gargmohit24/platoonbench/internal/simconfig"
	"github.com/gargmohit24/platoonbench/internal/simrun"
)

// PlannedRun is one expanded simulation run of the campaign.
type PlannedRun struct {
	Scenario   string
	Config     string
	RunNumber  int
	Repetition int
	// Label renders the run's iteration variable assignment.
	Label      string
	VectorFile string
}

// Filter restricts which planned runs are executed.
type Filter struct {
	// Scenario selects a single scenario by name; empty selects all.
	Scenario string
	// RunNumber selects a single run number; negative selects all.
	RunNumber int
}

// All matches every planned run.
var All = Filter{RunNumber: -1}

func (f Filter) matches(pr PlannedRun) bool {
	if f.Scenario != "" && f.Scenario != pr.Scenario {
		return false
	}
	if f.RunNumber >= 0 && f.RunNumber != pr.RunNumber {
		return false
	}
	return true
}

// Builder expands campaign scenarios against the simulator configuration
// and wires runs and post-processing stages into a graph.
type Builder struct {
	Campaign *campaign.Campaign
	Doc      *simconfig.Document
	Runner   simrun.Runner
}

// New creates a builder that runs the simulator as a child process.
func New(c *campaign.Campaign, doc *simconfig.Document) *Builder {
	return &Builder{Campaign: c, Doc: doc, Runner: simrun.ExecRunner{}}
}

// Plan expands every scenario into its ordered run points.
func (b *Builder) Plan() ([]PlannedRun, error) {
	var out []PlannedRun
	for _, s := range b.Campaign.Scenarios {
		profile, err := b.Doc.Resolve(s.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		vars, err := profile.Variables()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		points, err := profile.Expand(s.Repetitions)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		for _, rp := range points {
			out = append(out, PlannedRun{
				Scenario:   s.Name,
				Config:     rp.Config,
				RunNumber:  rp.RunNumber,
				Repetition: rp.Repetition,
				Label:      rp.IterationLabel(vars),
				VectorFile: rp.VectorFile(),
			})
		}
	}
	return out, nil
}

// Graph builds the dependency graph for the filtered runs, appending the
// campaign's post-processing stages unless skipPost is set.
func (b *Builder) Graph(filter Filter, skipPost bool) (*dag.Graph, error) {
	planned, err := b.Plan()
	if err != nil {
		return nil, err
	}

	var runs []PlannedRun
	for _, pr := range planned {
		if filter.matches(pr) {
			runs = append(runs, pr)
		}
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs match the filter (scenario %q, run %d)", filter.Scenario, filter.RunNumber)
	}

	g := dag.New()
	runIDs := make([]string, 0, len(runs))
	for _, pr := range runs {
		id := fmt.Sprintf("run/%s/%d", pr.Scenario, pr.RunNumber)
		if _, err := g.AddNode(id, simrun.Task{Runner: b.Runner, Spec: b.spec(pr)}); err != nil {
			return nil, err
		}
		runIDs = append(runIDs, id)
	}

	if !skipPost {
		if err := b.addStages(g, runIDs); err != nil {
			return nil, err
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func (b *Builder) addStages(g *dag.Graph, runIDs []string) error {
	c := b.Campaign
	if c.Ingest == nil {
		return nil
	}

	addStage := func(name string, deps []string, run func(context.Context) error) error {
		if _, err := g.AddNode(name, stageTask{name: name, run: run}); err != nil {
			return err
		}
		for _, dep := range deps {
			if err := g.AddEdge(dep, name); err != nil {
				return err
			}
		}
		return nil
	}

	err := addStage("ingest", runIDs, func(ctx context.Context) error {
		_, err := Ingest(ctx, c)
		return err
	})
	if err != nil {
		return err
	}

	reportDeps := []string{"ingest"}
	if c.Collisions != nil {
		err := addStage("collisions", []string{"ingest"}, func(ctx context.Context) error {
			_, err := Collisions(ctx, c)
			return err
		})
		if err != nil {
			return err
		}
		reportDeps = append(reportDeps, "collisions")
	}
	if c.EdgeData != nil {
		err := addStage("edgedata", []string{"ingest"}, func(ctx context.Context) error {
			return EdgeData(ctx, c)
		})
		if err != nil {
			return err
		}
		reportDeps = append(reportDeps, "edgedata")
	}
	if c.Report != nil {
		err := addStage("report", reportDeps, func(ctx context.Context) error {
			return Report(ctx, c)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// spec builds the simulator invocation for one planned run. Relative paths
// in the campaign resolve against the campaign file's directory.
func (b *Builder) spec(pr PlannedRun) simrun.Spec {
	sim := b.Campaign.Simulator
	workDir := b.Campaign.Dir
	if sim.WorkDir != "" {
		workDir = resolvePath(b.Campaign.Dir, sim.WorkDir)
	}
	logName := fmt.Sprintf("%s_%d.log", pr.Config, pr.RunNumber)
	return simrun.Spec{
		Binary:    sim.Binary,
		Ini:       sim.Ini,
		UI:        sim.UI,
		Config:    pr.Config,
		RunNumber: pr.RunNumber,
		ExtraArgs: sim.ExtraArgs,
		WorkDir:   workDir,
		LogPath:   filepath.Join(resolvePath(b.Campaign.Dir, sim.LogDir), logName),
	}
}

// stageTask adapts a post-processing stage to a graph node.
type stageTask struct {
	name string
	run  func(ctx context.Context) error
}

func (t stageTask) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("stage", t.name)
	logger.Info("Stage starting.")
	if err := t.run(ctxlog.WithLogger(ctx, logger)); err != nil {
		return fmt.Errorf("stage %s: %w", t.name, err)
	}
	logger.Info("Stage finished.")
	return nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
