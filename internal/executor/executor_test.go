package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gargmohit24/platoonbench/internal/dag"
)

// recordingTask appends its id to a shared log when run.
type recordingTask struct {
	id  string
	err error

	mu  *sync.Mutex
	log *[]string
}

func (t *recordingTask) Run(context.Context) error {
	t.mu.Lock()
	*t.log = append(*t.log, t.id)
	t.mu.Unlock()
	return t.err
}

type taskRecorder struct {
	mu  sync.Mutex
	log []string
}

func (r *taskRecorder) task(id string, err error) *recordingTask {
	return &recordingTask{id: id, err: err, mu: &r.mu, log: &r.log}
}

func (r *taskRecorder) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestRunExecutesAllNodes(t *testing.T) {
	rec := &taskRecorder{}
	g := dag.New()
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := g.AddNode(id, rec.task(id, nil))
		require.NoError(t, err)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))

	err := New(g, 4).Run(context.Background())
	require.NoError(t, err)

	ran := rec.ran()
	assert.Len(t, ran, 4)
	assert.Less(t, indexOf(ran, "a"), indexOf(ran, "b"))
	assert.Less(t, indexOf(ran, "a"), indexOf(ran, "c"))
	assert.Less(t, indexOf(ran, "b"), indexOf(ran, "d"))
	assert.Less(t, indexOf(ran, "c"), indexOf(ran, "d"))

	for _, n := range g.Nodes() {
		assert.Equal(t, dag.Done, n.State(), "node %s", n.ID)
	}
}

func TestRunSkipsDependentsOnFailure(t *testing.T) {
	rec := &taskRecorder{}
	boom := errors.New("simulator exited with status 139")

	g := dag.New()
	_, err := g.AddNode("a", rec.task("a", boom))
	require.NoError(t, err)
	_, err = g.AddNode("b", rec.task("b", nil))
	require.NoError(t, err)
	_, err = g.AddNode("c", rec.task("c", nil))
	require.NoError(t, err)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	err = New(g, 2).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "execution failed for a")

	assert.Equal(t, []string{"a"}, rec.ran())
	for _, n := range g.Nodes() {
		if n.ID == "a" {
			continue
		}
		assert.Equal(t, dag.Failed, n.State(), "node %s", n.ID)
		assert.ErrorContains(t, n.Error, "skipped due to upstream failure")
	}
}

func TestRunSingleWorkerMinimum(t *testing.T) {
	rec := &taskRecorder{}
	g := dag.New()
	_, err := g.AddNode("only", rec.task("only", nil))
	require.NoError(t, err)

	require.NoError(t, New(g, 0).Run(context.Background()))
	assert.Equal(t, []string{"only"}, rec.ran())
}

func TestRunCanceledContext(t *testing.T) {
	rec := &taskRecorder{}
	g := dag.New()
	_, err := g.AddNode("a", rec.task("a", nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = New(g, 1).Run(ctx)
	// Cancellation alone is not a root-cause failure.
	require.NoError(t, err)
	assert.Empty(t, rec.ran())
	assert.Equal(t, dag.Failed, g.Nodes()[0].State())
}
