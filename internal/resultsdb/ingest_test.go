package resultsdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVec = `version 2
run HighTraffic-3-20210412-10:22:33-1234
itervar frameErrorRate 0.5
itervar mpr 0.7
itervar controller \"CACC\"

vector 0 Highway.node[4].appl speed ETV
vector 1 Highway.node[4].appl distanceTravelled ETV
vector 2 Highway.node[4].mobility posx ETV
vector 3 Highway.node[5].appl speed ETV
vector 4 Highway.node[4].appl unknownMetric ETV
0	1	1.0	30.5
1	2	1.0	12.0
2	3	1.0	150.0
3	4	1.0	28.0
4	5	1.0	99.0
0	6	2.0	31.0
1	7	2.0	43.0
`

func openTestDB(t *testing.T) (*DB, context.Context) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "results.db"), DefaultColumns())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, ctx
}

func writeTestVec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.vec")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngest(t *testing.T) {
	db, ctx := openTestDB(t)
	path := writeTestVec(t, testVec)

	n, err := db.Ingest(ctx, []string{path})
	require.NoError(t, err)
	// Three (node, time) rows are inserted; the node 5 row never records
	// distanceTravelled and is purged, leaving two.
	assert.Equal(t, int64(2), n)

	ids, err := db.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)

	minS, maxS, err := db.TimeBounds(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, minS)
	assert.Equal(t, 2.0, maxS)

	stats, err := db.GroupStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "CACC", stats[0].Controller)
	assert.Equal(t, 0.7, stats[0].MPR)
	assert.Equal(t, 0.5, stats[0].FrameErrorRate)
	assert.Equal(t, 1, stats[0].Runs)
	assert.Equal(t, int64(2), stats[0].Samples)
	require.True(t, stats[0].AvgSpeed.Valid)
	assert.InDelta(t, 30.75, stats[0].AvgSpeed.Float64, 1e-9)
}

func TestIngestIsIdempotent(t *testing.T) {
	db, ctx := openTestDB(t)
	path := writeTestVec(t, testVec)

	_, err := db.Ingest(ctx, []string{path})
	require.NoError(t, err)
	n, err := db.Ingest(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestIngestMissingRunVars(t *testing.T) {
	db, ctx := openTestDB(t)
	path := writeTestVec(t, `version 2
run X-1-abc
vector 0 Net.node[0].appl speed ETV
0	1	1.0	2.0
`)
	_, err := db.Ingest(ctx, []string{path})
	require.Error(t, err)
	assert.ErrorContains(t, err, "frameErrorRate")
}

func TestCollisions(t *testing.T) {
	db, ctx := openTestDB(t)

	require.NoError(t, db.InsertCollision(ctx, 1, 2, 25.0, "edge_0_0"))
	require.NoError(t, db.InsertCollision(ctx, 1, 2, 25.0, "edge_0_0")) // duplicate
	require.NoError(t, db.InsertCollision(ctx, 3, 4, 26.0, "edge_1_0"))

	n, err := db.CollisionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSnapshotAndInstants(t *testing.T) {
	db, ctx := openTestDB(t)
	path := writeTestVec(t, `version 2
run X-7-abc
itervar frameErrorRate 0
itervar mpr 1.0
itervar controller \"PLOEG\"
vector 0 Net.node[1].mobility posx ETV
vector 1 Net.node[1].mobility posy ETV
vector 2 Net.node[1].appl speed ETV
vector 3 Net.node[1].appl distanceTravelled ETV
0	1	5.0	100.0
1	2	5.0	20.0
2	3	5.0	33.0
3	4	5.0	1.0
0	5	6.0	133.0
1	6	6.0	20.0
2	7	6.0	33.5
3	8	6.0	2.0
`)
	_, err := db.Ingest(ctx, []string{path})
	require.NoError(t, err)

	instants, err := db.Instants(ctx, 7, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.0, 6.0}, instants)

	snap, err := db.Snapshot(ctx, 7, 6.0)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].NodeID)
	assert.Equal(t, 133.0, snap[0].PosX)
	assert.Equal(t, 33.5, snap[0].Speed)

	var got []PositionSample
	err = db.PositionSamples(ctx, 7, 5.0, 6.0, func(s PositionSample) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Seconds)
}

func TestLoadColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns:\n  - appl_speed\n  - appl_speed\n  - prot_busyTime\n"), 0o644))

	cs, err := LoadColumns(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"appl_speed", "prot_busyTime"}, cs.Names())
	assert.True(t, cs.Contains("appl_speed"))
	assert.False(t, cs.Contains("mobility_posx"))
}

func TestLoadColumnsRejectsBadNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns:\n  - \"bad; drop table\"\n"), 0o644))

	_, err := LoadColumns(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid column name")
}
