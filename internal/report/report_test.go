package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gargmohit24/platoonbench/internal/resultsdb"
)

const reportVec = `version 2
run Report-0-20210412
itervar frameErrorRate 0.3
itervar mpr 0.5
itervar controller \"PLOEG\"
vector 0 Net.node[1].appl speed ETV
vector 1 Net.node[1].appl distanceTravelled ETV
0	1	1.0	25.0
1	1	1.0	1.0
0	2	2.0	27.0
1	2	2.0	2.0
`

func TestWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	vecPath := filepath.Join(dir, "report.vec")
	require.NoError(t, os.WriteFile(vecPath, []byte(reportVec), 0o644))

	db, err := resultsdb.Open(ctx, filepath.Join(dir, "results.db"), resultsdb.DefaultColumns())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Ingest(ctx, []string{vecPath})
	require.NoError(t, err)
	require.NoError(t, db.InsertCollision(ctx, 1, 2, 1.0, "east_0"))

	out := filepath.Join(dir, "report.html")
	g := &Generator{DB: db, Title: "Highway sweep"}
	require.NoError(t, g.Write(ctx, out))

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "<title>Highway sweep</title>")
	assert.Contains(t, s, "PLOEG")
	assert.Contains(t, s, "0.50") // MPR
	assert.Contains(t, s, "1 runs ingested, 1 collisions recorded")
	assert.Contains(t, s, "26.00") // average speed
}

func TestCollectDefaultsTitle(t *testing.T) {
	ctx := context.Background()
	db, err := resultsdb.Open(ctx, filepath.Join(t.TempDir(), "results.db"), resultsdb.DefaultColumns())
	require.NoError(t, err)
	defer db.Close()

	data, err := (&Generator{DB: db}).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Platooning campaign report", data.Title)
	assert.Empty(t, data.Groups)
}
