// Package resultsdb stores ingested simulation results in a SQLite
// database and provides the queries used by the analysis stages.
package resultsdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the results database.
type DB struct {
	db      *sql.DB
	columns *ColumnSet
}

// Open opens (or creates) the results database at path and ensures the
// schema exists for the given metric column set.
func Open(ctx context.Context, path string, columns *ColumnSet) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	d := &DB{db: db, columns: columns}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// integerColumns holds the metric columns stored as integers rather than
// reals.
var integerColumns = map[string]bool{
	"appl_laneIdx":    true,
	"prot_nodeId":     true,
	"prot_collisions": true,
}

func (d *DB) initSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString(`create table if not exists results (
    node_id integer,
    run_id integer,
    seconds real,
    frame_error_rate real,
    controller text,
    mpr real,
`)
	for _, col := range d.columns.Names() {
		typ := "real"
		if integerColumns[col] {
			typ = "integer"
		}
		fmt.Fprintf(&b, "    %s %s,\n", col, typ)
	}
	b.WriteString("    primary key (node_id, run_id, seconds)\n);")

	if _, err := d.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}

	const collisionsSchema = `create table if not exists collisions (
    leader_node_id integer,
    follower_node_id integer,
    seconds real,
    lane_id text,
    primary key (leader_node_id, follower_node_id, seconds)
);`
	if _, err := d.db.ExecContext(ctx, collisionsSchema); err != nil {
		return fmt.Errorf("create collisions table: %w", err)
	}
	return nil
}
