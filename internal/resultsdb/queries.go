package resultsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// VehicleRow is one vehicle's state at a single instant.
type VehicleRow struct {
	NodeID     int
	Controller string
	PosX       float64
	PosY       float64
	Speed      float64
}

// PositionSample is one positioned speed sample.
type PositionSample struct {
	NodeID  int
	Seconds float64
	PosX    float64
	PosY    float64
	Speed   float64
}

// RunIDs returns the distinct run ids present in the results table.
func (d *DB) RunIDs(ctx context.Context) ([]int, error) {
	rows, err := d.db.QueryContext(ctx, "select distinct run_id from results order by run_id asc;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TimeBounds returns the minimum and maximum recorded seconds for a run.
func (d *DB) TimeBounds(ctx context.Context, runID int) (float64, float64, error) {
	var minS, maxS sql.NullFloat64
	err := d.db.QueryRowContext(ctx,
		"select min(seconds), max(seconds) from results where run_id = ?;", runID).Scan(&minS, &maxS)
	if err != nil {
		return 0, 0, err
	}
	if !minS.Valid {
		return 0, 0, fmt.Errorf("run %d has no results", runID)
	}
	return minS.Float64, maxS.Float64, nil
}

// Instants returns the distinct timestamps of a run within [start, end],
// ascending.
func (d *DB) Instants(ctx context.Context, runID int, start, end float64) ([]float64, error) {
	rows, err := d.db.QueryContext(ctx, `
		select distinct seconds from results
		where run_id = ? and seconds >= ? and seconds <= ?
		order by seconds asc;`, runID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instants []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		instants = append(instants, s)
	}
	return instants, rows.Err()
}

// Snapshot returns every vehicle with complete position and speed data at
// the given instant of a run.
func (d *DB) Snapshot(ctx context.Context, runID int, seconds float64) ([]VehicleRow, error) {
	rows, err := d.db.QueryContext(ctx, `
		select node_id, controller, mobility_posx, mobility_posy, appl_speed
		from results
		where run_id = ? and seconds = ?
		and mobility_posx is not null and mobility_posy is not null and appl_speed is not null;`,
		runID, seconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VehicleRow
	for rows.Next() {
		var v VehicleRow
		if err := rows.Scan(&v.NodeID, &v.Controller, &v.PosX, &v.PosY, &v.Speed); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PositionSamples streams positioned speed samples of a run within
// [start, end) to fn in time order.
func (d *DB) PositionSamples(ctx context.Context, runID int, start, end float64, fn func(PositionSample) error) error {
	rows, err := d.db.QueryContext(ctx, `
		select node_id, seconds, mobility_posx, mobility_posy, appl_speed
		from results
		where run_id = ? and seconds >= ? and seconds < ?
		and mobility_posx is not null and mobility_posy is not null and appl_speed is not null
		order by seconds asc;`, runID, start, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s PositionSample
		if err := rows.Scan(&s.NodeID, &s.Seconds, &s.PosX, &s.PosY, &s.Speed); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return rows.Err()
}

// InsertCollision records one leader/follower collision, ignoring
// duplicates.
func (d *DB) InsertCollision(ctx context.Context, leaderID, followerID int, seconds float64, laneID string) error {
	_, err := d.db.ExecContext(ctx,
		"insert or ignore into collisions values (?, ?, ?, ?);",
		leaderID, followerID, seconds, laneID)
	return err
}

// CollisionCount returns the number of recorded collisions.
func (d *DB) CollisionCount(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx, "select count(*) from collisions;").Scan(&n)
	return n, err
}

// GroupStat aggregates results for one (controller, mpr, frame error rate)
// cell of the sweep.
type GroupStat struct {
	Controller     string
	MPR            float64
	FrameErrorRate float64
	Runs           int
	Samples        int64
	AvgSpeed       sql.NullFloat64
	AvgAccel       sql.NullFloat64
	AvgBusyTime    sql.NullFloat64
}

// GroupStats aggregates the results table per sweep cell, ordered by
// controller, mpr, frame error rate.
func (d *DB) GroupStats(ctx context.Context) ([]GroupStat, error) {
	// A custom column map may omit some of the averaged metrics.
	avg := func(col string) string {
		if d.columns.Contains(col) {
			return "avg(" + col + ")"
		}
		return "null"
	}
	query := fmt.Sprintf(`
		select controller, mpr, frame_error_rate,
		       count(distinct run_id), count(*),
		       %s, %s, %s
		from results
		group by controller, mpr, frame_error_rate
		order by controller, mpr, frame_error_rate;`,
		avg("appl_speed"), avg("appl_acceleration"), avg("prot_busyTime"))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupStat
	for rows.Next() {
		var g GroupStat
		if err := rows.Scan(&g.Controller, &g.MPR, &g.FrameErrorRate,
			&g.Runs, &g.Samples, &g.AvgSpeed, &g.AvgAccel, &g.AvgBusyTime); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
