// Package collisions scans ingested runs for imminent rear-end collisions
// between consecutive snapshots and records them in the results database.
package collisions

import (
	"context"
	"fmt"
	"math"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/resultsdb"
	"github.com/gargmohit24/platoonbench/internal/sumonet"
)

// Vehicle is one vehicle's movement between two snapshot instants.
type Vehicle struct {
	PrevPos    sumonet.Point
	CurrPos    sumonet.Point
	Speed      float64
	Controller string
}

// Scanner detects collisions for runs stored in a results database.
type Scanner struct {
	DB      *resultsdb.DB
	Locator *sumonet.Locator
	// TTC is the time-to-collision boundary in seconds: a vehicle's danger
	// radius is its speed times TTC.
	TTC float64
	// AllSnapshots also evaluates fractional-second instants. These carry
	// incomplete data in recorded runs and are skipped by default.
	AllSnapshots bool
}

// Run scans one run between start and end (inclusive) and returns the
// number of collisions recorded. Negative start/end select the run's full
// time range.
func (s *Scanner) Run(ctx context.Context, runID int, start, end float64) (int, error) {
	logger := ctxlog.FromContext(ctx).With("runID", runID)

	if start < 0 || end < 0 {
		minS, maxS, err := s.DB.TimeBounds(ctx, runID)
		if err != nil {
			return 0, err
		}
		if start < 0 {
			start = minS
		}
		if end < 0 {
			end = maxS
		}
	}

	instants, err := s.DB.Instants(ctx, runID, start, end)
	if err != nil {
		return 0, err
	}
	if !s.AllSnapshots {
		whole := instants[:0]
		for _, t := range instants {
			if t == math.Trunc(t) {
				whole = append(whole, t)
			}
		}
		instants = whole
	}
	logger.Debug("Scanning instants.", "count", len(instants), "start", start, "end", end)

	recorded := 0
	for i := 0; i+1 < len(instants); i++ {
		snapshot, err := s.snapshot(ctx, runID, instants[i], instants[i+1])
		if err != nil {
			return recorded, err
		}
		logger.Debug("Processing snapshot.", "start", instants[i], "end", instants[i+1], "vehicles", len(snapshot))

		n, err := s.scanSnapshot(ctx, snapshot, instants[i+1])
		if err != nil {
			return recorded, err
		}
		recorded += n
	}

	logger.Info("Collision scan finished.", "collisions", recorded)
	return recorded, nil
}

// snapshot loads the vehicles present at both instants.
func (s *Scanner) snapshot(ctx context.Context, runID int, start, end float64) (map[int]*Vehicle, error) {
	startRows, err := s.DB.Snapshot(ctx, runID, start)
	if err != nil {
		return nil, err
	}
	endRows, err := s.DB.Snapshot(ctx, runID, end)
	if err != nil {
		return nil, err
	}

	prev := make(map[int]sumonet.Point, len(startRows))
	for _, r := range startRows {
		prev[r.NodeID] = sumonet.Point{X: r.PosX, Y: r.PosY}
	}

	vehicles := make(map[int]*Vehicle)
	for _, r := range endRows {
		p, ok := prev[r.NodeID]
		if !ok {
			continue
		}
		vehicles[r.NodeID] = &Vehicle{
			PrevPos:    p,
			CurrPos:    sumonet.Point{X: r.PosX, Y: r.PosY},
			Speed:      r.Speed,
			Controller: r.Controller,
		}
	}
	return vehicles, nil
}

func (s *Scanner) scanSnapshot(ctx context.Context, vehicles map[int]*Vehicle, instant float64) (int, error) {
	recorded := 0
	for id, v := range vehicles {
		lane, err := s.Locator.LaneAt(v.CurrPos)
		if err != nil {
			return recorded, fmt.Errorf("vehicle %d: %w", id, err)
		}

		// Anything closer than the distance covered within the TTC boundary
		// is a potential foe.
		radius := v.Speed * s.TTC
		for foeID, foe := range vehicles {
			if foeID == id {
				continue
			}
			if distance(v.CurrPos, foe.CurrPos) > radius {
				continue
			}
			foeLane, err := s.Locator.LaneAt(foe.CurrPos)
			if err != nil {
				return recorded, fmt.Errorf("vehicle %d: %w", foeID, err)
			}
			if foeLane.ID != lane.ID {
				continue
			}
			// If v is not following the foe we will catch the pair from the
			// foe's side.
			if !IsFollowing(v.PrevPos, v.CurrPos, foe.PrevPos, foe.CurrPos) {
				continue
			}
			// Same lane, within an unsafe stopping distance, follower
			// closing in: record the pair.
			if err := s.DB.InsertCollision(ctx, foeID, id, instant, lane.ID); err != nil {
				return recorded, err
			}
			recorded++
		}
	}
	return recorded, nil
}

// IsFollowing reports whether vehicle u is behind and closing in on
// vehicle v, given their previous and current positions. u follows v when
// v moves away from u's previous position and u ends up no farther from
// v than it started.
func IsFollowing(uPrev, uCurr, vPrev, vCurr sumonet.Point) bool {
	return distance(uPrev, vCurr) > distance(uPrev, vPrev) &&
		distance(uCurr, vCurr) <= distance(uPrev, vPrev)
}

func distance(a, b sumonet.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
