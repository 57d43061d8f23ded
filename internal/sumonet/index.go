package sumonet

import (
	"math"
)

// DefaultCellSize is the grid cell edge length in meters used by
// NewLaneIndex when the caller passes 0.
const DefaultCellSize = 64.0

type cellKey struct {
	x, y int
}

type segment struct {
	lane *Lane
	a, b Point
}

// LaneIndex answers nearest-lane queries over a network's lane polylines
// using a uniform grid of polyline segments searched in expanding rings.
type LaneIndex struct {
	cellSize float64
	cells    map[cellKey][]segment
}

// NewLaneIndex builds the index for a network. cellSize 0 selects
// DefaultCellSize.
func NewLaneIndex(net *Network, cellSize float64) *LaneIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	ix := &LaneIndex{cellSize: cellSize, cells: make(map[cellKey][]segment)}
	for _, lane := range net.Lanes {
		for i := 0; i+1 < len(lane.Shape); i++ {
			ix.insert(segment{lane: lane, a: lane.Shape[i], b: lane.Shape[i+1]})
		}
	}
	return ix
}

func (ix *LaneIndex) insert(s segment) {
	x0 := int(math.Floor(math.Min(s.a.X, s.b.X) / ix.cellSize))
	x1 := int(math.Floor(math.Max(s.a.X, s.b.X) / ix.cellSize))
	y0 := int(math.Floor(math.Min(s.a.Y, s.b.Y) / ix.cellSize))
	y1 := int(math.Floor(math.Max(s.a.Y, s.b.Y) / ix.cellSize))
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			key := cellKey{x, y}
			ix.cells[key] = append(ix.cells[key], s)
		}
	}
}

// Nearest returns the lane closest to p in network coordinates and its
// distance. It returns nil if no lane lies within maxDist.
func (ix *LaneIndex) Nearest(p Point, maxDist float64) (*Lane, float64) {
	center := cellKey{
		x: int(math.Floor(p.X / ix.cellSize)),
		y: int(math.Floor(p.Y / ix.cellSize)),
	}
	maxRing := int(math.Ceil(maxDist/ix.cellSize)) + 1

	var best *Lane
	bestDist := math.Inf(1)
	for ring := 0; ring <= maxRing; ring++ {
		// Once a candidate is found, rings whose nearest possible point is
		// farther than it cannot improve the result.
		if best != nil && float64(ring-1)*ix.cellSize > bestDist {
			break
		}
		for _, key := range ringCells(center, ring) {
			for _, s := range ix.cells[key] {
				d := pointSegmentDistance(p, s.a, s.b)
				if d < bestDist {
					bestDist = d
					best = s.lane
				}
			}
		}
	}

	if best == nil || bestDist > maxDist {
		return nil, bestDist
	}
	return best, bestDist
}

// ringCells enumerates the cells on the square ring of the given radius
// around the center cell.
func ringCells(center cellKey, ring int) []cellKey {
	if ring == 0 {
		return []cellKey{center}
	}
	cells := make([]cellKey, 0, 8*ring)
	for x := center.x - ring; x <= center.x+ring; x++ {
		cells = append(cells, cellKey{x, center.y - ring}, cellKey{x, center.y + ring})
	}
	for y := center.y - ring + 1; y <= center.y+ring-1; y++ {
		cells = append(cells, cellKey{center.x - ring, y}, cellKey{center.x + ring, y})
	}
	return cells
}

// pointSegmentDistance is the distance from p to the segment ab.
func pointSegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy := a.X+t*dx, a.Y+t*dy
	return math.Hypot(p.X-cx, p.Y-cy)
}
