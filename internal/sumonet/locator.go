package sumonet

import "fmt"

// DefaultSnapThreshold is how far (in meters) a position may be from the
// nearest lane centerline before lookup fails.
const DefaultSnapThreshold = 0.1

// Locator maps simulator positions onto network lanes.
type Locator struct {
	xform     *Transformer
	index     *LaneIndex
	threshold float64
}

// NewLocator builds a locator over the network. A nil transformer means
// positions are already in network coordinates. threshold 0 selects
// DefaultSnapThreshold.
func NewLocator(net *Network, xform *Transformer, threshold float64) *Locator {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	return &Locator{
		xform:     xform,
		index:     NewLaneIndex(net, 0),
		threshold: threshold,
	}
}

// LaneAt returns the lane under the given simulator position. Positions
// farther than the snap threshold from any lane are an error: they indicate
// a bad coordinate transform rather than a vehicle slightly off-center.
func (l *Locator) LaneAt(simPos Point) (*Lane, error) {
	netPos := simPos
	if l.xform != nil {
		netPos = l.xform.SimToNet(simPos)
	}
	lane, dist := l.index.Nearest(netPos, l.threshold)
	if lane == nil {
		return nil, fmt.Errorf("position (%.2f, %.2f) is %.2fm from the nearest lane (threshold %.2fm)",
			simPos.X, simPos.Y, dist, l.threshold)
	}
	return lane, nil
}
