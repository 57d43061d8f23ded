package sumonet

// Transformer converts between the simulator's coordinate frame and raw
// network (TraCI) coordinates. The network frame keeps its original origin
// and has the Y axis flipped relative to the simulator frame.
type Transformer struct {
	topLeft     Point
	bottomRight Point
	margin      float64
	dims        Point
}

// NewTransformer builds a transformer from the network's top-left and
// bottom-right corners and the playground margin.
func NewTransformer(topLeft, bottomRight Point, margin float64) *Transformer {
	return &Transformer{
		topLeft:     topLeft,
		bottomRight: bottomRight,
		margin:      margin,
		dims:        Point{X: bottomRight.X - topLeft.X, Y: bottomRight.Y - topLeft.Y},
	}
}

// SimToNet maps a simulator position into network coordinates.
func (t *Transformer) SimToNet(p Point) Point {
	return Point{
		X: p.X + t.topLeft.X - t.margin,
		Y: t.dims.Y - (p.Y - t.topLeft.Y) + t.margin,
	}
}

// NetToSim maps a network position into simulator coordinates.
func (t *Transformer) NetToSim(p Point) Point {
	return Point{
		X: p.X - t.topLeft.X + t.margin,
		Y: t.dims.Y - (p.Y - t.topLeft.Y) + t.margin,
	}
}
