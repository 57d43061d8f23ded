// Package sumonet reads SUMO network files and answers geometric queries
// against their lane shapes.
package sumonet

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Point is a position in either coordinate frame.
type Point struct {
	X, Y float64
}

// Lane is one lane of a network edge, with its centerline polyline in raw
// network (TraCI) coordinates.
type Lane struct {
	EdgeID string
	ID     string
	Index  int
	Speed  float64
	Length float64
	Shape  []Point
}

// Network is a parsed SUMO road network.
type Network struct {
	Lanes []*Lane
}

// EdgeInfo carries the per-edge averages used for congestion metrics.
type EdgeInfo struct {
	Speed  float64
	Length float64
}

type xmlLane struct {
	ID     string `xml:"id,attr"`
	Index  string `xml:"index,attr"`
	Speed  string `xml:"speed,attr"`
	Length string `xml:"length,attr"`
	Shape  string `xml:"shape,attr"`
}

// LoadNet parses the SUMO network file at path. Only edge and lane
// elements are read; everything else is skipped.
func LoadNet(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()

	net := &Network{}
	dec := xml.NewDecoder(f)
	currentEdge := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "edge":
			currentEdge = attr(start, "id")
		case "lane":
			var xl xmlLane
			if err := dec.DecodeElement(&xl, &start); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			lane, err := newLane(currentEdge, xl)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			net.Lanes = append(net.Lanes, lane)
		}
	}

	if len(net.Lanes) == 0 {
		return nil, fmt.Errorf("network %s contains no lanes", path)
	}
	return net, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func newLane(edgeID string, xl xmlLane) (*Lane, error) {
	lane := &Lane{EdgeID: edgeID, ID: xl.ID, Index: -1, Speed: -1, Length: -1}
	if xl.Index != "" {
		n, err := strconv.Atoi(xl.Index)
		if err != nil {
			return nil, fmt.Errorf("lane %s: bad index %q", xl.ID, xl.Index)
		}
		lane.Index = n
	}
	if xl.Speed != "" {
		v, err := strconv.ParseFloat(xl.Speed, 64)
		if err != nil {
			return nil, fmt.Errorf("lane %s: bad speed %q", xl.ID, xl.Speed)
		}
		lane.Speed = v
	}
	if xl.Length != "" {
		v, err := strconv.ParseFloat(xl.Length, 64)
		if err != nil {
			return nil, fmt.Errorf("lane %s: bad length %q", xl.ID, xl.Length)
		}
		lane.Length = v
	}

	for _, pair := range strings.Fields(xl.Shape) {
		parts := strings.Split(pair, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("lane %s: bad shape point %q", xl.ID, pair)
		}
		x, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("lane %s: bad shape point %q", xl.ID, pair)
		}
		y, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("lane %s: bad shape point %q", xl.ID, pair)
		}
		lane.Shape = append(lane.Shape, Point{X: x, Y: y})
	}
	if len(lane.Shape) < 2 {
		return nil, fmt.Errorf("lane %s: shape needs at least two points", xl.ID)
	}
	return lane, nil
}

// EdgeInfos averages lane speed and length per edge.
func (n *Network) EdgeInfos() map[string]EdgeInfo {
	type acc struct {
		speed, length float64
		count         int
	}
	tmp := make(map[string]*acc)
	for _, l := range n.Lanes {
		a, ok := tmp[l.EdgeID]
		if !ok {
			a = &acc{}
			tmp[l.EdgeID] = a
		}
		a.speed += l.Speed
		a.length += l.Length
		a.count++
	}
	out := make(map[string]EdgeInfo, len(tmp))
	for id, a := range tmp {
		out[id] = EdgeInfo{Speed: a.speed / float64(a.count), Length: a.length / float64(a.count)}
	}
	return out
}
