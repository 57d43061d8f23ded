// Package edgedata aggregates per-edge traffic statistics from an ingested
// run and exports them as a SUMO meandata document.
package edgedata

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/resultsdb"
	"github.com/gargmohit24/platoonbench/internal/sumonet"
)

// travelRateFactor converts 1/(m/s) into minutes per kilometer.
const travelRateFactor = 16.667

// Exporter builds meandata documents from a results database.
type Exporter struct {
	DB      *resultsdb.DB
	Net     *sumonet.Network
	Locator *sumonet.Locator
}

// MeanData is the root element of the exported document.
type MeanData struct {
	XMLName  xml.Name `xml:"meandata"`
	Interval Interval `xml:"interval"`
}

// Interval holds per-edge aggregates for one time window.
type Interval struct {
	Begin float64 `xml:"begin,attr"`
	End   float64 `xml:"end,attr"`
	Edges []Edge  `xml:"edge"`
}

// Edge is the aggregate row for a single network edge.
type Edge struct {
	ID              string  `xml:"id,attr"`
	Speed           float64 `xml:"speed,attr"`
	Length          float64 `xml:"length,attr"`
	AvgSpeed        float64 `xml:"avg_speed,attr"`
	MinSpeed        float64 `xml:"min_speed,attr"`
	MaxSpeed        float64 `xml:"max_speed,attr"`
	StdevSpeed      string  `xml:"stdev_speed,attr"`
	TravelRate      float64 `xml:"travelrate,attr"`
	CongestionIndex float64 `xml:"congestion_index,attr"`
}

// Build aggregates one run's samples in [start, end) into a meandata
// document. Negative start/end select the run's full time range.
func (e *Exporter) Build(ctx context.Context, runID int, start, end float64) (*MeanData, error) {
	logger := ctxlog.FromContext(ctx).With("runID", runID)

	if start < 0 || end < 0 {
		minS, maxS, err := e.DB.TimeBounds(ctx, runID)
		if err != nil {
			return nil, err
		}
		if start < 0 {
			start = minS
		}
		if end < 0 {
			end = maxS
		}
	}

	speeds := make(map[string][]float64)
	err := e.DB.PositionSamples(ctx, runID, start, end, func(s resultsdb.PositionSample) error {
		lane, err := e.Locator.LaneAt(sumonet.Point{X: s.PosX, Y: s.PosY})
		if err != nil {
			return fmt.Errorf("node %d at %gs: %w", s.NodeID, s.Seconds, err)
		}
		speeds[lane.EdgeID] = append(speeds[lane.EdgeID], s.Speed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Samples aggregated.", "edges", len(speeds), "start", start, "end", end)

	infos := e.Net.EdgeInfos()
	doc := &MeanData{Interval: Interval{Begin: start, End: end}}

	edgeIDs := make([]string, 0, len(speeds))
	for id := range speeds {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Strings(edgeIDs)

	for _, id := range edgeIDs {
		samples := speeds[id]
		info := infos[id]

		avg := stat.Mean(samples, nil)
		minSpeed, maxSpeed := samples[0], samples[0]
		for _, v := range samples {
			if v < minSpeed {
				minSpeed = v
			}
			if v > maxSpeed {
				maxSpeed = v
			}
		}
		stdev := ""
		if len(samples) > 2 {
			stdev = fmt.Sprintf("%g", stat.StdDev(samples, nil))
		}

		expected := info.Length / info.Speed
		actual := info.Length / avg
		doc.Interval.Edges = append(doc.Interval.Edges, Edge{
			ID:              id,
			Speed:           info.Speed,
			Length:          info.Length,
			AvgSpeed:        avg,
			MinSpeed:        minSpeed,
			MaxSpeed:        maxSpeed,
			StdevSpeed:      stdev,
			TravelRate:      1 / avg * travelRateFactor,
			CongestionIndex: (actual - expected) / expected,
		})
	}

	return doc, nil
}

// Write renders the document as indented XML.
func (m *MeanData) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(m); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Export builds the document and writes it to path, or to stdout when path
// is empty.
func (e *Exporter) Export(ctx context.Context, runID int, start, end float64, path string) error {
	doc, err := e.Build(ctx, runID, start, end)
	if err != nil {
		return err
	}
	if path == "" {
		return doc.Write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := doc.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
