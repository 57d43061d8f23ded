package sumonet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNet = `<?xml version="1.0" encoding="UTF-8"?>
<net version="1.6">
    <location netOffset="0.00,0.00" convBoundary="0.00,0.00,200.00,100.00"/>
    <edge id="east" from="a" to="b" priority="1">
        <lane id="east_0" index="0" speed="27.78" length="200.00" shape="0.00,0.00 200.00,0.00"/>
        <lane id="east_1" index="1" speed="27.78" length="200.00" shape="0.00,3.20 200.00,3.20"/>
    </edge>
    <edge id="north" from="b" to="c" priority="1">
        <lane id="north_0" index="0" speed="13.89" length="100.00" shape="200.00,0.00 200.00,100.00"/>
    </edge>
</net>
`

func loadTestNet(t *testing.T) *Network {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.xml")
	require.NoError(t, os.WriteFile(path, []byte(testNet), 0o644))
	net, err := LoadNet(path)
	require.NoError(t, err)
	return net
}

func TestLoadNet(t *testing.T) {
	net := loadTestNet(t)

	require.Len(t, net.Lanes, 3)
	assert.Equal(t, "east", net.Lanes[0].EdgeID)
	assert.Equal(t, "east_0", net.Lanes[0].ID)
	assert.Equal(t, 0, net.Lanes[0].Index)
	assert.Equal(t, 27.78, net.Lanes[0].Speed)
	assert.Equal(t, []Point{{0, 0}, {200, 0}}, net.Lanes[0].Shape)
	assert.Equal(t, "north", net.Lanes[2].EdgeID)
}

func TestEdgeInfos(t *testing.T) {
	net := loadTestNet(t)

	infos := net.EdgeInfos()
	require.Len(t, infos, 2)
	assert.InDelta(t, 27.78, infos["east"].Speed, 1e-9)
	assert.InDelta(t, 200.0, infos["east"].Length, 1e-9)
	assert.InDelta(t, 13.89, infos["north"].Speed, 1e-9)
}

func TestTransformerRoundTrip(t *testing.T) {
	xf := NewTransformer(Point{X: 679.56, Y: 966.00}, Point{X: 4441.09, Y: 9242.02}, 25)

	sim := Point{X: 1200.5, Y: 3300.25}
	net := xf.SimToNet(sim)
	back := xf.NetToSim(net)
	assert.InDelta(t, sim.X, back.X, 1e-9)
	assert.InDelta(t, sim.Y, back.Y, 1e-9)
}

func TestLaneIndexNearest(t *testing.T) {
	net := loadTestNet(t)
	ix := NewLaneIndex(net, 10)

	lane, dist := ix.Nearest(Point{X: 50, Y: 0.05}, 1.0)
	require.NotNil(t, lane)
	assert.Equal(t, "east_0", lane.ID)
	assert.InDelta(t, 0.05, dist, 1e-9)

	lane, dist = ix.Nearest(Point{X: 199.9, Y: 50}, 1.0)
	require.NotNil(t, lane)
	assert.Equal(t, "north_0", lane.ID)
	assert.InDelta(t, 0.1, dist, 1e-9)

	// Far from every lane: nothing within maxDist.
	lane, _ = ix.Nearest(Point{X: 50, Y: 80}, 1.0)
	assert.Nil(t, lane)
}

func TestLocator(t *testing.T) {
	net := loadTestNet(t)
	// Identity-like transform: top-left at origin, no margin, height 100.
	xf := NewTransformer(Point{X: 0, Y: 0}, Point{X: 200, Y: 100}, 0)
	loc := NewLocator(net, xf, 0.2)

	// Simulator Y is flipped against network Y.
	lane, err := loc.LaneAt(Point{X: 50, Y: 100})
	require.NoError(t, err)
	assert.Equal(t, "east_0", lane.ID)

	_, err = loc.LaneAt(Point{X: 50, Y: 50})
	require.Error(t, err)
	assert.ErrorContains(t, err, "nearest lane")
}
