package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zyedidia/generic/mapset"
)

func pts(coords ...[2]float64) []Point {
	out := make([]Point, len(coords))
	for i, c := range coords {
		out[i] = Point{X: c[0], Y: c[1], ID: i}
	}
	return out
}

// TestDBSCAN_SquareAndOutlier: four mutually close points form one cluster,
// the far point is noise.
func TestDBSCAN_SquareAndOutlier(t *testing.T) {
	in := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{10, 10})

	clusters, noise := DBSCAN(in, 1.5, 2)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 4)
	require.Len(t, noise, 1)
	assert.Equal(t, 10.0, noise[0].X)
	assert.Equal(t, 10.0, noise[0].Y)
}

func TestDBSCAN_Empty(t *testing.T) {
	clusters, noise := DBSCAN(nil, 1.5, 2)
	assert.Empty(t, clusters)
	assert.Empty(t, noise)
}

// TestDBSCAN_HeightTrick: two planar-adjacent rows on different levels must
// not merge once Z is scaled.
func TestDBSCAN_HeightTrick(t *testing.T) {
	var in []Point
	for x := 0; x < 6; x++ {
		in = append(in, Point{X: float64(x), Y: 0, Z: 0, ID: x})
		in = append(in, Point{X: float64(x), Y: 1, Z: 1000, ID: 10 + x})
	}

	clusters, noise := DBSCAN(in, 1.5, 2)

	require.Len(t, clusters, 2)
	assert.Empty(t, noise)
	for _, c := range clusters {
		z := c[0].Z
		for _, p := range c {
			assert.Equal(t, z, p.Z, "cluster mixes levels")
		}
	}
}

func TestDBSCAN_BorderPointJoins(t *testing.T) {
	// (0,0),(1,0),(2,0) are dense; (3.4,0) has only one neighbour but is
	// within reach of a core point.
	in := pts([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{3.4, 0})

	clusters, noise := DBSCAN(in, 1.5, 2)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 4)
	assert.Empty(t, noise)
}

func TestDBSCAN_OrderIndependent(t *testing.T) {
	a := pts([2]float64{5, 5}, [2]float64{0, 0}, [2]float64{5, 6}, [2]float64{0, 1}, [2]float64{6, 5}, [2]float64{1, 0})
	b := make([]Point, len(a))
	for i := range a {
		b[len(a)-1-i] = a[i]
	}

	ca, na := DBSCAN(a, 1.5, 1)
	cb, nb := DBSCAN(b, 1.5, 1)

	assert.Equal(t, ca, cb)
	assert.Equal(t, na, nb)
}

type xy struct{ x, y int }

func grid4(p xy) []xy {
	return []xy{{p.x + 1, p.y}, {p.x - 1, p.y}, {p.x, p.y + 1}, {p.x, p.y - 1}}
}

func TestFloodFill(t *testing.T) {
	set := mapset.New[xy]()
	for _, p := range []xy{{0, 0}, {1, 0}, {2, 0}, {5, 5}, {5, 6}} {
		set.Put(p)
	}

	comp := FloodFill(set, xy{0, 0}, grid4)
	assert.ElementsMatch(t, []xy{{0, 0}, {1, 0}, {2, 0}}, comp)
	assert.Equal(t, xy{0, 0}, comp[0], "start comes first")

	assert.Nil(t, FloodFill(set, xy{9, 9}, grid4))
}

func TestComponents(t *testing.T) {
	in := []xy{{0, 0}, {5, 5}, {1, 0}, {5, 6}, {9, 9}}

	comps := Components(in, grid4)

	require.Len(t, comps, 3)
	assert.ElementsMatch(t, []xy{{0, 0}, {1, 0}}, comps[0])
	assert.ElementsMatch(t, []xy{{5, 5}, {5, 6}}, comps[1])
	assert.Equal(t, []xy{{9, 9}}, comps[2])
}
