// Package cluster provides density-based clustering and flood fill over
// point sets. It has no knowledge of maps; callers project their cells into
// Points and back through Point.ID.
//
// Complexity:
//
//   - DBSCAN: O(N·k) with a uniform spatial hash, k = points per neighborhood.
//   - FloodFill / Components: O(N·d), d = neighbors per point.
package cluster

import (
	"cmp"
	"math"
	"slices"
)

// Point is a clustering input. ID is an opaque caller payload carried
// through unchanged.
type Point struct {
	X, Y, Z float64
	ID      int
}

func (p Point) distance(o Point) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func comparePoints(a, b Point) int {
	return cmp.Or(
		cmp.Compare(a.X, b.X),
		cmp.Compare(a.Y, b.Y),
		cmp.Compare(a.Z, b.Z),
		cmp.Compare(a.ID, b.ID),
	)
}

const (
	unvisited = 0
	noise     = -1
)

type bucketKey [3]int64

// spatialHash buckets point indices by epsilon-sized cubes so a
// neighborhood query only inspects the 27 surrounding buckets.
type spatialHash struct {
	size    float64
	buckets map[bucketKey][]int
}

func newSpatialHash(points []Point, size float64) *spatialHash {
	h := &spatialHash{size: size, buckets: make(map[bucketKey][]int)}
	for i, p := range points {
		k := h.key(p)
		h.buckets[k] = append(h.buckets[k], i)
	}
	return h
}

func (h *spatialHash) key(p Point) bucketKey {
	return bucketKey{
		int64(math.Floor(p.X / h.size)),
		int64(math.Floor(p.Y / h.size)),
		int64(math.Floor(p.Z / h.size)),
	}
}

// DBSCAN groups points by density reachability. A point is a core point
// when at least minPoints other points lie within epsilon of it; clusters
// grow from core points and absorb border points; anything unreached is
// noise.
//
// Input order does not matter: points are sorted before clustering, so
// equal point sets always yield the same clusters in the same order, and
// each returned cluster is itself sorted.
func DBSCAN(points []Point, epsilon float64, minPoints int) ([][]Point, []Point) {
	if len(points) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, comparePoints)

	size := epsilon
	if size <= 0 {
		size = 1
	}
	hash := newSpatialHash(sorted, size)

	neighbors := func(i int) []int {
		p := sorted[i]
		k := hash.key(p)
		var out []int
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, j := range hash.buckets[bucketKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if j != i && p.distance(sorted[j]) <= epsilon {
							out = append(out, j)
						}
					}
				}
			}
		}
		return out
	}

	labels := make([]int, len(sorted))
	clusterID := 0
	for i := range sorted {
		if labels[i] != unvisited {
			continue
		}
		nb := neighbors(i)
		if len(nb) < minPoints {
			labels[i] = noise
			continue
		}
		clusterID++
		labels[i] = clusterID

		queue := nb
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == noise {
				labels[j] = clusterID // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = clusterID
			if nbj := neighbors(j); len(nbj) >= minPoints {
				queue = append(queue, nbj...)
			}
		}
	}

	clusters := make([][]Point, clusterID)
	var noisePoints []Point
	for i, l := range labels {
		if l == noise {
			noisePoints = append(noisePoints, sorted[i])
			continue
		}
		clusters[l-1] = append(clusters[l-1], sorted[i])
	}
	return clusters, noisePoints
}
