package cluster

import "github.com/zyedidia/generic/mapset"

// FloodFill returns the connected component of points containing start,
// in breadth-first order. Only members of points are visited; neighbors
// supplies candidate adjacent elements. Returns nil when start is not in
// points.
func FloodFill[T comparable](points mapset.Set[T], start T, neighbors func(T) []T) []T {
	if !points.Has(start) {
		return nil
	}
	seen := mapset.New[T]()
	seen.Put(start)
	queue := []T{start}
	for qi := 0; qi < len(queue); qi++ {
		for _, n := range neighbors(queue[qi]) {
			if !points.Has(n) || seen.Has(n) {
				continue
			}
			seen.Put(n)
			queue = append(queue, n)
		}
	}
	return queue
}

// Components partitions points into connected components. Components are
// returned in the order of their first element in points.
func Components[T comparable](points []T, neighbors func(T) []T) [][]T {
	set := mapset.New[T]()
	for _, p := range points {
		set.Put(p)
	}
	seen := mapset.New[T]()
	var comps [][]T
	for _, p := range points {
		if seen.Has(p) {
			continue
		}
		comp := FloodFill(set, p, neighbors)
		for _, c := range comp {
			seen.Put(c)
		}
		comps = append(comps, comp)
	}
	return comps
}
