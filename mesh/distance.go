package mesh

// DistanceRecord is the Euclidean distance between beacons I and J (I < J)
// of one scanner.
type DistanceRecord struct {
	I        int
	J        int
	Distance float64
}

// DistanceIndex lists every beacon pair of a scanner in (i, j) order.
// Distances survive rotation and translation unchanged, so the index is
// computed once from local coordinates and never refreshed.
type DistanceIndex []DistanceRecord

// NewDistanceIndex computes the distance for every unordered pair of points
func NewDistanceIndex(points []Vec3) DistanceIndex {
	n := len(points)
	if n < 2 {
		return DistanceIndex{}
	}
	index := make(DistanceIndex, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			index = append(index, DistanceRecord{I: i, J: j, Distance: points[i].Distance(points[j])})
		}
	}
	return index
}

// byDistance groups records by distance value, preserving index order within each group
func (d DistanceIndex) byDistance() map[float64][]DistanceRecord {
	groups := make(map[float64][]DistanceRecord, len(d))
	for _, rec := range d {
		groups[rec.Distance] = append(groups[rec.Distance], rec)
	}
	return groups
}
