package mesh

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property
const (
	FeatureKindBeacon  = "beacon"
	FeatureKindScanner = "scanner"
)

// SortedBeacons returns the distinct beacons of scanners ordered by X, Y, Z
func SortedBeacons(scanners []*Scanner) []Vec3 {
	beacons := UniqueBeacons(scanners).ToSlice()
	slices.SortFunc(beacons, compareVec3)
	return beacons
}

func compareVec3(a, b Vec3) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

// projectXY drops the Z component for planar output
func projectXY(v Vec3) orb.Point {
	return orb.Point{float64(v.X), float64(v.Y)}
}

// BeaconsGeoJSON builds a FeatureCollection with one Point per distinct
// beacon and one per scanner origin, projected onto the XY plane. The Z
// coordinate is kept in the "z" property.
func BeaconsGeoJSON(scanners []*Scanner) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, b := range SortedBeacons(scanners) {
		f := geojson.NewFeature(projectXY(b))
		f.ID = fmt.Sprintf("beacon-%d", i)
		f.Properties["kind"] = FeatureKindBeacon
		f.Properties["z"] = b.Z
		fc.Append(f)
	}

	for _, s := range scanners {
		origin := s.Origin()
		f := geojson.NewFeature(projectXY(origin))
		f.ID = s.Label
		f.Properties["kind"] = FeatureKindScanner
		f.Properties["label"] = s.Label
		f.Properties["z"] = origin.Z
		f.Properties["rotation"] = s.Pose.Rotation.String()
		f.Properties["beacons"] = len(s.Local)
		fc.Append(f)
	}

	return fc
}

// WriteGeoJSON writes BeaconsGeoJSON(scanners) to path
func WriteGeoJSON(path string, scanners []*Scanner) error {
	data, err := BeaconsGeoJSON(scanners).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON file: %w", err)
	}
	return nil
}

// PlanarBounds returns the XY bounding box of all beacons and scanner
// origins, grown by padding on every side.
func PlanarBounds(scanners []*Scanner, padding float64) orb.Bound {
	var points orb.MultiPoint
	for _, s := range scanners {
		points = append(points, projectXY(s.Origin()))
		for _, b := range s.Beacons() {
			points = append(points, projectXY(b))
		}
	}
	if len(points) == 0 {
		return orb.Bound{}.Pad(padding)
	}
	return points.Bound().Pad(padding)
}
