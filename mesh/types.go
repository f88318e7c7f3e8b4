package mesh

import (
	"fmt"
	"time"
)

// Vec3 is an integer coordinate in a scanner frame.
type Vec3 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// String formats the vector the same way the scanner report does: "x,y,z"
func (v Vec3) String() string {
	return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z)
}

// Scanner is one sensor with its own local frame and the beacons it observed.
//
// Local beacon coordinates never change after parsing. Placement in the
// reference frame is carried by Pose, so world coordinates are always
// Pose.Apply(local) and the origin is Pose.Apply(0,0,0).
type Scanner struct {
	Label     string
	Local     []Vec3
	Distances DistanceIndex
	Pose      Pose
}

// NewScanner builds a scanner at the identity pose and precomputes its
// pairwise distance index.
func NewScanner(label string, beacons []Vec3) *Scanner {
	return &Scanner{
		Label:     label,
		Local:     beacons,
		Distances: NewDistanceIndex(beacons),
		Pose:      IdentityPose(),
	}
}

// Beacon returns beacon i in the scanner's current pose.
func (s *Scanner) Beacon(i int) Vec3 {
	return s.Pose.Apply(s.Local[i])
}

// Beacons returns all beacons in the scanner's current pose.
func (s *Scanner) Beacons() []Vec3 {
	return s.Pose.ApplyAll(s.Local)
}

// Origin returns the scanner position in its current pose.
func (s *Scanner) Origin() Vec3 {
	return s.Pose.Translation
}

// AlignmentConfig controls overlap detection and the convergence loop.
type AlignmentConfig struct {
	MinSharedBeacons    int           `yaml:"minSharedBeacons" json:"minSharedBeacons"`       // Beacons two scanners must share to be merged (default 12)
	MatchTolerance      int           `yaml:"matchTolerance" json:"matchTolerance"`           // Matches subtracted from C(minSharedBeacons, 2)
	ProperRotationsOnly bool          `yaml:"properRotationsOnly" json:"properRotationsOnly"` // Search 24 rotations instead of all 48 signed permutations
	MaxSweeps           int           `yaml:"maxSweeps,omitempty" json:"maxSweeps,omitempty"` // 0 = unbounded (stall detection still applies)
	Timeout             time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`     // 0 = no wall-clock guard
}

// RequiredMatches returns the match count at which two scanners are treated
// as overlapping.
func (c AlignmentConfig) RequiredMatches() int {
	return RequiredPairs(c.MinSharedBeacons, c.MatchTolerance)
}

// Orientations returns the rotation candidates this config searches.
func (c AlignmentConfig) Orientations() []Rotation {
	return Orientations(c.ProperRotationsOnly)
}

// DefaultAlignmentConfig returns the thresholds used for standard scanner reports.
func DefaultAlignmentConfig() AlignmentConfig {
	return AlignmentConfig{
		MinSharedBeacons:    12,
		MatchTolerance:      0,
		ProperRotationsOnly: true,
	}
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	InputTopic    string `yaml:"inputTopic" json:"inputTopic"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// OutputConfig names export files written after a solve. Empty paths are skipped.
type OutputConfig struct {
	GeoJSON string  `yaml:"geojson,omitempty" json:"geojson,omitempty"`
	SVG     string  `yaml:"svg,omitempty" json:"svg,omitempty"`
	PNG     string  `yaml:"png,omitempty" json:"png,omitempty"`
	Padding float64 `yaml:"padding,omitempty" json:"padding,omitempty"` // World units around the rendered bounds (default 100)
}

// Config represents the full configuration file
type Config struct {
	Alignment AlignmentConfig `yaml:"alignment" json:"alignment"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// DefaultConfig returns a config with default alignment settings and no outputs.
func DefaultConfig() *Config {
	return &Config{
		Alignment: DefaultAlignmentConfig(),
		MQTT: MQTTConfig{
			InputTopic:    "beaconmesh/reports",
			PublishPrefix: "beaconmesh",
			ClientID:      "beaconmesh",
		},
		Output: OutputConfig{Padding: 100},
	}
}

// Placement records one successful alignment made by the convergence loop.
type Placement struct {
	Reference string `json:"reference"`
	Mobile    string `json:"mobile"`
	Pose      Pose   `json:"pose"`
	Matches   int    `json:"matches"`
	Sweep     int    `json:"sweep"`
}

// ScannerPlacement is a scanner's final position in the reference frame.
type ScannerPlacement struct {
	Label    string   `json:"label"`
	Origin   Vec3     `json:"origin"`
	Rotation Rotation `json:"rotation"`
	Beacons  int      `json:"beacons"`
}

// Result is the outcome of aligning a full scanner report.
type Result struct {
	RunID        string             `json:"runId"`
	Reference    string             `json:"reference"`
	BeaconCount  int                `json:"beaconCount"`
	MaxManhattan int                `json:"maxManhattan"`
	FarthestPair [2]string          `json:"farthestPair"`
	Scanners     []ScannerPlacement `json:"scanners"`
	Placements   []Placement        `json:"placements"`
	CompletedAt  time.Time          `json:"completedAt"`
}
