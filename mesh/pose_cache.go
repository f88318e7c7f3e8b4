package mesh

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultPoseCachePath is the default path for the solved pose cache
	DefaultPoseCachePath = ".pose-cache.json"

	// PoseCacheMaxAge is how long a saved pose cache is trusted on startup
	PoseCacheMaxAge = 30 * 24 * time.Hour
)

// PoseCache stores solved scanner poses so a later run over the same report
// can skip the search for scanners it has already placed.
type PoseCache struct {
	Reference   string          `json:"reference"`
	Digest      string          `json:"digest"`
	RunID       string          `json:"runId,omitempty"`
	Scanners    map[string]Pose `json:"scanners"`
	LastUpdated int64           `json:"lastUpdated"`
}

// NewPoseCache captures the current poses of scanners
func NewPoseCache(scanners []*Scanner, runID string) *PoseCache {
	cache := &PoseCache{
		Digest:   ReportDigest(scanners),
		RunID:    runID,
		Scanners: make(map[string]Pose, len(scanners)),
	}
	if len(scanners) > 0 {
		cache.Reference = scanners[0].Label
	}
	for _, s := range scanners {
		cache.Scanners[s.Label] = s.Pose
	}
	return cache
}

// LoadPoseCache loads a pose cache. A missing file returns nil, nil.
func LoadPoseCache(path string) (*PoseCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pose cache: %w", err)
	}

	var cache PoseCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing pose cache: %w", err)
	}
	if cache.Scanners == nil {
		cache.Scanners = make(map[string]Pose)
	}
	return &cache, nil
}

// SavePoseCache writes the cache as indented JSON, creating the directory if needed
func SavePoseCache(path string, cache *PoseCache) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating pose cache directory: %w", err)
	}

	cache.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pose cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing pose cache: %w", err)
	}
	return nil
}

// ReportDigest fingerprints the local coordinates of a report
func ReportDigest(scanners []*Scanner) string {
	sum := sha256.Sum256(FormatScanners(scanners))
	return hex.EncodeToString(sum[:])
}

// PosesFor returns the cached poses for scanners other than the reference.
// A cache built from a different report yields nothing.
func (c *PoseCache) PosesFor(scanners []*Scanner) map[string]Pose {
	if c == nil || len(scanners) == 0 || c.Reference != scanners[0].Label {
		return nil
	}
	if c.Digest != ReportDigest(scanners) {
		return nil
	}
	poses := make(map[string]Pose)
	for _, s := range scanners[1:] {
		if p, ok := c.Scanners[s.Label]; ok {
			poses[s.Label] = p
		}
	}
	return poses
}

// NeedsRefresh reports whether the cache is missing or older than maxAge
func (c *PoseCache) NeedsRefresh(maxAge time.Duration) bool {
	if c == nil || c.LastUpdated == 0 {
		return true
	}
	return time.Since(time.Unix(c.LastUpdated, 0)) > maxAge
}
