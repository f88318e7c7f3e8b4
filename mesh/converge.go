package mesh

import (
	"context"
	"fmt"
	"log"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Converger folds scanners into the frame of the first scanner, one
// verified alignment at a time.
//
// Scanner 0 starts placed. Each sweep tries every (placed, unplaced) pair;
// an unplaced scanner whose distance signature overlaps a placed one is
// aligned onto it and becomes placed. Pairs found not to overlap are
// remembered, since their distance indexes never change.
type Converger struct {
	scanners     []*Scanner
	config       AlignmentConfig
	orientations []Rotation
	required     int

	placed     mapset.Set[int]
	order      []int
	rejected   mapset.Set[[2]int]
	placements []Placement
	sweeps     int
}

// NewConverger prepares a convergence loop over scanners. The scanners are
// shared, not copied: placing a scanner assigns its Pose.
func NewConverger(scanners []*Scanner, config AlignmentConfig) *Converger {
	c := &Converger{
		scanners:     scanners,
		config:       config,
		orientations: config.Orientations(),
		required:     config.RequiredMatches(),
		placed:       mapset.NewThreadUnsafeSet[int](),
		rejected:     mapset.NewThreadUnsafeSet[[2]int](),
	}
	if len(scanners) > 0 {
		c.placed.Add(0)
		c.order = append(c.order, 0)
	}
	return c
}

// Seed marks scanners as placed at previously computed poses. A pose is
// taken only when its rotation is one the config searches and it verifies
// against an overlapping placed scanner. Passes repeat until one accepts
// nothing, so seeds may chain off each other. Labels that are unknown or
// already placed are ignored. Returns the number seeded.
func (c *Converger) Seed(poses map[string]Pose) int {
	seeded := 0
	for progress := len(poses) > 0; progress; {
		progress = false
		for i, s := range c.scanners {
			if c.placed.Contains(i) {
				continue
			}
			pose, ok := poses[s.Label]
			if !ok || !slices.Contains(c.orientations, pose.Rotation) {
				continue
			}
			if !c.seedVerifies(i, pose) {
				continue
			}
			s.Pose = pose
			c.place(i)
			seeded++
			progress = true
		}
	}
	return seeded
}

// seedVerifies reports whether pose places scanner mobIdx consistently with
// some placed scanner it overlaps.
func (c *Converger) seedVerifies(mobIdx int, pose Pose) bool {
	mobile := c.scanners[mobIdx]
	for _, refIdx := range c.order {
		key := [2]int{refIdx, mobIdx}
		if c.rejected.Contains(key) {
			continue
		}
		ref := c.scanners[refIdx]
		matches := MatchDistances(ref.Distances, mobile.Distances)
		if len(matches) == 0 || !Overlaps(matches, c.required) {
			c.rejected.Add(key)
			continue
		}
		if VerifyPose(ref, mobile, pose, matches) {
			return true
		}
	}
	return false
}

// Run sweeps until every scanner is placed. It returns a *DisconnectedError
// when a sweep makes no progress, an *AlignmentError when an accepted
// overlap cannot be verified, ErrSweepLimit when the configured budget runs
// out, and the context error on cancellation. Calling Run after every
// scanner is placed does nothing.
func (c *Converger) Run(ctx context.Context) error {
	if len(c.scanners) == 0 {
		return ErrNoScanners
	}

	for !c.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("converging after %d sweeps: %w", c.sweeps, err)
		}
		if c.config.MaxSweeps > 0 && c.sweeps >= c.config.MaxSweeps {
			return fmt.Errorf("%w: %d sweeps, %d of %d scanners placed",
				ErrSweepLimit, c.sweeps, len(c.order), len(c.scanners))
		}
		c.sweeps++

		progress, err := c.sweep(ctx)
		if err != nil {
			return err
		}
		if !progress {
			return &DisconnectedError{Unplaced: c.Unplaced(), Sweep: c.sweeps}
		}
	}
	return nil
}

// sweep tries every (placed, unplaced) pair once. Scanners placed during the
// sweep are used as references later in the same sweep.
func (c *Converger) sweep(ctx context.Context) (bool, error) {
	progress := false
	for p := 0; p < len(c.order); p++ {
		refIdx := c.order[p]
		ref := c.scanners[refIdx]

		for mobIdx, mobile := range c.scanners {
			if c.placed.Contains(mobIdx) {
				continue
			}
			key := [2]int{refIdx, mobIdx}
			if c.rejected.Contains(key) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return progress, fmt.Errorf("converging after %d sweeps: %w", c.sweeps, err)
			}

			matches := MatchDistances(ref.Distances, mobile.Distances)
			if !Overlaps(matches, c.required) {
				c.rejected.Add(key)
				continue
			}

			pose, err := AlignScanner(ref, mobile, matches, c.orientations)
			if err != nil {
				return progress, err
			}
			mobile.Pose = pose
			c.place(mobIdx)
			c.placements = append(c.placements, Placement{
				Reference: ref.Label,
				Mobile:    mobile.Label,
				Pose:      pose,
				Matches:   len(matches),
				Sweep:     c.sweeps,
			})
			progress = true

			log.Printf("Converge: placed %s onto %s rot=%s origin=%s matches=%d (%d/%d placed)",
				mobile.Label, ref.Label, pose.Rotation, pose.Translation, len(matches),
				len(c.order), len(c.scanners))
		}
	}
	return progress, nil
}

func (c *Converger) place(i int) {
	c.placed.Add(i)
	c.order = append(c.order, i)
}

// Done reports whether every scanner is placed
func (c *Converger) Done() bool {
	return len(c.order) == len(c.scanners)
}

// Placed returns the labels of placed scanners in placement order
func (c *Converger) Placed() []string {
	labels := make([]string, len(c.order))
	for i, idx := range c.order {
		labels[i] = c.scanners[idx].Label
	}
	return labels
}

// Unplaced returns the labels of scanners not yet placed, in input order
func (c *Converger) Unplaced() []string {
	var labels []string
	for i, s := range c.scanners {
		if !c.placed.Contains(i) {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// Placements returns the alignments made by Run so far
func (c *Converger) Placements() []Placement {
	out := make([]Placement, len(c.placements))
	copy(out, c.placements)
	return out
}

// Sweeps returns the number of sweeps Run has started
func (c *Converger) Sweeps() int {
	return c.sweeps
}

// Converge places every scanner in the first scanner's frame and summarizes
// the outcome. A non-zero config.Timeout bounds the whole run.
func Converge(ctx context.Context, scanners []*Scanner, config AlignmentConfig) (*Result, error) {
	return ConvergeFrom(ctx, scanners, config, nil)
}

// ConvergeFrom is Converge with scanners pre-placed at the seed poses,
// typically read back from a PoseCache.
func ConvergeFrom(ctx context.Context, scanners []*Scanner, config AlignmentConfig, seed map[string]Pose) (*Result, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	c := NewConverger(scanners, config)
	if len(seed) > 0 {
		n := c.Seed(seed)
		log.Printf("Converge: seeded %d of %d cached poses", n, len(seed))
	}
	if err := c.Run(ctx); err != nil {
		return nil, err
	}
	return BuildResult(scanners, c.Placements()), nil
}
