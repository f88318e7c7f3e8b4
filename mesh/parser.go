package mesh

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseScannerFile reads and parses a scanner report file
func ParseScannerFile(path string) ([]*Scanner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseScanners(data)
}

// ParseScanners parses a scanner report: blocks separated by blank lines,
// each starting with a label line followed by "x,y,z" beacon lines.
func ParseScanners(data []byte) ([]*Scanner, error) {
	var (
		scanners []*Scanner
		label    string
		beacons  []Vec3
		inBlock  bool
		lineNo   int
	)
	seen := make(map[string]bool)

	flush := func() error {
		if !inBlock {
			return nil
		}
		if seen[label] {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		seen[label] = true
		scanners = append(scanners, NewScanner(label, beacons))
		label, beacons, inBlock = "", nil, false
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		if !inBlock {
			label, inBlock = line, true
			continue
		}

		v, err := parseCoordinate(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		beacons = append(beacons, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(scanners) == 0 {
		return nil, ErrNoScanners
	}
	return scanners, nil
}

// parseCoordinate parses "x,y,z" into a Vec3
func parseCoordinate(line string) (Vec3, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("%w: want 3 values, got %d", ErrMalformedCoordinate, len(parts))
	}
	var xyz [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Vec3{}, fmt.Errorf("%w: %v", ErrMalformedCoordinate, err)
		}
		xyz[i] = n
	}
	return Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// FormatScanners writes scanners back in report format using their local
// coordinates, so ParseScanners(FormatScanners(s)) reproduces s.
func FormatScanners(scanners []*Scanner) []byte {
	var buf bytes.Buffer
	for i, s := range scanners {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(s.Label)
		buf.WriteByte('\n')
		for _, b := range s.Local {
			buf.WriteString(b.String())
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// ReportSummary provides a summary of a parsed report
type ReportSummary struct {
	Scanners     int
	TotalBeacons int
	MinBeacons   int
	MaxBeacons   int
	Labels       []string
}

// Summarize extracts key counts from a parsed report
func Summarize(scanners []*Scanner) ReportSummary {
	summary := ReportSummary{Scanners: len(scanners)}
	for i, s := range scanners {
		n := len(s.Local)
		summary.TotalBeacons += n
		if i == 0 || n < summary.MinBeacons {
			summary.MinBeacons = n
		}
		if n > summary.MaxBeacons {
			summary.MaxBeacons = n
		}
		summary.Labels = append(summary.Labels, s.Label)
	}
	return summary
}
