package mesh

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCoordinate is returned when a beacon line is not three integers.
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	// ErrNoScanners is returned for a report without any scanner blocks.
	ErrNoScanners = errors.New("no scanners in report")
	// ErrDuplicateLabel is returned when two scanner blocks share a label.
	ErrDuplicateLabel = errors.New("duplicate scanner label")
	// ErrAlignmentFailed is returned when no orientation verifies an overlap the matcher accepted.
	ErrAlignmentFailed = errors.New("alignment failed")
	// ErrDisconnected is returned when a full sweep places no scanner.
	ErrDisconnected = errors.New("overlap graph is disconnected")
	// ErrReportTooLarge is returned when a fetched report exceeds the size cap.
	ErrReportTooLarge = errors.New("report body too large")
	// ErrSweepLimit is returned when the configured sweep budget runs out.
	ErrSweepLimit = errors.New("sweep limit reached")
)

// ParseError describes a report line that could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AlignmentError names the pair of scanners that could not be aligned.
type AlignmentError struct {
	Reference string
	Mobile    string
	Matches   int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%v: %s onto %s (%d matches, no orientation verified)",
		ErrAlignmentFailed, e.Mobile, e.Reference, e.Matches)
}

func (e *AlignmentError) Unwrap() error { return ErrAlignmentFailed }

// DisconnectedError lists the scanners that no placed scanner overlaps.
type DisconnectedError struct {
	Unplaced []string
	Sweep    int
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("%v: sweep %d placed nothing, unplaced: %s",
		ErrDisconnected, e.Sweep, strings.Join(e.Unplaced, ", "))
}

func (e *DisconnectedError) Unwrap() error { return ErrDisconnected }
