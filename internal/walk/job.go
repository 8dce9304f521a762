package walk

import (
	"fmt"
	"strings"

	"github.com/spritemill/spritemill/internal/grammar"
)

// Job is one fully specified unit of render work: one concrete value per
// axis plus the resolved scene identifiers needed to stage it. Jobs are
// created by the walker, consumed exactly once by the renderer, and never
// mutated.
type Job struct {
	// Index is the job's position in the plan sequence, starting at 0.
	Index int

	Sheet    string
	SheetIdx int

	ObjectID   string
	ObjectName string
	ObjectIdx  int

	CameraID   string
	CameraName string
	CameraIdx  int

	Angle        int
	AngleDegrees float64

	Track    string
	TrackIdx int
	HasTrack bool

	Frame    int
	HasFrame bool

	// RelPath is the leaf image path relative to the output root, built
	// from the axis segments in group order.
	RelPath string
}

// Seg returns the path segment for the given axis, and whether the segment
// is present. Track and frame segments are absent for trackless objects.
func (j *Job) Seg(a grammar.Axis) (string, bool) {
	switch a {
	case grammar.AxisSheet:
		return j.Sheet, true
	case grammar.AxisObject:
		return j.ObjectName, true
	case grammar.AxisCamera:
		return j.CameraName, true
	case grammar.AxisAngle:
		return fmt.Sprintf("%03d", int(j.AngleDegrees)), true
	case grammar.AxisTrack:
		return j.Track, j.HasTrack
	case grammar.AxisFrame:
		return fmt.Sprintf("%03d", j.Frame), j.HasFrame
	}
	return "", false
}

// Rank returns the job's ordinal along the given axis: numeric value for
// angle and frame, hierarchy child order for the rest. The compositor sorts
// partition siblings by this.
func (j *Job) Rank(a grammar.Axis) int {
	switch a {
	case grammar.AxisSheet:
		return j.SheetIdx
	case grammar.AxisObject:
		return j.ObjectIdx
	case grammar.AxisCamera:
		return j.CameraIdx
	case grammar.AxisAngle:
		return j.Angle
	case grammar.AxisTrack:
		return j.TrackIdx
	case grammar.AxisFrame:
		return j.Frame
	}
	return 0
}

// Segments returns the present path segments in group order.
func (j *Job) Segments(order grammar.GroupOrder) []string {
	segs := make([]string, 0, grammar.NumAxes)
	for _, a := range order {
		if s, ok := j.Seg(a); ok {
			segs = append(segs, s)
		}
	}
	return segs
}

// Tuple renders the job's full axis tuple for error reporting.
func (j *Job) Tuple() string {
	parts := []string{
		"sheet=" + j.Sheet,
		"object=" + j.ObjectName,
		"camera=" + j.CameraName,
		fmt.Sprintf("angle=%d", j.Angle),
	}
	if j.HasTrack {
		parts = append(parts, "track="+j.Track, fmt.Sprintf("frame=%d", j.Frame))
	}
	return strings.Join(parts, " ")
}
