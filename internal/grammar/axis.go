package grammar

import "path"

// Axis is one of the six fixed grouping dimensions. Jobs are indexed by one
// concrete value per axis, and the compositor reduces along axes in reverse
// group order.
type Axis uint8

const (
	AxisSheet Axis = iota
	AxisObject
	AxisCamera
	AxisTrack
	AxisAngle
	AxisFrame

	NumAxes = 6
)

// axisNone marks "no predecessor constraint" in the axis table.
const axisNone Axis = 0xFF

// axisInfo is the single table driving all per-axis behavior: token spelling,
// ordering constraint, merge sort class, and segment presence rule.
type axisInfo struct {
	token    string
	first    bool // must occupy position 0
	after    Axis // must appear after this axis (axisNone if unconstrained)
	numeric  bool // siblings merge in numeric ascending order
	optional bool // segment may be absent (trackless objects)
}

var axisTable = [NumAxes]axisInfo{
	AxisSheet:  {token: "sheet", first: true, after: axisNone},
	AxisObject: {token: "object", after: AxisSheet},
	AxisCamera: {token: "camera", after: axisNone},
	AxisTrack:  {token: "track", after: AxisObject, optional: true},
	AxisAngle:  {token: "angle", after: axisNone, numeric: true},
	AxisFrame:  {token: "frame", after: AxisTrack, numeric: true, optional: true},
}

func (a Axis) String() string {
	if a >= NumAxes {
		return "invalid"
	}
	return axisTable[a].token
}

// Numeric reports whether siblings along this axis merge in numeric
// ascending order rather than hierarchy child order.
func (a Axis) Numeric() bool { return axisTable[a].numeric }

// Optional reports whether this axis's segment can be absent from a job.
func (a Axis) Optional() bool { return axisTable[a].optional }

// ParseAxis maps a grammar token to its Axis.
func ParseAxis(token string) (Axis, bool) {
	for a := Axis(0); a < NumAxes; a++ {
		if axisTable[a].token == token {
			return a, true
		}
	}
	return 0, false
}

// GroupOrder is a user-specified permutation of all six axes. It defines the
// traversal nesting, the on-disk path nesting, and (reversed) the reduction
// order.
type GroupOrder [NumAxes]Axis

// PositionOf returns the position of the given axis within the order.
func (g GroupOrder) PositionOf(a Axis) int {
	for i, ax := range g {
		if ax == a {
			return i
		}
	}
	return -1
}

// Orientation is the merge direction for one group-order position.
type Orientation uint8

const (
	OrientNone Orientation = iota
	OrientHorizontal
	OrientVertical
)

func (o Orientation) String() string {
	switch o {
	case OrientNone:
		return "-"
	case OrientHorizontal:
		return "h"
	case OrientVertical:
		return "v"
	}
	return "invalid"
}

// OrientationVector holds one merge direction per group-order position.
// The entry at the sheet position is always OrientNone.
type OrientationVector [NumAxes]Orientation

// LeafPath builds the output path for the given ordered segments:
// every segment except the last becomes a folder, and the file name is all
// segments joined with underscores. The last axis never gets its own folder,
// so a fully-collapsed composite sits directly in its parent directory.
func LeafPath(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	name := segs[0]
	for _, s := range segs[1:] {
		name += "_" + s
	}
	parts := make([]string, 0, len(segs))
	parts = append(parts, segs[:len(segs)-1]...)
	parts = append(parts, name+".png")
	return path.Join(parts...)
}
