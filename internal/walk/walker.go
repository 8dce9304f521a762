package walk

import (
	"github.com/spritemill/spritemill/internal/grammar"
	"github.com/spritemill/spritemill/internal/scene"
)

// Walker enumerates the concrete value list for each axis and produces the
// job plan as their cross product, nested outer-to-inner exactly per the
// group order. Two walks over an unchanged scene and settings produce
// identical job sequences.
type Walker struct {
	sc         *scene.Scene
	h          *scene.Hierarchy
	order      grammar.GroupOrder
	angleCount int
}

// New builds a walker over a resolved hierarchy. The order and hierarchy
// must already have passed validation.
func New(sc *scene.Scene, h *scene.Hierarchy, order grammar.GroupOrder, angleCount int) *Walker {
	return &Walker{sc: sc, h: h, order: order, angleCount: angleCount}
}

// AngleDegrees returns the rig rotation for an angle index.
func (w *Walker) AngleDegrees(angle int) float64 {
	return 360.0 / float64(w.angleCount) * float64(angle)
}

// Total returns the number of jobs the plan will produce:
// per object, cameras x angles x (1 for trackless, else the sum of each
// track's frame count).
func (w *Walker) Total() int {
	perObjectBase := len(w.h.Rigs) * w.angleCount
	total := 0
	for _, sheet := range w.h.Sheets {
		for _, obj := range sheet.Objects {
			if len(obj.Tracks) == 0 {
				total += perObjectBase
				continue
			}
			frames := 0
			for _, t := range obj.Tracks {
				start, end := t.FrameRange()
				frames += end - start + 1
			}
			total += perObjectBase * frames
		}
	}
	return total
}

// Plan starts a fresh lazy job sequence. The sequence is finite and
// non-restartable; call Plan again for a new walk.
func (w *Walker) Plan() *Plan {
	return &Plan{w: w}
}

// Plan is the lazy job sequence. It advances an index odometer over the
// per-axis value lists, innermost position first, recomputing dependent
// lists (objects from sheet, tracks from object, frames from track) as
// outer positions move. The ordering constraints on the group order
// guarantee each list's dependency is refreshed before the list itself.
type Plan struct {
	w       *Walker
	started bool
	done    bool
	count   int

	// Current index per axis (indexed by Axis, not by position).
	idx [grammar.NumAxes]int

	sheets  []*scene.SheetGroup
	objects []*scene.Node
	rigs    []*scene.Rig
	tracks  []*scene.Track // empty for trackless objects
	frames  []int          // single zero entry for trackless objects
}

// Next returns the next job, or false when the plan is exhausted.
func (p *Plan) Next() (*Job, bool) {
	if p.done {
		return nil, false
	}
	if !p.started {
		p.started = true
		p.refresh()
	} else if !p.advance() {
		p.done = true
		return nil, false
	}
	job := p.emit()
	p.count++
	return job, true
}

// advance increments the odometer innermost-first. Returns false when the
// outermost position wraps, i.e. the plan is exhausted.
func (p *Plan) advance() bool {
	for pos := grammar.NumAxes - 1; pos >= 0; pos-- {
		axis := p.w.order[pos]
		p.idx[axis]++
		if p.idx[axis] < p.listLen(axis) {
			p.refresh()
			return true
		}
		p.idx[axis] = 0
	}
	return false
}

// refresh recomputes every axis value list outer-to-inner per the group
// order, so dependent lists always see their parent's current index.
func (p *Plan) refresh() {
	for _, axis := range p.w.order {
		switch axis {
		case grammar.AxisSheet:
			p.sheets = p.w.h.Sheets
		case grammar.AxisObject:
			p.objects = p.sheets[p.idx[grammar.AxisSheet]].Objects
		case grammar.AxisCamera:
			p.rigs = p.w.h.Rigs
		case grammar.AxisTrack:
			p.tracks = p.objects[p.idx[grammar.AxisObject]].Tracks
		case grammar.AxisFrame:
			if len(p.tracks) == 0 {
				p.frames = p.frames[:0]
				p.frames = append(p.frames, 0)
				break
			}
			start, end := p.tracks[p.idx[grammar.AxisTrack]].FrameRange()
			p.frames = p.frames[:0]
			for f := start; f <= end; f++ {
				p.frames = append(p.frames, f)
			}
		}
	}
}

func (p *Plan) listLen(axis grammar.Axis) int {
	switch axis {
	case grammar.AxisSheet:
		return len(p.sheets)
	case grammar.AxisObject:
		return len(p.objects)
	case grammar.AxisCamera:
		return len(p.rigs)
	case grammar.AxisAngle:
		return p.w.angleCount
	case grammar.AxisTrack:
		if len(p.tracks) == 0 {
			return 1
		}
		return len(p.tracks)
	case grammar.AxisFrame:
		return len(p.frames)
	}
	return 0
}

func (p *Plan) emit() *Job {
	sheet := p.sheets[p.idx[grammar.AxisSheet]]
	obj := p.objects[p.idx[grammar.AxisObject]]
	rig := p.rigs[p.idx[grammar.AxisCamera]]
	angle := p.idx[grammar.AxisAngle]

	job := &Job{
		Index:        p.count,
		Sheet:        sheet.Name,
		SheetIdx:     p.idx[grammar.AxisSheet],
		ObjectID:     obj.ID,
		ObjectName:   obj.Name,
		ObjectIdx:    p.idx[grammar.AxisObject],
		CameraID:     rig.Parent.ID,
		CameraName:   rig.Parent.Name,
		CameraIdx:    p.idx[grammar.AxisCamera],
		Angle:        angle,
		AngleDegrees: p.w.AngleDegrees(angle),
	}
	if len(p.tracks) > 0 {
		job.HasTrack = true
		job.TrackIdx = p.idx[grammar.AxisTrack]
		job.Track = p.tracks[job.TrackIdx].Name
		job.HasFrame = true
		job.Frame = p.frames[p.idx[grammar.AxisFrame]]
	}
	job.RelPath = grammar.LeafPath(job.Segments(p.w.order))
	return job
}
