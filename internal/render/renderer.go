package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/spritemill/spritemill/internal/scene"
	"github.com/spritemill/spritemill/internal/walk"
)

// Renderer executes one job at a time: stage scene state, invoke the render
// primitive, persist the leaf raster, restore. Side effects are job-local
// and fully reversible; a later job never observes partial state left by an
// earlier one.
type Renderer struct {
	fs   billy.Filesystem
	sc   *scene.Scene
	h    *scene.Hierarchy
	prim Primitive
}

// NewRenderer wires a renderer over the output filesystem.
func NewRenderer(fs billy.Filesystem, sc *scene.Scene, h *scene.Hierarchy, prim Primitive) *Renderer {
	return &Renderer{fs: fs, sc: sc, h: h, prim: prim}
}

// RenderJob runs a single job end to end. The pre-job scene snapshot is
// restored on every return path. Cancellation is detected between steps,
// never mid-primitive-call, and a cancelled job writes no leaf image.
func (r *Renderer) RenderJob(ctx context.Context, job *walk.Job) error {
	snap := r.sc.Snapshot()
	defer r.sc.Restore(snap)

	if err := r.stage(job); err != nil {
		return fmt.Errorf("stage job %s: %w", job.Tuple(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := r.prim.Render(ctx, r.sc)
	if err != nil {
		return fmt.Errorf("render job %s: %w", job.Tuple(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode job %s: %w", job.Tuple(), err)
	}
	if err := r.persist(job.RelPath, buf.Bytes()); err != nil {
		return fmt.Errorf("persist job %s: %w", job.Tuple(), err)
	}
	return nil
}

func (r *Renderer) persist(relPath string, data []byte) error {
	if dir := path.Dir(relPath); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return util.WriteFile(r.fs, relPath, data, 0o644)
}

// stage mutates the arena for one job: frame, rig rotation and placement,
// active camera, track muting, and visibility scoping so only the job's
// object subtree, its rig, and the global content render.
func (r *Renderer) stage(job *walk.Job) error {
	obj, err := r.sc.Node(job.ObjectID)
	if err != nil {
		return fmt.Errorf("object %q: %w", job.ObjectID, err)
	}
	rig := r.h.RigFor(job.CameraID)
	if rig == nil {
		return fmt.Errorf("camera rig %q not resolved", job.CameraID)
	}
	rigParent, err := r.sc.Node(rig.Parent.ID)
	if err != nil {
		return fmt.Errorf("camera rig %q: %w", rig.Parent.ID, err)
	}

	// Frame.
	if job.HasFrame {
		r.sc.Frame = job.Frame
	}

	// Rig: rotate to the job angle and move onto the object so every object
	// is framed identically.
	rigParent.RotationZ = job.AngleDegrees
	rigParent.Location = obj.Location
	r.sc.ActiveCamera = rig.Camera.ID

	// Track muting: only the job's track plays.
	if job.HasTrack {
		for i, t := range obj.Tracks {
			t.Mute = i != job.TrackIdx
		}
	}

	// Visibility: hide everything, then show the object subtree, the rig
	// subtree, and the global content.
	r.sc.Each(func(n *scene.Node) { n.HideRender = true })
	r.showSubtree(job.ObjectID)
	r.showSubtree(rig.Parent.ID)
	if r.h.Global != nil {
		global, err := r.sc.Node(r.h.Global.ID)
		if err == nil {
			global.Location = obj.Location
		}
		r.showSubtree(r.h.Global.ID)
	}
	return nil
}

func (r *Renderer) showSubtree(id string) {
	r.sc.Walk(id, func(n *scene.Node) { n.HideRender = false })
}
