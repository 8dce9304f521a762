package scene

import (
	"github.com/spritemill/spritemill/api"
	"github.com/spritemill/spritemill/internal/grammar"
)

// Rig is a camera rig: a parent empty owning a camera child plus optional
// accessory content (lights) that rotates with it. The first camera child is
// used if the rig owns several.
type Rig struct {
	Parent *Node
	Camera *Node
}

// SheetGroup is one top-level sprite sheet scope: a sheet name plus the
// object parents it covers, in hierarchy child order.
type SheetGroup struct {
	Name    string
	Objects []*Node
}

// Hierarchy is the resolved set of grouping roles the walker consumes.
type Hierarchy struct {
	Output *Node
	Global *Node // nil when no global parent is configured
	Rigs   []*Rig
	Sheets []*SheetGroup
}

// RigFor returns the rig whose parent has the given node ID.
func (h *Hierarchy) RigFor(id string) *Rig {
	for _, r := range h.Rigs {
		if r.Parent.ID == id {
			return r
		}
	}
	return nil
}

// Resolve maps the configured parent names onto the scene and checks the
// hierarchy shape required by the sprite sheet mode. Every failure is
// collected into res; the returned hierarchy is only usable when res stays
// OK.
func Resolve(sc *Scene, set *api.Settings, res *grammar.ValidationResult) *Hierarchy {
	h := &Hierarchy{}

	mode, err := set.Mode()
	if err != nil {
		res.Add("sprite_sheets", "%v", err)
	}

	resolveRigs(sc, set, h, res)
	resolveOutput(sc, set, mode, h, res)

	if set.GlobalParent != "" {
		g, err := sc.Node(set.GlobalParent)
		if err != nil {
			res.Add("global_parent", "%q not found in scene", set.GlobalParent)
		} else {
			h.Global = g
		}
	}

	if set.AngleCount < 1 {
		res.Add("angle_count", "must be a positive integer, got %d", set.AngleCount)
	}
	return h
}

func resolveRigs(sc *Scene, set *api.Settings, h *Hierarchy, res *grammar.ValidationResult) {
	const field = "camera_rigs"

	if len(set.CameraRigs) == 0 {
		res.Add(field, "at least one camera rig must be selected")
		return
	}
	if len(set.CameraRigs) > 4 {
		res.Add(field, "at most four camera rigs are supported, got %d", len(set.CameraRigs))
	}
	for _, name := range set.CameraRigs {
		parent, err := sc.Node(name)
		if err != nil {
			res.Add(field, "%q not found in scene", name)
			continue
		}
		if parent.Kind != KindEmpty {
			res.Add(field, "%q must be an empty", name)
			continue
		}
		cams := sc.ChildrenOfKind(name, KindCamera)
		if len(cams) == 0 {
			res.Add(field, "%q does not have a child camera", name)
			continue
		}
		h.Rigs = append(h.Rigs, &Rig{Parent: parent, Camera: cams[0]})
	}
}

func resolveOutput(sc *Scene, set *api.Settings, mode api.SpriteSheetMode, h *Hierarchy, res *grammar.ValidationResult) {
	const field = "output_parent"

	if set.OutputParent == "" {
		res.Add(field, "output parent must be selected")
		return
	}
	output, err := sc.Node(set.OutputParent)
	if err != nil {
		res.Add(field, "%q not found in scene", set.OutputParent)
		return
	}
	if output.Kind != KindEmpty {
		res.Add(field, "%q must be an empty", output.Name)
		return
	}
	children := sc.Children(output.ID)
	if len(children) == 0 {
		res.Add(field, "%q has no children", output.Name)
		return
	}
	h.Output = output

	switch mode {
	case api.SheetsBySheetParent:
		// Output > sheet parents > object parents.
		for _, sheet := range children {
			if sheet.Kind != KindEmpty {
				res.Add(field, "%q must be an empty", sheet.Name)
				continue
			}
			objects := sc.Children(sheet.ID)
			if len(objects) == 0 {
				res.Add(field, "%q has no children", sheet.Name)
				continue
			}
			if !checkObjects(sc, objects, res) {
				continue
			}
			h.Sheets = append(h.Sheets, &SheetGroup{Name: sheet.Name, Objects: objects})
		}
	case api.SheetsByObjectParent:
		// One sheet per object; the sheet is named after the object so
		// final composites cannot collide.
		if !checkObjects(sc, children, res) {
			return
		}
		for _, obj := range children {
			h.Sheets = append(h.Sheets, &SheetGroup{Name: obj.Name, Objects: []*Node{obj}})
		}
	default:
		// Off and by-output share one sheet holding every object; off simply
		// skips composition later.
		if !checkObjects(sc, children, res) {
			return
		}
		h.Sheets = append(h.Sheets, &SheetGroup{Name: output.Name, Objects: children})
	}
}

// checkObjects verifies every object parent owns at least one renderable
// child.
func checkObjects(sc *Scene, objects []*Node, res *grammar.ValidationResult) bool {
	ok := true
	for _, obj := range objects {
		if len(sc.Children(obj.ID)) == 0 {
			res.Add("output_parent", "object parent %q has no children", obj.Name)
			ok = false
		}
	}
	return ok
}
