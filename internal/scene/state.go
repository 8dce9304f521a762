package scene

import "github.com/ohler55/ojg/oj"

// MarshalState serializes the staged render state for an external render
// primitive: current frame, active camera, and the per-node visibility,
// rotation and location the renderer needs to reproduce the scene. The
// output is deterministic (arena traversal order).
func MarshalState(sc *Scene) []byte {
	nodes := make([]any, 0, sc.Len())
	sc.Each(func(n *Node) {
		entry := map[string]any{
			"id":          n.ID,
			"hide_render": n.HideRender,
			"rotation_z":  n.RotationZ,
			"location":    []any{n.Location[0], n.Location[1], n.Location[2]},
		}
		if len(n.Tracks) > 0 {
			mutes := make([]any, 0, len(n.Tracks))
			for _, t := range n.Tracks {
				mutes = append(mutes, map[string]any{"name": t.Name, "mute": t.Mute})
			}
			entry["tracks"] = mutes
		}
		nodes = append(nodes, entry)
	})
	state := map[string]any{
		"frame":         sc.Frame,
		"active_camera": sc.ActiveCamera,
		"nodes":         nodes,
	}
	return []byte(oj.JSON(state))
}
