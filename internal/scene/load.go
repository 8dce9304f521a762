package scene

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Scene document selectors. Documents are JSON exports of the host scene:
//
//	{
//	  "scene": {"frame": 1, "active_camera": "Cam", "saved": true},
//	  "nodes": [
//	    {"id": "...", "name": "...", "kind": "empty", "parent": "",
//	     "hide_render": false, "rotation_z": 0, "location": [0,0,0],
//	     "tracks": [{"name": "Walk", "strips": [{"start": 1, "end": 3}]}]}
//	  ]
//	}
//
// Node order in the document is hierarchy child order and is preserved.
var (
	selNodes = jp.MustParseString("$.nodes[*]")
	selScene = jp.MustParseString("$.scene")
)

// LoadFile reads and parses a scene document from disk.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene document: %w", err)
	}
	sc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse scene document %s: %w", path, err)
	}
	return sc, nil
}

// Load parses a scene document into a fresh arena.
func Load(data []byte) (*Scene, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	sc := New()
	if heads := selScene.Get(doc); len(heads) == 1 {
		head, ok := heads[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scene header must be an object")
		}
		sc.Frame = asInt(head["frame"])
		sc.ActiveCamera = asString(head["active_camera"])
		if v, ok := head["saved"].(bool); ok {
			sc.Saved = v
		}
	}

	// First pass: register every node, so parent references may point
	// anywhere in the document.
	var nodes []*Node
	for i, raw := range selNodes.Get(doc) {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("node %d: not an object", i)
		}
		n, err := parseNode(m)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := sc.nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %d: duplicate id %q", i, n.ID)
		}
		sc.nodes[n.ID] = n
		nodes = append(nodes, n)
	}
	if sc.Len() == 0 {
		return nil, fmt.Errorf("document has no nodes")
	}

	// Second pass: link in document order, which fixes hierarchy child
	// order. A parent ID that matches no node is a document error.
	for _, n := range nodes {
		if err := sc.link(n); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func parseNode(m map[string]any) (*Node, error) {
	id := asString(m["id"])
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}
	n := &Node{
		ID:        id,
		Name:      asString(m["name"]),
		Kind:      ParseKind(asString(m["kind"])),
		Parent:    asString(m["parent"]),
		RotationZ: asFloat(m["rotation_z"]),
	}
	if n.Name == "" {
		n.Name = id
	}
	if v, ok := m["hide_render"].(bool); ok {
		n.HideRender = v
	}
	if loc, ok := m["location"].([]any); ok && len(loc) == 3 {
		for i, v := range loc {
			n.Location[i] = asFloat(v)
		}
	}
	if tracks, ok := m["tracks"].([]any); ok {
		for ti, rawTrack := range tracks {
			tm, ok := rawTrack.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("track %d: not an object", ti)
			}
			t := &Track{Name: asString(tm["name"])}
			if t.Name == "" {
				return nil, fmt.Errorf("track %d: missing name", ti)
			}
			if strips, ok := tm["strips"].([]any); ok {
				for _, rawStrip := range strips {
					sm, ok := rawStrip.(map[string]any)
					if !ok {
						continue
					}
					t.Strips = append(t.Strips, Strip{
						Start: asInt(sm["start"]),
						End:   asInt(sm["end"]),
					})
				}
			}
			if len(t.Strips) == 0 {
				return nil, fmt.Errorf("track %q: no strips", t.Name)
			}
			n.Tracks = append(n.Tracks, t)
		}
	}
	return n, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
