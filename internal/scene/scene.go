package scene

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("node not found")

// Kind classifies a scene node.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindMesh
	KindCamera
	KindLight
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindMesh:
		return "mesh"
	case KindCamera:
		return "camera"
	case KindLight:
		return "light"
	}
	return "other"
}

// ParseKind maps a scene-document kind string to a Kind. Unrecognised kinds
// fall back to KindOther so foreign node types pass through untouched.
func ParseKind(s string) Kind {
	switch s {
	case "empty":
		return KindEmpty
	case "mesh":
		return KindMesh
	case "camera":
		return KindCamera
	case "light":
		return KindLight
	}
	return KindOther
}

// Strip is one animation strip on a track.
type Strip struct {
	Start int
	End   int
}

// Track is an NLA-style animation track owned by an object parent.
type Track struct {
	Name   string
	Mute   bool
	Strips []Strip
}

// FrameRange returns the inclusive frame span covered by the track's strips:
// smallest strip start to largest strip end.
func (t *Track) FrameRange() (int, int) {
	if len(t.Strips) == 0 {
		return 0, 0
	}
	start, end := t.Strips[0].Start, t.Strips[0].End
	for _, s := range t.Strips[1:] {
		if s.Start < start {
			start = s.Start
		}
		if s.End > end {
			end = s.End
		}
	}
	return start, end
}

// Node is one entry in the scene arena, addressed by a stable ID. Parent and
// child links are IDs, never pointers, so a snapshot can replace the whole
// arena without chasing back-references.
type Node struct {
	ID         string
	Name       string
	Kind       Kind
	Parent     string
	Children   []string // hierarchy child order
	HideRender bool
	RotationZ  float64 // degrees
	Location   [3]float64
	Tracks     []*Track
}

// Scene is the arena of addressable nodes plus the mutable run state the
// renderer stages per job (current frame, active camera). All job execution
// reads and writes through the arena; restoration replaces the arena with a
// snapshot wholesale.
type Scene struct {
	nodes map[string]*Node
	roots []string

	Frame        int
	ActiveCamera string
	Saved        bool
}

// New returns an empty scene arena.
func New() *Scene {
	return &Scene{nodes: make(map[string]*Node), Saved: true}
}

// AddNode registers a node in the arena and links it under its parent.
// Child order is insertion order, which is hierarchy child order for loaded
// documents. The parent must already be registered; Load inserts every node
// before linking, so document order does not matter there.
func (s *Scene) AddNode(n *Node) error {
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("node %q already registered", n.ID)
	}
	if n.Parent != "" {
		if _, ok := s.nodes[n.Parent]; !ok {
			return fmt.Errorf("node %q: parent %q not registered", n.ID, n.Parent)
		}
	}
	s.nodes[n.ID] = n
	return s.link(n)
}

// link attaches a registered node to its parent's child list, or to the
// roots for parentless nodes. An unresolved parent ID is an error; an
// unlinked node would be invisible to Each and Walk.
func (s *Scene) link(n *Node) error {
	if n.Parent == "" {
		s.roots = append(s.roots, n.ID)
		return nil
	}
	p, ok := s.nodes[n.Parent]
	if !ok {
		return fmt.Errorf("node %q: parent %q not registered", n.ID, n.Parent)
	}
	p.Children = append(p.Children, n.ID)
	return nil
}

// Node returns the node with the given ID.
func (s *Scene) Node(id string) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// Children returns a node's children in hierarchy child order.
func (s *Scene) Children(id string) []*Node {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if child, ok := s.nodes[c]; ok {
			out = append(out, child)
		}
	}
	return out
}

// ChildrenOfKind returns a node's children of the given kind, in hierarchy
// child order.
func (s *Scene) ChildrenOfKind(id string, k Kind) []*Node {
	var out []*Node
	for _, c := range s.Children(id) {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every node in the subtree rooted at id, root first, children
// in hierarchy child order.
func (s *Scene) Walk(id string, fn func(*Node)) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	fn(n)
	for _, c := range n.Children {
		s.Walk(c, fn)
	}
}

// Each visits every node in the arena in deterministic (root-subtree) order.
func (s *Scene) Each(fn func(*Node)) {
	for _, r := range s.roots {
		s.Walk(r, fn)
	}
}

// Len returns the number of nodes in the arena.
func (s *Scene) Len() int { return len(s.nodes) }
