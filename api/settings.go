package api

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// SpriteSheetMode selects which hierarchy shape is required and how many
// top-level sprite sheets exist.
type SpriteSheetMode string

const (
	// SheetsOff disables composition entirely; leaf renders are the output.
	SheetsOff SpriteSheetMode = "off"
	// SheetsByOutput builds a single sheet containing every object under
	// the output parent.
	SheetsByOutput SpriteSheetMode = "by-output"
	// SheetsBySheetParent builds one sheet per sprite-sheet child of the
	// output parent.
	SheetsBySheetParent SpriteSheetMode = "by-sheet-parent"
	// SheetsByObjectParent builds one sheet per object child of the output
	// parent.
	SheetsByObjectParent SpriteSheetMode = "by-object-parent"
)

// ParseSpriteSheetMode maps a settings string to a SpriteSheetMode.
func ParseSpriteSheetMode(s string) (SpriteSheetMode, error) {
	switch SpriteSheetMode(s) {
	case SheetsOff, SheetsByOutput, SheetsBySheetParent, SheetsByObjectParent:
		return SpriteSheetMode(s), nil
	case "":
		return SheetsOff, nil
	}
	return "", fmt.Errorf("unknown sprite sheet mode %q", s)
}

// Settings is the full render configuration surface. The host UI (or the
// spritemill.hcl settings file) owns collection; validation happens in the
// engine before any scene mutation.
type Settings struct {
	// GroupOrder is the comma-separated six-token axis order, e.g.
	// "sheet,object,camera,track,angle,frame".
	GroupOrder string `hcl:"group_order,optional"`
	// Orientation is the comma-separated merge direction per group-order
	// position; the first entry is always "-".
	Orientation string `hcl:"orientation,optional"`
	// SpriteSheets selects the sheet grouping mode.
	SpriteSheets string `hcl:"sprite_sheets,optional"`
	// AngleCount is the number of camera angles; angle i rotates the rig by
	// 360/AngleCount*i degrees.
	AngleCount int `hcl:"angle_count,optional"`
	// CameraRigs holds the node IDs of 1-4 camera rig parent empties in
	// the scene. Settings reference nodes by ID; path segments use the
	// node's display name.
	CameraRigs []string `hcl:"camera_rigs"`
	// OutputParent is the node ID of the root empty that owns everything
	// to render.
	OutputParent string `hcl:"output_parent"`
	// GlobalParent is optionally the node ID of an empty whose content
	// appears in every render unchanged.
	GlobalParent string `hcl:"global_parent,optional"`
	// KeepRenders leaves the individual leaf renders on disk after merging.
	KeepRenders bool `hcl:"keep_renders,optional"`
	// OutputRoot is the directory all renders and sheets are written under.
	OutputRoot string `hcl:"output_root"`
	// RenderCommand is the external renderer invocation; it receives the
	// staged scene state on stdin and must write a PNG to stdout.
	RenderCommand []string `hcl:"render_command,optional"`
}

// Mode returns the parsed sprite sheet mode.
func (s *Settings) Mode() (SpriteSheetMode, error) {
	return ParseSpriteSheetMode(s.SpriteSheets)
}

// DefaultSettings mirrors the defaults the host UI presents.
func DefaultSettings() *Settings {
	return &Settings{
		GroupOrder:   "sheet,object,camera,track,angle,frame",
		Orientation:  "-,v,h,v,v,h",
		SpriteSheets: string(SheetsOff),
		AngleCount:   8,
	}
}

// LoadSettings decodes an HCL settings file, applying defaults for omitted
// optional fields.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if err := hclsimple.DecodeFile(path, nil, s); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if s.GroupOrder == "" {
		s.GroupOrder = DefaultSettings().GroupOrder
	}
	if s.Orientation == "" {
		s.Orientation = DefaultSettings().Orientation
	}
	if s.AngleCount == 0 {
		s.AngleCount = DefaultSettings().AngleCount
	}
	return s, nil
}
