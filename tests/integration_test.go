package tests

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spritemill/spritemill/api"
	"github.com/spritemill/spritemill/internal/compose"
	"github.com/spritemill/spritemill/internal/grammar"
	"github.com/spritemill/spritemill/internal/ledger"
	"github.com/spritemill/spritemill/internal/render"
	"github.com/spritemill/spritemill/internal/run"
	"github.com/spritemill/spritemill/internal/scene"
)

// testFixture bundles the end-to-end state: a scene document loaded from
// JSON, settings loaded from an HCL file, and a controller rendering
// synthetic tiles into an in-memory output filesystem.
type testFixture struct {
	sc   *scene.Scene
	set  *api.Settings
	fs   billy.Filesystem
	ctrl *run.Controller
}

const testSceneDoc = `{
  "scene": {"frame": 1, "active_camera": "Cam", "saved": true},
  "nodes": [
    {"id": "Output", "kind": "empty"},
    {"id": "Hero", "kind": "empty", "parent": "Output",
     "tracks": [
       {"name": "Walk", "strips": [{"start": 1, "end": 2}]},
       {"name": "Idle", "strips": [{"start": 5, "end": 5}]}
     ]},
    {"id": "HeroMesh", "kind": "mesh", "parent": "Hero", "location": [2, 0, 0]},
    {"id": "Crate", "kind": "empty", "parent": "Output"},
    {"id": "CrateMesh", "kind": "mesh", "parent": "Crate"},
    {"id": "Rig", "kind": "empty"},
    {"id": "Cam", "kind": "camera", "parent": "Rig"},
    {"id": "Global", "kind": "empty"},
    {"id": "Floor", "kind": "mesh", "parent": "Global"}
  ]
}`

const testSettingsHCL = `
group_order   = "sheet,object,camera,track,angle,frame"
orientation   = "-,v,h,v,v,h"
sprite_sheets = "by-output"
angle_count   = 2
camera_rigs   = ["Rig"]
output_parent = "Output"
global_parent = "Global"
output_root   = "out"
`

// setup loads the settings from a real HCL file and the scene from its JSON
// document, then wires a controller whose primitive paints each staged
// frame/angle as a distinct solid 4x4 tile.
func setup(t *testing.T) *testFixture {
	t.Helper()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "spritemill.hcl")
	require.NoError(t, os.WriteFile(settingsPath, []byte(testSettingsHCL), 0o644))
	set, err := api.LoadSettings(settingsPath)
	require.NoError(t, err)
	require.Equal(t, 2, set.AngleCount)

	scenePath := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(testSceneDoc), 0o644))
	sc, err := scene.LoadFile(scenePath)
	require.NoError(t, err)

	fs := memfs.New()
	ctrl := &run.Controller{
		Scene:     sc,
		Settings:  set,
		FS:        fs,
		Primitive: stagedTilePrimitive(),
		Merger:    compose.DrawMerger{},
	}
	return &testFixture{sc: sc, set: set, fs: fs, ctrl: ctrl}
}

// stagedTilePrimitive derives the tile color from the staged scene state, so
// re-rendering the same job always produces the same bytes.
func stagedTilePrimitive() render.Primitive {
	return render.Func(func(ctx context.Context, sc *scene.Scene) (image.Image, error) {
		rig, err := sc.Node("Rig")
		if err != nil {
			return nil, err
		}
		c := color.RGBA{
			R: uint8(sc.Frame * 20),
			G: uint8(int(rig.RotationZ) / 4),
			B: 128,
			A: 255,
		}
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				img.Set(x, y, c)
			}
		}
		return img, nil
	})
}

func readAll(t *testing.T, fs billy.Filesystem, p string) []byte {
	t.Helper()
	data, err := util.ReadFile(fs, p)
	require.NoError(t, err)
	return data
}

func TestFullRunProducesSheet(t *testing.T) {
	f := setup(t)
	before := f.sc.Snapshot()

	outcome, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)
	assert.True(t, f.sc.Equal(before), "scene must be restored after the run")

	// Hero: Walk frames merge to 8x4 per angle, Idle stays 4x4; angles
	// stack vertically (Walk 8x8, Idle 4x8), tracks stack to 8x16. Crate
	// stacks its two angles to 4x8. Objects stack vertically: 8x24.
	data := readAll(t, f.fs, "Output.png")
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestRunIsIdempotent(t *testing.T) {
	f := setup(t)
	outcome, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)
	first := readAll(t, f.fs, "Output.png")

	// A second run over the restored scene reproduces the sheet exactly.
	outcome, err = f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)
	second := readAll(t, f.fs, "Output.png")

	assert.True(t, bytes.Equal(first, second), "sheet bytes must be identical across runs")
}

func TestKeepRendersLeavesEverything(t *testing.T) {
	f := setup(t)
	f.set.KeepRenders = true

	outcome, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)

	readAll(t, f.fs, "Output.png")
	readAll(t, f.fs, "Output/Hero/Rig/Walk/000/Output_Hero_Rig_Walk_000_001.png")
	readAll(t, f.fs, "Output/Crate/Rig/Output_Crate_Rig_180.png")
}

func TestCancelledRunCanBeFinishedLater(t *testing.T) {
	f := setup(t)
	led, err := ledger.Open(filepath.Join(t.TempDir(), "spritemill.db"))
	require.NoError(t, err)
	defer func() { _ = led.Close() }()
	f.ctrl.Ledger = led

	// Cancel after four jobs; the partial leaves and the ledger survive.
	ctx, cancel := context.WithCancel(context.Background())
	rendered := 0
	inner := f.ctrl.Primitive
	f.ctrl.Primitive = render.Func(func(ctx context.Context, sc *scene.Scene) (image.Image, error) {
		rendered++
		if rendered > 4 {
			cancel()
		}
		return inner.Render(ctx, sc)
	})

	outcome, err := f.ctrl.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCancelled, outcome)

	info, err := led.LastRun()
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeCancelled, info.Outcome)
	require.Equal(t, uint64(4), info.Completed.GetCardinality())

	// Finishing pass: rebuild the deterministic plan, take the recorded
	// jobs, and reduce just those.
	f.ctrl.Primitive = stagedTilePrimitive()
	w, _, err := f.ctrl.Walker()
	require.NoError(t, err)
	order, orient, res := grammar.Parse(f.set.GroupOrder, f.set.Orientation)
	require.True(t, res.OK())

	var entries []*compose.Entry
	plan := w.Plan()
	for {
		job, ok := plan.Next()
		if !ok {
			break
		}
		if info.Completed.Contains(uint32(job.Index)) {
			entries = append(entries, compose.EntryFromJob(job))
		}
	}
	require.Len(t, entries, 4)

	comp := compose.New(f.fs, compose.DrawMerger{})
	sheets, err := comp.Reduce(entries, order, orient)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Output.png", sheets[0].Path)

	// The four Walk-track renders of Hero: frames horizontal, angles
	// vertical.
	img, err := png.Decode(bytes.NewReader(readAll(t, f.fs, "Output.png")))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestValidationBlocksBeforeAnySideEffect(t *testing.T) {
	f := setup(t)
	f.set.GroupOrder = "sheet,track,object,camera,angle,frame"

	outcome, err := f.ctrl.Run(context.Background())
	require.Equal(t, run.OutcomeBlocked, outcome)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track")

	infos, _ := f.fs.ReadDir("/")
	assert.Empty(t, infos, "a blocked run must not touch the output")
}

func TestByObjectParentSheets(t *testing.T) {
	f := setup(t)
	f.set.SpriteSheets = string(api.SheetsByObjectParent)

	outcome, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)

	// One sheet per object, named after the object.
	readAll(t, f.fs, "Hero.png")
	readAll(t, f.fs, "Crate.png")
	_, err = f.fs.Stat("Output.png")
	assert.Error(t, err)
}

func TestPlanMatchesLedgerPaths(t *testing.T) {
	f := setup(t)
	led, err := ledger.Open(filepath.Join(t.TempDir(), "spritemill.db"))
	require.NoError(t, err)
	defer func() { _ = led.Close() }()
	f.ctrl.Ledger = led

	outcome, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.OutcomeCompleted, outcome)

	info, err := led.LastRun()
	require.NoError(t, err)
	jobs, err := led.Jobs(info.ID)
	require.NoError(t, err)

	w, _, err := f.ctrl.Walker()
	require.NoError(t, err)
	plan := w.Plan()
	for i := 0; ; i++ {
		job, ok := plan.Next()
		if !ok {
			require.Len(t, jobs, i)
			break
		}
		require.Equal(t, job.RelPath, jobs[i].Path, "ledger row %d", i)
		require.Equal(t, job.Index, jobs[i].Index)
	}
}
