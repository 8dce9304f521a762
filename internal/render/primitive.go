package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"

	"github.com/spritemill/spritemill/internal/scene"
)

// Primitive is the external render call: given a fully staged scene state it
// produces one raster, or a render failure. The engine never assumes
// anything about how the raster is produced.
type Primitive interface {
	Render(ctx context.Context, sc *scene.Scene) (image.Image, error)
}

// Func adapts a plain function to Primitive.
type Func func(ctx context.Context, sc *scene.Scene) (image.Image, error)

func (f Func) Render(ctx context.Context, sc *scene.Scene) (image.Image, error) {
	return f(ctx, sc)
}

// CommandPrimitive invokes an external renderer process per job. The staged
// scene state is written to the process's stdin as JSON and the process must
// write a PNG raster to stdout.
type CommandPrimitive struct {
	// Argv is the renderer command line; Argv[0] is the executable.
	Argv []string
	// Dir optionally sets the working directory for the renderer.
	Dir string
}

func (c *CommandPrimitive) Render(ctx context.Context, sc *scene.Scene) (image.Image, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("no render command configured")
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = bytes.NewReader(scene.MarshalState(sc))
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		if errOut.Len() > 0 {
			return nil, fmt.Errorf("render command: %w: %s", err, errOut.String())
		}
		return nil, fmt.Errorf("render command: %w", err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode render output: %w", err)
	}
	return img, nil
}
