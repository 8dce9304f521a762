package compose

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/spritemill/spritemill/internal/grammar"
)

// Merger is the external imaging capability: stack an ordered list of
// rasters along one axis. A nil Merger models the capability being absent,
// in which case composition is skipped and leaf renders are kept.
type Merger interface {
	Merge(images []image.Image, o grammar.Orientation) (image.Image, error)
}

// DrawMerger merges rasters by pasting them into a fresh RGBA canvas.
// Horizontal stacking sums widths and takes the max height; vertical is the
// transpose.
type DrawMerger struct{}

func (DrawMerger) Merge(images []image.Image, o grammar.Orientation) (image.Image, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}

	var width, height int
	switch o {
	case grammar.OrientHorizontal:
		for _, img := range images {
			b := img.Bounds()
			width += b.Dx()
			if b.Dy() > height {
				height = b.Dy()
			}
		}
	case grammar.OrientVertical:
		for _, img := range images {
			b := img.Bounds()
			height += b.Dy()
			if b.Dx() > width {
				width = b.Dx()
			}
		}
	default:
		return nil, fmt.Errorf("cannot merge with orientation %q", o)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	offset := 0
	for _, img := range images {
		b := img.Bounds()
		var at image.Rectangle
		if o == grammar.OrientHorizontal {
			at = image.Rect(offset, 0, offset+b.Dx(), b.Dy())
			offset += b.Dx()
		} else {
			at = image.Rect(0, offset, b.Dx(), offset+b.Dy())
			offset += b.Dy()
		}
		draw.Draw(out, at, img, b.Min, draw.Src)
	}
	return out, nil
}
