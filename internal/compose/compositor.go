package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"path"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/spritemill/spritemill/internal/grammar"
	"github.com/spritemill/spritemill/internal/walk"
)

// Entry is one image the reduction is tracking: its on-disk path plus the
// per-axis segments and ordinals it still carries. Each processed position
// strips one segment.
type Entry struct {
	Path    string
	present [grammar.NumAxes]bool
	seg     [grammar.NumAxes]string
	rank    [grammar.NumAxes]int
}

// EntryFromJob builds the reduction entry for a completed leaf job.
func EntryFromJob(job *walk.Job) *Entry {
	e := &Entry{Path: job.RelPath}
	for a := grammar.Axis(0); a < grammar.NumAxes; a++ {
		if s, ok := job.Seg(a); ok {
			e.present[a] = true
			e.seg[a] = s
			e.rank[a] = job.Rank(a)
		}
	}
	return e
}

// pathWithout rebuilds the entry's path after stripping one axis segment.
func (e *Entry) pathWithout(order grammar.GroupOrder, strip grammar.Axis) string {
	segs := make([]string, 0, grammar.NumAxes)
	for _, a := range order {
		if a != strip && e.present[a] {
			segs = append(segs, e.seg[a])
		}
	}
	return grammar.LeafPath(segs)
}

// key identifies an entry's partition at a position: equality of every
// present axis value except the one being reduced.
func (e *Entry) key(strip grammar.Axis) string {
	var b strings.Builder
	for a := grammar.Axis(0); a < grammar.NumAxes; a++ {
		if a == strip || !e.present[a] {
			continue
		}
		b.WriteString(a.String())
		b.WriteByte('=')
		b.WriteString(e.seg[a])
		b.WriteByte('\x00')
	}
	return b.String()
}

// Comparator orders two sibling entries along the axis being merged.
type Comparator func(a, b *Entry, axis grammar.Axis) bool

// Compositor reduces leaf images into sprite sheets by repeatedly merging
// siblings, innermost group-order position first. The sheet position is
// never merged.
type Compositor struct {
	fs     billy.Filesystem
	merger Merger

	// Keep leaves and intermediates on disk instead of deleting them as
	// they are consumed.
	Keep bool
	// Less orders partition siblings; the default is ordinal rank (numeric
	// ascending for angle/frame, hierarchy child order otherwise).
	Less Comparator
	// Checkpoint runs between partitions; returning an error aborts the
	// reduction (cooperative cancellation).
	Checkpoint func() error
}

// New builds a compositor over the output filesystem.
func New(fs billy.Filesystem, merger Merger) *Compositor {
	return &Compositor{
		fs:     fs,
		merger: merger,
		Less:   func(a, b *Entry, axis grammar.Axis) bool { return a.rank[axis] < b.rank[axis] },
	}
}

// Reduce folds the entries level by level and returns the final sheet
// entries, one per distinct sheet value. Positions are processed from the
// innermost to position 1; position 0 (sheet) terminates the reduction.
func (c *Compositor) Reduce(entries []*Entry, order grammar.GroupOrder, orient grammar.OrientationVector) ([]*Entry, error) {
	for pos := grammar.NumAxes - 1; pos >= 1; pos-- {
		var err error
		entries, err = c.reduceAt(entries, order, order[pos], orient[pos])
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// reduceAt collapses one axis: partition by all other axis values, merge
// each partition along the orientation, rename singletons.
func (c *Compositor) reduceAt(entries []*Entry, order grammar.GroupOrder, axis grammar.Axis, o grammar.Orientation) ([]*Entry, error) {
	groups := make(map[string][]*Entry)
	var keys []string // first-seen order keeps the reduction deterministic
	var passthrough []*Entry

	for _, e := range entries {
		if !e.present[axis] {
			// Absent segment (trackless object at the track or frame
			// position): nothing to strip, the entry passes through.
			passthrough = append(passthrough, e)
			continue
		}
		k := e.key(axis)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}

	out := passthrough
	for _, k := range keys {
		if c.Checkpoint != nil {
			if err := c.Checkpoint(); err != nil {
				return nil, err
			}
		}
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool { return c.Less(group[i], group[j], axis) })

		merged, err := c.mergeGroup(group, order, axis, o)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

func (c *Compositor) mergeGroup(group []*Entry, order grammar.GroupOrder, axis grammar.Axis, o grammar.Orientation) (*Entry, error) {
	first := group[0]
	result := &Entry{
		Path:    first.pathWithout(order, axis),
		present: first.present,
		seg:     first.seg,
		rank:    first.rank,
	}
	result.present[axis] = false
	result.seg[axis] = ""
	result.rank[axis] = 0

	if len(group) == 1 {
		// No-op merge: the image just sheds the axis segment.
		if err := c.relocate(first.Path, result.Path); err != nil {
			return nil, fmt.Errorf("collapse %s: %w", first.Path, err)
		}
		return result, nil
	}

	images := make([]image.Image, len(group))
	for i, e := range group {
		img, err := c.readImage(e.Path)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	img, err := c.merger.Merge(images, o)
	if err != nil {
		return nil, fmt.Errorf("merge %s siblings of %s: %w", axis, result.Path, err)
	}
	if err := c.writeImage(result.Path, img); err != nil {
		return nil, err
	}
	if !c.Keep {
		for _, e := range group {
			if err := c.fs.Remove(e.Path); err != nil {
				return nil, fmt.Errorf("remove %s: %w", e.Path, err)
			}
		}
		c.removeEmptyDir(path.Dir(first.Path))
	}
	return result, nil
}

// relocate moves (or, when keeping individual renders, copies) an image to
// its collapsed path.
func (c *Compositor) relocate(from, to string) error {
	if from == to {
		return nil
	}
	if err := c.mkdirFor(to); err != nil {
		return err
	}
	if c.Keep {
		data, err := util.ReadFile(c.fs, from)
		if err != nil {
			return err
		}
		return util.WriteFile(c.fs, to, data, 0o644)
	}
	if err := c.fs.Rename(from, to); err != nil {
		return err
	}
	c.removeEmptyDir(path.Dir(from))
	return nil
}

func (c *Compositor) readImage(p string) (image.Image, error) {
	data, err := util.ReadFile(c.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return img, nil
}

func (c *Compositor) writeImage(p string, img image.Image) error {
	if err := c.mkdirFor(p); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := util.WriteFile(c.fs, p, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (c *Compositor) mkdirFor(p string) error {
	if dir := path.Dir(p); dir != "." {
		return c.fs.MkdirAll(dir, 0o755)
	}
	return nil
}

// removeEmptyDir removes a directory consumed by a merge. A directory still
// holding files (user artifacts) is left in place.
func (c *Compositor) removeEmptyDir(dir string) {
	if dir == "." || dir == "/" || dir == "" {
		return
	}
	entries, err := c.fs.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		if err == nil {
			log.Printf("compose: %s still contains files, not removed", dir)
		}
		return
	}
	_ = c.fs.Remove(dir)
}
