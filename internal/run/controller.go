// Package run sequences a render run: validate, walk, render every job in
// plan order, then reduce the leaves into sprite sheets. The controller owns
// cancellation and guarantees the full pre-run scene snapshot is restored on
// every exit path.
package run

import (
	"context"
	"errors"
	"fmt"
	"log"

	billy "github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/oj"

	"github.com/spritemill/spritemill/api"
	"github.com/spritemill/spritemill/internal/compose"
	"github.com/spritemill/spritemill/internal/grammar"
	"github.com/spritemill/spritemill/internal/ledger"
	"github.com/spritemill/spritemill/internal/render"
	"github.com/spritemill/spritemill/internal/scene"
	"github.com/spritemill/spritemill/internal/walk"
)

// ErrSceneDirty signals that the host document changed mid-run; it cancels
// the run the same way an interrupt does.
var ErrSceneDirty = errors.New("scene has unsaved changes")

// Outcome classifies how a run ended. Cancellation is not an error and is
// never conflated with success or failure.
type Outcome int

const (
	// OutcomeBlocked: validation failed, nothing was mutated or rendered.
	OutcomeBlocked Outcome = iota
	// OutcomeCompleted: every job rendered and composition finished.
	OutcomeCompleted
	// OutcomeCancelled: interrupted; scene restored, partial leaves kept.
	OutcomeCancelled
	// OutcomeFailed: a render call failed; the run aborted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlocked:
		return "blocked"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

func (o Outcome) ledgerOutcome() string {
	switch o {
	case OutcomeCompleted:
		return ledger.OutcomeCompleted
	case OutcomeCancelled:
		return ledger.OutcomeCancelled
	}
	return ledger.OutcomeFailed
}

// Progress reports one finished job.
type Progress struct {
	Index int
	Total int
	Path  string
}

// Controller wires the engine together. The scene is exclusively owned by
// the controller for the run's duration; settings are read once at run
// start and treated as immutable.
type Controller struct {
	Scene    *scene.Scene
	Settings *api.Settings
	FS       billy.Filesystem

	// Primitive is the external render call.
	Primitive render.Primitive
	// Merger is the external imaging capability; nil means absent, which
	// skips composition and keeps leaf renders.
	Merger compose.Merger
	// Ledger optionally records the run; nil disables recording.
	Ledger *ledger.Ledger

	// OnProgress is called after each rendered job.
	OnProgress func(Progress)
	// OnNotice surfaces non-error conditions (capability absence).
	OnNotice func(string)
	// Dirty reports whether the host document changed mid-run; checked at
	// the same suspension points as cancellation.
	Dirty func() bool
}

// Validate runs the grammar and hierarchy shape checks without touching the
// scene, returning every collected failure.
func (c *Controller) Validate() *grammar.ValidationResult {
	res, _ := c.prepare()
	return res
}

type prepared struct {
	order  grammar.GroupOrder
	orient grammar.OrientationVector
	mode   api.SpriteSheetMode
	h      *scene.Hierarchy
}

func (c *Controller) prepare() (*grammar.ValidationResult, *prepared) {
	order, orient, res := grammar.Parse(c.Settings.GroupOrder, c.Settings.Orientation)
	h := scene.Resolve(c.Scene, c.Settings, res)
	mode, _ := c.Settings.Mode()
	if !c.Scene.Saved {
		res.Add("scene", "the document has unsaved changes")
	}
	return res, &prepared{order: order, orient: orient, mode: mode, h: h}
}

// Walker builds the job walker for the validated settings. Callers must
// check Validate first.
func (c *Controller) Walker() (*walk.Walker, grammar.GroupOrder, error) {
	res, prep := c.prepare()
	if err := res.Err(); err != nil {
		return nil, prep.order, err
	}
	return walk.New(c.Scene, prep.h, prep.order, c.Settings.AngleCount), prep.order, nil
}

// Run executes the full render: every job in plan order, then composition.
// The scene snapshot taken at run start is restored before Run returns,
// whatever the outcome. Partial leaf images from a cancelled or failed run
// stay on disk.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	res, prep := c.prepare()
	if err := res.Err(); err != nil {
		return OutcomeBlocked, err
	}

	snap := c.Scene.Snapshot()
	defer c.Scene.Restore(snap)

	w := walk.New(c.Scene, prep.h, prep.order, c.Settings.AngleCount)
	total := w.Total()
	renderer := render.NewRenderer(c.FS, c.Scene, prep.h, c.Primitive)

	rec, err := c.beginLedger()
	if err != nil {
		return OutcomeFailed, err
	}

	var done []*walk.Job
	plan := w.Plan()
	for {
		if err := c.interrupted(ctx); err != nil {
			return c.finish(rec, OutcomeCancelled, nil)
		}
		job, ok := plan.Next()
		if !ok {
			break
		}
		if err := renderer.RenderJob(ctx, job); err != nil {
			if isCancel(err) {
				return c.finish(rec, OutcomeCancelled, nil)
			}
			c.record(rec, job, ledger.OutcomeFailed)
			return c.finish(rec, OutcomeFailed, err)
		}
		c.record(rec, job, ledger.OutcomeCompleted)
		done = append(done, job)
		if c.OnProgress != nil {
			c.OnProgress(Progress{Index: job.Index, Total: total, Path: job.RelPath})
		}
	}

	outcome, err := c.composite(ctx, prep, done)
	return c.finish(rec, outcome, err)
}

// composite runs the reduction stage, honoring the off mode and capability
// absence.
func (c *Controller) composite(ctx context.Context, prep *prepared, done []*walk.Job) (Outcome, error) {
	if prep.mode == api.SheetsOff {
		return OutcomeCompleted, nil
	}
	if c.Merger == nil {
		// Capability absent: not an error. Leaves are kept regardless of
		// the keep-individual-renders setting.
		c.notice("imaging capability is absent; sprite sheets were not created and individual renders were kept")
		return OutcomeCompleted, nil
	}

	comp := compose.New(c.FS, c.Merger)
	comp.Keep = c.Settings.KeepRenders
	comp.Checkpoint = func() error { return c.interrupted(ctx) }

	entries := make([]*compose.Entry, len(done))
	for i, job := range done {
		entries[i] = compose.EntryFromJob(job)
	}
	if _, err := comp.Reduce(entries, prep.order, prep.orient); err != nil {
		if isCancel(err) {
			return OutcomeCancelled, nil
		}
		return OutcomeFailed, fmt.Errorf("compose: %w", err)
	}
	return OutcomeCompleted, nil
}

// interrupted reports cancellation: an external interrupt or the host
// document turning dirty mid-run.
func (c *Controller) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Dirty != nil && c.Dirty() {
		return ErrSceneDirty
	}
	return nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrSceneDirty)
}

func (c *Controller) notice(msg string) {
	if c.OnNotice != nil {
		c.OnNotice(msg)
		return
	}
	log.Printf("run: %s", msg)
}

func (c *Controller) beginLedger() (*ledger.Run, error) {
	if c.Ledger == nil {
		return nil, nil
	}
	rec, err := c.Ledger.BeginRun(oj.JSON(c.Settings))
	if err != nil {
		return nil, fmt.Errorf("begin run record: %w", err)
	}
	return rec, nil
}

func (c *Controller) record(rec *ledger.Run, job *walk.Job, status string) {
	if rec == nil {
		return
	}
	if err := rec.RecordJob(job, status); err != nil {
		log.Printf("run: record job %d: %v", job.Index, err)
	}
}

func (c *Controller) finish(rec *ledger.Run, outcome Outcome, err error) (Outcome, error) {
	if rec != nil {
		if ferr := rec.Finish(outcome.ledgerOutcome()); ferr != nil {
			log.Printf("run: finish run record: %v", ferr)
		}
	}
	return outcome, err
}
