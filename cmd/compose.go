package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/spritemill/spritemill/api"
	"github.com/spritemill/spritemill/internal/compose"
	"github.com/spritemill/spritemill/internal/grammar"
	"github.com/spritemill/spritemill/internal/ledger"
	"github.com/spritemill/spritemill/internal/run"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Composite sprite sheets from the last run's completed renders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, sc, err := loadInputs()
		if err != nil {
			return err
		}
		mode, err := set.Mode()
		if err != nil {
			return err
		}
		if mode == api.SheetsOff {
			return fmt.Errorf("sprite sheets are off in settings; nothing to compose")
		}

		led, err := ledger.Open(filepath.Join(set.OutputRoot, "spritemill.db"))
		if err != nil {
			return err
		}
		defer led.Close()

		info, err := led.LastRun()
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no recorded run in %s", set.OutputRoot)
		}
		if err != nil {
			return err
		}
		if info.Completed.IsEmpty() {
			return fmt.Errorf("last run has no completed renders to composite")
		}

		order, orient, res := grammar.Parse(set.GroupOrder, set.Orientation)
		if err := res.Err(); err != nil {
			return err
		}

		ctrl := &run.Controller{Scene: sc, Settings: set}
		w, _, err := ctrl.Walker()
		if err != nil {
			return err
		}

		// The plan is deterministic, so the recorded indexes identify the
		// same jobs the run rendered.
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

		comp := compose.New(osfs.New(set.OutputRoot), compose.DrawMerger{})
		comp.Keep = set.KeepRenders
		sheets, err := comp.Reduce(entries, order, orient)
		if err != nil {
			return err
		}
		for _, s := range sheets {
			fmt.Println(s.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(composeCmd)
}
