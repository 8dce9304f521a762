package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/spritemill/spritemill/internal/compose"
	"github.com/spritemill/spritemill/internal/ledger"
	"github.com/spritemill/spritemill/internal/render"
	"github.com/spritemill/spritemill/internal/run"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the full job plan and composite sprite sheets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, sc, err := loadInputs()
		if err != nil {
			return err
		}
		if len(set.RenderCommand) == 0 {
			return fmt.Errorf("settings: render_command is required for render")
		}
		if err := os.MkdirAll(set.OutputRoot, 0o755); err != nil {
			return fmt.Errorf("create output root: %w", err)
		}

		led, err := ledger.Open(filepath.Join(set.OutputRoot, "spritemill.db"))
		if err != nil {
			return err
		}
		defer led.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl := &run.Controller{
			Scene:     sc,
			Settings:  set,
			FS:        osfs.New(set.OutputRoot),
			Primitive: &render.CommandPrimitive{Argv: set.RenderCommand},
			Merger:    compose.DrawMerger{},
			Ledger:    led,
			OnProgress: func(p run.Progress) {
				fmt.Printf("[%d/%d] %s\n", p.Index+1, p.Total, p.Path)
			},
			OnNotice: func(msg string) {
				fmt.Println(msg)
			},
		}

		outcome, err := ctrl.Run(ctx)
		if outcome == run.OutcomeBlocked {
			res := ctrl.Validate()
			for _, fe := range res.Errors {
				fmt.Printf("* %s: %s\n", fe.Field, fe.Msg)
			}
		}
		fmt.Printf("Run %s.\n", outcome)
		return err
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
