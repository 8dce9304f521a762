package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spritemill/spritemill/internal/run"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the deterministic job plan without rendering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, sc, err := loadInputs()
		if err != nil {
			return err
		}
		ctrl := &run.Controller{Scene: sc, Settings: set}
		w, _, err := ctrl.Walker()
		if err != nil {
			return err
		}

		fmt.Printf("Group order: %s\n", set.GroupOrder)
		fmt.Printf("Jobs: %d\n", w.Total())
		plan := w.Plan()
		for {
			job, ok := plan.Next()
			if !ok {
				break
			}
			fmt.Println(job.RelPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
