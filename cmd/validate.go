package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spritemill/spritemill/internal/run"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings and scene hierarchy without rendering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, sc, err := loadInputs()
		if err != nil {
			return err
		}
		ctrl := &run.Controller{Scene: sc, Settings: set}
		res := ctrl.Validate()
		if res.OK() {
			fmt.Println("Settings and scene are valid.")
			return nil
		}
		for _, e := range res.Errors {
			fmt.Printf("* %s: %s\n", e.Field, e.Msg)
		}
		return fmt.Errorf("%d validation error(s)", len(res.Errors))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
