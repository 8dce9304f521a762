package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spritemill/spritemill/api"
	"github.com/spritemill/spritemill/internal/scene"
)

var (
	settingsPath string
	scenePath    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "spritemill.hcl", "Path to the settings file")
	rootCmd.PersistentFlags().StringVarP(&scenePath, "scene", "c", "scene.json", "Path to the scene document")
}

var rootCmd = &cobra.Command{
	Use:           "spritemill",
	Short:         "Spritemill: batch sprite rendering and sheet composition",
	Long:          "Spritemill enumerates render jobs from a scene hierarchy and merges the resulting images into sprite sheets.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadInputs reads the settings file and the scene document named by the
// persistent flags.
func loadInputs() (*api.Settings, *scene.Scene, error) {
	set, err := api.LoadSettings(settingsPath)
	if err != nil {
		return nil, nil, err
	}
	sc, err := scene.LoadFile(scenePath)
	if err != nil {
		return nil, nil, err
	}
	return set, sc, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
