package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/inkpost/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the inkpost configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that picks a storage backend and writes the config file (.inkpost.yml by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard(cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+cfgFile)+
			mutedStyle.Render(fmt.Sprintf(" (backend: %s)", cfg.Backend)))
		fmt.Fprintln(cmd.OutOrStdout(), "Check the connection with `inkpost ping`, then start with `inkpost serve`.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
