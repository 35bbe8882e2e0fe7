package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingRetries int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		retries := a.cfg.Connect.Retries
		if cmd.Flags().Changed("retries") {
			retries = pingRetries
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Backend:"), a.cfg.Backend)

		start := time.Now()
		if err := a.svc.CheckConnection(cmd.Context(), retries); err != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ connection failed"))
			return err
		}
		fmt.Fprintln(out, successStyle.Render("✓ connected")+
			mutedStyle.Render(fmt.Sprintf(" in %s", time.Since(start).Round(time.Millisecond))))
		return nil
	},
}

func init() {
	pingCmd.Flags().IntVar(&pingRetries, "retries", 3, "connection attempts (overrides connect.retries)")
	rootCmd.AddCommand(pingCmd)
}
