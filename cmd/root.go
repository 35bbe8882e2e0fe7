package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/inkpost/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "inkpost",
	Short: "A small blog with a Supabase backend",
	Long: `Inkpost serves a blog with featured posts, categories, search and
comments, plus a studio for writing and publishing articles. Articles
live in Supabase (PostgREST), a local SQLite file or Postgres.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
