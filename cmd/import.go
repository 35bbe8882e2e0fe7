package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/inkpost/internal/importer"
	"github.com/ziadkadry99/inkpost/internal/progress"
)

var (
	importDir    string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import [pattern...]",
	Short: "Import markdown files with YAML front matter as articles",
	Long: `Imports every markdown file matching the glob patterns (relative to --dir,
** supported; default "**/*.md"). Front matter keys: title, category,
excerpt, status, image, date, show_timeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		fsys := os.DirFS(importDir)
		files, err := importer.Discover(fsys, args...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No markdown files matched."))
			return nil
		}

		imp := importer.New(a.svc, fsys,
			importer.WithLogger(a.log.Named("import")),
			importer.WithReporter(progress.NewReporter("Importing articles")),
			importer.WithDryRun(importDryRun),
		)
		res, err := imp.Import(cmd.Context(), files)
		if err != nil {
			return err
		}

		verb := "Imported"
		if importDryRun {
			verb = "Would import"
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("%s %d article(s)", verb, len(res.Imported))))
		for _, f := range res.Failed {
			fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("✗"), f.Path, f.Err)
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d file(s) failed to import", len(res.Failed))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", ".", "directory the patterns are relative to")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse files without writing articles")
	rootCmd.AddCommand(importCmd)
}
