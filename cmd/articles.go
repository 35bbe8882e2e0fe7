package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/render"
)

var (
	listStatus  string
	listLimit   int
	showRaw     bool
	deleteForce bool
)

var articlesCmd = &cobra.Command{
	Use:     "articles",
	Aliases: []string{"a"},
	Short:   "List and manage articles",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		articles, err := a.svc.FetchArticles(cmd.Context(), blog.Status(listStatus), listLimit)
		if err != nil {
			return err
		}
		printArticles(cmd.OutOrStdout(), articles)
		return nil
	},
}

func printArticles(w io.Writer, articles []blog.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No articles yet."))
		return
	}
	for _, art := range articles {
		badge := draftBadge.Render("draft")
		if art.Published() {
			badge = publishedBadge.Render("published")
		}
		fmt.Fprintf(w, "%s%s%s %s\n",
			idColumn.Render(art.ID),
			badge,
			art.Title,
			mutedStyle.Render(fmt.Sprintf("(%s, %s)", art.Category, render.FormatDate(art.Date))))
	}
}

var articlesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render an article in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		art, err := a.svc.FetchArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		doc := fmt.Sprintf("# %s\n\n*%s · %s · %s*\n\n%s\n", art.Title, art.Category, render.FormatDate(art.Date), art.ReadTime, art.Content)
		if showRaw {
			_, err := io.WriteString(out, doc)
			return err
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("creating renderer: %w", err)
		}
		rendered, err := r.Render(doc)
		if err != nil {
			return fmt.Errorf("rendering article: %w", err)
		}
		_, err = io.WriteString(out, rendered)
		return err
	},
}

var articlesPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		art, err := a.svc.PublishDraft(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Article published successfully!")+" "+art.Title)
		return nil
	},
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an article and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if !deleteForce {
			prompt := promptui.Prompt{
				Label:     "Are you sure you want to delete this article",
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Cancelled."))
					return nil
				}
				return err
			}
		}

		if err := a.svc.DeleteArticle(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Article deleted successfully"))
		return nil
	},
}

func init() {
	articlesListCmd.Flags().StringVar(&listStatus, "status", "", "only show articles with this status (draft|published)")
	articlesListCmd.Flags().IntVar(&listLimit, "limit", blog.DefaultLimit, "maximum number of articles")
	articlesShowCmd.Flags().BoolVar(&showRaw, "raw", false, "print markdown without styling")
	articlesDeleteCmd.Flags().BoolVarP(&deleteForce, "yes", "y", false, "skip the confirmation prompt")

	articlesCmd.AddCommand(articlesListCmd, articlesShowCmd, articlesPublishCmd, articlesDeleteCmd)
	rootCmd.AddCommand(articlesCmd)
}
