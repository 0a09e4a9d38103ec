package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/branches"
)

// newChaptersCmd creates the 'chapters' command.
func newChaptersCmd() *cobra.Command {
	var branchID string

	cmd := &cobra.Command{
		Use:   "chapters <url|slug>",
		Short: "List a novel's chapters",
		Long: `List the chapters that would be downloaded.

--branch picks the translation: "default" selects one branch per chapter
automatically (preferring long contiguous runs from a single branch), an
explicit id keeps only that branch, and "all" lists every translation of
every chapter.

Examples:
  ranobe-dl chapters https://ranobelib.me/ru/book/165329--omniscient-readers-viewpoint
  ranobe-dl chapters 165329--omniscient-readers-viewpoint --branch 7422`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			novel, chapters, err := fetchNovelAndChapters(client, args[0])
			if err != nil {
				return err
			}

			selections := branches.Filter(chapters, branchArg(branchID))
			if len(selections) == 0 {
				fmt.Println("No chapters found")
				return nil
			}

			rows := make([][]string, 0, len(selections))
			for _, sel := range selections {
				key := sel.Chapter.Key()
				rows = append(rows, []string{key.Volume, key.Number, sel.Chapter.Name, sel.BranchID()})
			}
			fmt.Println(renderTable(
				[]string{"Volume", "Chapter", "Name", "Branch"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight},
			))
			fmt.Printf("%d chapter(s) for %s\n", len(selections), novel.Title())
			return nil
		},
	}

	cmd.Flags().StringVarP(&branchID, "branch", "b", "default", `Branch: "default", "all" or a branch id`)

	return cmd
}

// branchArg maps the user-facing "all" onto the selection layer's
// empty-string convention.
func branchArg(flag string) string {
	if flag == "all" {
		return ""
	}
	return flag
}
