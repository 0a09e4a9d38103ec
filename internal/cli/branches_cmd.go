package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/branches"
)

// newBranchesCmd creates the 'branches' command.
func newBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches <url|slug>",
		Short: "List a novel's translation branches",
		Long: `List the translation branches of a novel: branch id, the teams
translating it, and how many chapters each branch covers.

Pass a branch id to 'chapters --branch' or 'download --branch' to pick one.

Examples:
  ranobe-dl branches https://ranobelib.me/ru/book/165329--omniscient-readers-viewpoint`,
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

			infos := branches.Sorted(branches.Aggregate(novel, chapters))
			if len(infos) == 0 {
				fmt.Println("No translation branches found")
				return nil
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.ID,
					info.Name,
					strings.Join(info.TeamNames, ", "),
					strconv.Itoa(info.ChapterCount),
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Name", "Teams", "Chapters"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
