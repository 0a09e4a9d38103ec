package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/branches"
)

// newInfoCmd creates the 'info' command.
func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <url|slug>",
		Short: "Show novel metadata",
		Long: `Show a novel's title, authors, status and chapter count.

Examples:
  ranobe-dl info https://ranobelib.me/ru/book/165329--omniscient-readers-viewpoint
  ranobe-dl info 165329--omniscient-readers-viewpoint`,
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

			fmt.Printf("%s\n", novel.Title())
			if novel.Name != "" && novel.Name != novel.Title() {
				fmt.Printf("  Original title: %s\n", novel.Name)
			}
			fmt.Printf("  Slug:     %s\n", novel.SlugRef())
			if len(novel.Authors) > 0 {
				names := make([]string, 0, len(novel.Authors))
				for _, a := range novel.Authors {
					names = append(names, a.Name)
				}
				fmt.Printf("  Authors:  %s\n", strings.Join(names, ", "))
			}
			if novel.Status != nil {
				fmt.Printf("  Status:   %s\n", novel.Status.Name)
			}
			if len(novel.Genres) > 0 {
				names := make([]string, 0, len(novel.Genres))
				for _, g := range novel.Genres {
					names = append(names, g.Name)
				}
				fmt.Printf("  Genres:   %s\n", strings.Join(names, ", "))
			}
			fmt.Printf("  Chapters: %d\n", branches.UniqueChapterCount(chapters))

			if novel.Summary != "" {
				fmt.Printf("\n%s\n", strings.TrimSpace(novel.Summary))
			}
			return nil
		},
	}
}
