package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/download"
	"github.com/ranobe-tools/ranobe-dl/internal/progress"
)

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		branchID      string
		outputDir     string
		cover         bool
		images        bool
		groupVolumes  bool
		addTranslator bool
	)

	cmd := &cobra.Command{
		Use:   "download <url|slug>",
		Short: "Download a novel's chapters",
		Long: `Download a novel: each chapter is saved as a JSON document, with the
cover and embedded images alongside.

--branch works like in 'chapters': "default" picks one translation per
chapter automatically, "all" downloads every translation, an explicit id
sticks to one branch.

Flags override the config file; unset flags fall back to it.

Examples:
  ranobe-dl download https://ranobelib.me/ru/book/165329--omniscient-readers-viewpoint
  ranobe-dl download 165329--omniscient-readers-viewpoint --branch 7422 -o ~/books`,
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

			opts := download.Options{
				BranchID:       branchArg(branchID),
				SiteURL:        cfg.SiteURL,
				DownloadCover:  cfg.Download.DownloadCover,
				DownloadImages: cfg.Download.DownloadImages,
				GroupByVolumes: cfg.Download.GroupByVolumes,
				AddTranslator:  cfg.Download.AddTranslator,
			}
			if cmd.Flags().Changed("cover") {
				opts.DownloadCover = cover
			}
			if cmd.Flags().Changed("images") {
				opts.DownloadImages = images
			}
			if cmd.Flags().Changed("group-volumes") {
				opts.GroupByVolumes = groupVolumes
			}
			if cmd.Flags().Changed("add-translator") {
				opts.AddTranslator = addTranslator
			}

			if outputDir != "" {
				opts.OutputDir = outputDir
			} else {
				opts.OutputDir, err = cfg.SaveDir()
				if err != nil {
					return err
				}
			}

			novel, chapters, err := fetchNovelAndChapters(client, args[0])
			if err != nil {
				return err
			}

			dl, err := download.New(client, progress.NewCLIProgress())
			if err != nil {
				return err
			}
			res, err := dl.Run(novel, chapters, opts)
			if err != nil {
				return err
			}

			fmt.Printf("Saved %d chapter(s) to %s\n", res.Downloaded, res.Dir)
			if res.Failed > 0 {
				GetLogger().Warnf("%d chapter(s) failed; rerun to retry them", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&branchID, "branch", "b", "default", `Branch: "default", "all" or a branch id`)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: save_directory from config)")
	cmd.Flags().BoolVar(&cover, "cover", true, "Download the novel cover")
	cmd.Flags().BoolVar(&images, "images", true, "Download images embedded in chapters")
	cmd.Flags().BoolVar(&groupVolumes, "group-volumes", false, "Write chapters into one directory per volume")
	cmd.Flags().BoolVar(&addTranslator, "add-translator", false, "Record the translating team in each chapter file")

	return cmd
}
