package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Inspect and initialize the ranobe-dl configuration file.`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigInitCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfgFile
			if path == "" {
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}

			fmt.Printf("Config file: %s\n\n", path)
			fmt.Printf("api_url          = %s\n", cfg.APIURL)
			fmt.Printf("site_url         = %s\n", cfg.SiteURL)
			fmt.Printf("save_directory   = %s\n", cfg.Download.SaveDirectory)
			fmt.Printf("download_cover   = %t\n", cfg.Download.DownloadCover)
			fmt.Printf("download_images  = %t\n", cfg.Download.DownloadImages)
			fmt.Printf("group_by_volumes = %t\n", cfg.Download.GroupByVolumes)
			fmt.Printf("add_translator   = %t\n", cfg.Download.AddTranslator)
			return nil
		},
	}
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Long: `Write the default configuration to the config path so it can be
edited. Honors --config; an existing file is not overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}

			// Overwriting would silently discard user edits; refuse.
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			if err := config.Save(config.New(), path); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	}
}
