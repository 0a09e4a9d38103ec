// Package cli provides the command-line interface for ranobe-dl.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ranobe-tools/ranobe-dl/internal/api"
	"github.com/ranobe-tools/ranobe-dl/internal/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger
)

// Version information - set by main package at startup.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// activeClients tracks API clients so the signal handler can cancel their
// pending waits.
var (
	activeMu      sync.Mutex
	activeClients []*api.Client
)

func registerClient(c *api.Client) {
	activeMu.Lock()
	defer activeMu.Unlock()
	activeClients = append(activeClients, c)
}

func cancelActiveClients() {
	activeMu.Lock()
	defer activeMu.Unlock()
	for _, c := range activeClients {
		c.Cancel()
	}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ranobe-dl",
		Short: "Download novels from RanobeLIB",
		Long: `ranobe-dl ` + Version + ` - Built: ` + BuildTime + `
Downloader for RanobeLIB novels.

Point any command at a novel URL (https://ranobelib.me/ru/book/<slug>)
or at the bare slug. Requests are rate limited to stay inside the site's
90-requests-per-minute window; press Ctrl+C to abort a long download.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				GetLogger().Warnf("Received %v, cancelling...", sig)
				cancelActiveClients()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return finishError(err)
}

// finishError maps a command error to the process outcome. A user
// cancellation already did what the user asked for: report it calmly and
// exit clean instead of dressing it up as a failure.
func finishError(err error) error {
	if api.IsCancelled(err) {
		fmt.Fprintln(os.Stderr, "Operation cancelled")
		return nil
	}
	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newBranchesCmd())
	rootCmd.AddCommand(newChaptersCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return logger
}
