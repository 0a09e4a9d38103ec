package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ranobe-tools/ranobe-dl/internal/auth"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store RanobeLIB credentials",
		Long: `Store an access token (and optionally a refresh token) for
authorized requests. Tokens can be copied from the site's web session;
input is hidden.

The refresh token lets ranobe-dl renew an expired access token on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accessToken, err := readSecret("Access token: ")
			if err != nil {
				return err
			}
			if accessToken == "" {
				return fmt.Errorf("access token must not be empty")
			}
			refreshToken, err := readSecret("Refresh token (optional): ")
			if err != nil {
				return err
			}

			store, err := auth.NewStore("")
			if err != nil {
				return err
			}
			creds := &auth.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}
			if err := store.Save(creds); err != nil {
				return err
			}

			// Confirm the token actually works before declaring success.
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			user, err := client.CurrentUser()
			if err != nil {
				return err
			}
			if user == nil {
				GetLogger().Warnf("Credentials saved, but the token could not be verified.")
				return nil
			}
			fmt.Printf("Logged in as %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewStore("")
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Println("Credentials removed")
			return nil
		},
	}
}

// newWhoamiCmd creates the 'whoami' command.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			user, err := client.CurrentUser()
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("%s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
}

// readSecret reads a line without echoing it when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	// Piped input (scripts, tests): fall back to a plain line read.
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}
