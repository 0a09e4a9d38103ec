package cli

import (
	"fmt"

	"github.com/ranobe-tools/ranobe-dl/internal/api"
	"github.com/ranobe-tools/ranobe-dl/internal/auth"
	"github.com/ranobe-tools/ranobe-dl/internal/config"
	"github.com/ranobe-tools/ranobe-dl/internal/models"
)

// loadConfig loads the configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newAPIClient creates an API client wired to the credential store: the
// stored access token is installed, a 401 triggers one refresh through the
// OAuth endpoint, and Ctrl+C cancels the client's pending waits. The
// session-scoped cancellation keeps a whole multi-request command dead
// after one interrupt.
func newAPIClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.NewClient(
		api.WithAPIURL(cfg.APIURL),
		api.WithCancelScope(api.CancelPerSession),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	store, err := auth.NewStore("")
	if err != nil {
		return nil, err
	}
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	if creds.AccessToken != "" {
		client.SetToken(creds.AccessToken)
		GetLogger().Debugf("Using credentials from %s", store.Path())
	} else {
		GetLogger().Debugf("No stored credentials; requests are anonymous")
	}

	session := auth.NewSession(store)
	client.SetTokenRefreshFunc(func() bool {
		token, ok := session.Refresh()
		if ok {
			client.SetToken(token)
		}
		return ok
	})

	registerClient(client)
	return client, nil
}

// resolveSlug accepts either a novel URL or a bare slug.
func resolveSlug(arg string) string {
	if slug, ok := api.ExtractSlug(arg); ok {
		return slug
	}
	return arg
}

// fetchNovel loads novel metadata, failing clearly when the slug is
// unknown.
func fetchNovel(client *api.Client, arg string) (*models.Novel, error) {
	slug := resolveSlug(arg)
	novel, err := client.NovelInfo(slug)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch novel info: %w", err)
	}
	if novel.ID == 0 {
		return nil, fmt.Errorf("novel %q not found", slug)
	}
	return novel, nil
}

// fetchNovelAndChapters loads metadata plus the chapter list.
func fetchNovelAndChapters(client *api.Client, arg string) (*models.Novel, []models.Chapter, error) {
	novel, err := fetchNovel(client, arg)
	if err != nil {
		return nil, nil, err
	}
	chapters, err := client.NovelChapters(novel.SlugRef())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch chapter list: %w", err)
	}
	return novel, chapters, nil
}
