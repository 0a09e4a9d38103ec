// Package auth manages RanobeLIB credentials: a token store on disk and
// the OAuth refresh flow used when the API rejects an access token.
package auth

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/ranobe-tools/ranobe-dl/internal/config"
)

// DefaultTokenURL is the RanobeLIB OAuth token endpoint.
const DefaultTokenURL = "https://api.cdnlibs.org/api/auth/oauth/token"

// clientID is the public OAuth client the site's own frontend uses.
const clientID = "1"

// Credentials is what the store persists.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DefaultStorePath returns the default credentials file path,
// ~/.config/ranobe-dl/auth.json.
func DefaultStorePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "auth.json"), nil
}

// Store persists credentials as a JSON file.
type Store struct {
	path string
}

// NewStore creates a store at path; an empty path selects the default
// location.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultStorePath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads stored credentials. A missing file yields empty credentials
// and no error.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Save writes credentials with owner-only permissions.
func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Delete removes the credentials file. Deleting an absent file is not an
// error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// retryLogger bridges retryablehttp's LeveledLogger onto the global zerolog
// logger. Info and Debug stay quiet; retries are noise unless they fail.
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Msgf("token refresh: %s %v", msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Msgf("token refresh: %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// Session performs token refreshes against the OAuth endpoint and keeps the
// store up to date.
type Session struct {
	store      *Store
	tokenURL   string
	httpClient *nethttp.Client
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) SessionOption {
	return func(s *Session) { s.tokenURL = u }
}

// NewSession creates a refresh session backed by the given store. The HTTP
// client retries transient failures on its own; an HTTP 400 (dead refresh
// token) is terminal and not retried.
func NewSession(store *Store, opts ...SessionOption) *Session {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = &retryLogger{}

	s := &Session{
		store:      store,
		tokenURL:   DefaultTokenURL,
		httpClient: retryClient.StandardClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tokenResponse is the OAuth endpoint's answer.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the stored refresh token for a fresh token pair, saves
// the pair, and returns the new access token. ok is false when no refresh
// token is stored, the endpoint declares it dead, or the exchange fails.
func (s *Session) Refresh() (token string, ok bool) {
	creds, err := s.store.Load()
	if err != nil {
		log.Error().Msgf("Cannot load credentials: %v", err)
		return "", false
	}
	if strings.TrimSpace(creds.RefreshToken) == "" {
		log.Warn().Msg("No refresh token stored. Log in again.")
		return "", false
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)
	form.Set("client_id", clientID)

	resp, err := s.httpClient.PostForm(s.tokenURL, form)
	if err != nil {
		log.Error().Msgf("Token refresh request failed: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusBadRequest {
		// The refresh token itself was rejected. Keeping it would just
		// repeat the failure, so drop the stored pair.
		log.Warn().Msg("Refresh token is no longer valid. Log in again.")
		if err := s.store.Delete(); err != nil {
			log.Error().Msgf("Cannot remove stale credentials: %v", err)
		}
		return "", false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Msgf("Token refresh failed: HTTP %d", resp.StatusCode)
		return "", false
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		log.Error().Msgf("Cannot decode token response: %v", err)
		return "", false
	}
	if tr.AccessToken == "" {
		log.Error().Msg("Token response carried no access token.")
		return "", false
	}

	next := &Credentials{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	if err := s.store.Save(next); err != nil {
		log.Error().Msgf("Cannot save refreshed credentials: %v", err)
	}
	return tr.AccessToken, true
}
