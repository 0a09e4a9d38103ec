package api

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ranobe-tools/ranobe-dl/internal/cancel"
	"github.com/ranobe-tools/ranobe-dl/internal/http"
	"github.com/ranobe-tools/ranobe-dl/internal/models"
	"github.com/ranobe-tools/ranobe-dl/internal/ratelimit"
)

// Default endpoints for the RanobeLIB API.
const (
	DefaultAPIURL  = "https://api.cdnlibs.org/api/manga/"
	DefaultSiteURL = "https://ranobelib.me"
	defaultAuthMe  = "https://api.cdnlibs.org/api/auth/me"
)

// userAgent mirrors a desktop browser; the API rejects unadorned clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// defaultRetryDelays is the fixed backoff schedule: two quick retries for
// transient blips, then three long ones. Six attempts total including the
// first. Delays at or above longDelayWarn are announced to the user before
// sleeping; shorter ones stay quiet to avoid log spam.
var defaultRetryDelays = []time.Duration{
	3 * time.Second,
	3 * time.Second,
	30 * time.Second,
	30 * time.Second,
	30 * time.Second,
}

const longDelayWarn = 30 * time.Second

// CancelScope selects what a cancellation applies to.
type CancelScope int

const (
	// CancelPerCall clears the token at the start of every request, so a
	// cancellation only aborts the request whose waits are in progress.
	// Callers running a sequence must re-signal to stop queued calls.
	CancelPerCall CancelScope = iota
	// CancelPerSession never clears the token implicitly; once set, every
	// subsequent request fails with ErrCancelled until the caller clears it.
	CancelPerSession
)

// emptyResult is what silent-empty and undecodable-404 paths produce.
var emptyResult = json.RawMessage("{}")

// Client is the RanobeLIB API client. All requests flow through one
// rate limiter and one cancellation token, so a client may be shared by a
// UI thread signalling cancellation and a worker goroutine issuing calls.
type Client struct {
	httpClient *nethttp.Client
	apiURL     string
	siteURL    string
	authMeURL  string

	limiter     *ratelimit.Limiter
	token       *cancel.Token
	cancelScope CancelScope
	retryDelays []time.Duration

	mu        sync.Mutex
	headers   map[string]string
	refreshFn func() bool
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides the novel API base URL (must end with "/").
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithAuthMeURL overrides the current-user endpoint.
func WithAuthMeURL(u string) Option {
	return func(c *Client) { c.authMeURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelays overrides the retry schedule (one retry per entry).
func WithRetryDelays(delays []time.Duration) Option {
	return func(c *Client) { c.retryDelays = delays }
}

// WithCancelScope selects per-call or per-session cancellation.
func WithCancelScope(scope CancelScope) Option {
	return func(c *Client) { c.cancelScope = scope }
}

// WithLimiter substitutes the rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates an API client with the production endpoints, the
// 90-per-60s rate limiter and a fresh cancellation token.
func NewClient(opts ...Option) (*Client, error) {
	httpClient, err := http.NewClient(http.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	c := &Client{
		httpClient:  httpClient,
		apiURL:      DefaultAPIURL,
		siteURL:     DefaultSiteURL,
		authMeURL:   defaultAuthMe,
		limiter:     ratelimit.NewAPILimiter(),
		token:       cancel.NewToken(),
		cancelScope: CancelPerCall,
		retryDelays: defaultRetryDelays,
		headers:     map[string]string{"User-Agent": userAgent},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken installs a bearer token for authorized requests, along with the
// Origin/Referer headers the API expects alongside it.
func (c *Client) SetToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers["Authorization"] = "Bearer " + token
	if _, ok := c.headers["Origin"]; !ok {
		c.headers["Origin"] = c.siteURL
	}
	if _, ok := c.headers["Referer"]; !ok {
		c.headers["Referer"] = c.siteURL + "/"
	}
}

// ClearToken removes the bearer token.
func (c *Client) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.headers, "Authorization")
}

// SetTokenRefreshFunc registers the credential-refresh callback invoked on
// HTTP 401. It reports whether a new token was installed.
func (c *Client) SetTokenRefreshFunc(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshFn = fn
}

// Cancel aborts pending waits: the current rate-limit sleep or retry
// backoff returns ErrCancelled within its next tick. A request already on
// the wire completes or times out on its own.
func (c *Client) Cancel() {
	c.token.Set()
}

// CancelToken exposes the client's cancellation token, for callers that
// need to clear a session-scoped cancellation.
func (c *Client) CancelToken() *cancel.Token {
	return c.token
}

// ExtractSlug pulls the novel slug out of a site URL of the form
// https://ranobelib.me/ru/book/<slug>[/...].
func ExtractSlug(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "ru" && parts[1] == "book" && parts[2] != "" {
		return parts[2], true
	}
	return "", false
}

// NovelInfo fetches novel metadata.
func (c *Client) NovelInfo(slug string) (*models.Novel, error) {
	fields := []string{
		"summary", "genres", "tags", "teams", "authors",
		"status_id", "artists", "format", "publisher",
	}
	params := url.Values{}
	for _, f := range fields {
		params.Add("fields[]", f)
	}

	target := c.apiURL + slug
	raw, err := c.execute(target, params, true, 0)
	if err != nil {
		return nil, err
	}
	var novel models.Novel
	if err := c.decodeData(target, raw, &novel); err != nil {
		return nil, err
	}
	return &novel, nil
}

// NovelChapters fetches the full chapter list for a novel.
func (c *Client) NovelChapters(slug string) ([]models.Chapter, error) {
	target := c.apiURL + slug + "/chapters"
	raw, err := c.execute(target, nil, true, 0)
	if err != nil {
		return nil, err
	}
	var chapters []models.Chapter
	if err := c.decodeData(target, raw, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

// ChapterContent fetches one chapter's body. upcoming announces how many
// further chapter fetches the caller will issue right after this one, so
// the rate limiter can reserve capacity for the batch.
func (c *Client) ChapterContent(slug, volume, number, branchID string, upcoming int) (*models.ChapterContent, error) {
	params := url.Values{}
	params.Set("volume", volume)
	params.Set("number", number)
	if branchID != "" && branchID != "0" {
		params.Set("branch_id", branchID)
	}

	target := c.apiURL + slug + "/chapter"
	raw, err := c.execute(target, params, true, upcoming)
	if err != nil {
		return nil, err
	}
	var content models.ChapterContent
	if err := c.decodeData(target, raw, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// CurrentUser probes the authenticated user's identity. Failure is an
// expected outcome here (not logged, not retried): a nil user with a nil
// error means "can't confirm a login".
func (c *Client) CurrentUser() (*models.User, error) {
	raw, err := c.execute(c.authMeURL, nil, false, 0)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := c.decodeData(c.authMeURL, raw, &user); err != nil {
		return nil, nil
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

// envelope is the {"data": ...} wrapper every endpoint uses.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeData unwraps the response envelope into v. An absent or null data
// field leaves v at its zero value, matching the 404-as-empty contract.
func (c *Client) decodeData(target string, raw json.RawMessage, v interface{}) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &DecodeError{Target: target, Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &DecodeError{Target: target, Err: err}
	}
	return nil
}

// execute runs one API call: cancellation scoping, rate-limit admission,
// dispatch, and the fixed retry schedule.
func (c *Client) execute(target string, params url.Values, allowRetry bool, upcoming int) (json.RawMessage, error) {
	if c.cancelScope == CancelPerCall {
		// A new operation begins; a stale cancellation must not poison it.
		c.token.Clear()
	} else if c.token.IsSet() {
		return nil, cancel.ErrCancelled
	}

	if err := c.limiter.Wait(c.token, upcoming); err != nil {
		return nil, err
	}

	if !allowRetry {
		body, err := c.perform(target, params)
		if err != nil {
			if IsCancelled(err) {
				return nil, err
			}
			return emptyResult, nil
		}
		return body, nil
	}

	body, err := c.perform(target, params)
	if err == nil {
		return body, nil
	}
	if IsCancelled(err) || IsDecode(err) {
		return nil, err
	}
	lastErr := err

	for _, delay := range c.retryDelays {
		if delay >= longDelayWarn {
			log.Warn().Msgf("Connection error: %v. Next attempt in %s...", lastErr, delay)
		}
		if err := c.token.Wait(delay); err != nil {
			return nil, err
		}

		body, err = c.perform(target, params)
		if err == nil {
			return body, nil
		}
		if IsCancelled(err) || IsDecode(err) {
			return nil, err
		}
		lastErr = err
	}

	log.Error().Msgf("Connection failed: %v. Check your network connection or try again later.", lastErr)
	return nil, &TransportError{Target: target, Attempts: len(c.retryDelays) + 1, Err: lastErr}
}

// perform dispatches a single HTTP GET and interprets the response:
// 401 triggers one credential refresh and redispatch, 404 is a valid empty
// answer, any other non-2xx is a transport failure for the retry loop.
func (c *Client) perform(target string, params url.Values) (json.RawMessage, error) {
	resp, err := c.dispatch(target, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == nethttp.StatusUnauthorized {
		c.mu.Lock()
		refresh := c.refreshFn
		c.mu.Unlock()

		if refresh != nil {
			drain(resp)
			log.Warn().Msg("Token rejected. Attempting refresh...")
			if refresh() {
				log.Info().Msg("Token refreshed. Retrying request...")
				resp, err = c.dispatch(target, params)
				if err != nil {
					return nil, err
				}
			} else {
				log.Warn().Msg("Token refresh failed.")
				return nil, fmt.Errorf("HTTP 401 Unauthorized for %s", target)
			}
		}
	}

	defer drain(resp)

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode == nethttp.StatusNotFound {
		// "Not found" is an answer, not a failure. An undecodable 404 body
		// degrades to an empty result.
		if readErr == nil && json.Valid(body) {
			return body, nil
		}
		return emptyResult, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target, readErr)
	}
	if !json.Valid(body) {
		return nil, &DecodeError{Target: target, Err: fmt.Errorf("response body is not valid JSON")}
	}
	return body, nil
}

// dispatch issues the GET with the client's current header set.
func (c *Client) dispatch(target string, params url.Values) (*nethttp.Response, error) {
	u := target
	if len(params) > 0 {
		if strings.Contains(u, "?") {
			u += "&" + params.Encode()
		} else {
			u += "?" + params.Encode()
		}
	}

	req, err := nethttp.NewRequest(nethttp.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}

	c.mu.Lock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	return resp, nil
}

// drain discards and closes a response body so the connection can be
// reused.
func drain(resp *nethttp.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
