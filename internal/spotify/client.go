// package spotify implements the resilient Spotify Web API client: token
// acquisition and refresh, rate-limit-aware pagination, and chunked playlist
// mutation.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"spotidedup/internal/shared"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// mutationChunkSize is the API's per-call item cap for add and remove calls.
const mutationChunkSize = 100

// UpstreamError reports a non-2xx API response. Statuses other than 429 are
// fatal immediately: the transient-vs-fatal distinction is solely the 429
// status code.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Body)
}

// ClientOpts contains configuration for creating a Client.
type ClientOpts struct {
	Tokens     *TokenManager
	BaseURL    string       // API base override, used in tests
	HTTPClient *http.Client
	Logger     *log.Logger
	PageSize   int     // playlist page size, capped at 100
	MaxRetries int     // attempts per page before giving up on 429s
	RateLimit  float64 // outbound requests per second; 0 disables throttling
}

// Client talks to the Spotify Web API. All calls are sequential and blocking;
// rate-limit backoff is a synchronous sleep.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	logger     *log.Logger
	limiter    *rate.Limiter
	pageSize   int
	maxRetries int
	sleep      func(time.Duration) // swapped out in tests
}

// NewClient creates a Client with the provided options.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PageSize <= 0 || opts.PageSize > 100 {
		opts.PageSize = 100
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		limiter:    limiter,
		pageSize:   opts.PageSize,
		maxRetries: opts.MaxRetries,
		sleep:      time.Sleep,
	}
}

// ParsePlaylistID extracts the playlist ID from a share URL whose path
// contains a "playlist" segment, e.g. open.spotify.com/playlist/{id}.
// Anything that does not look like a URL is returned unchanged and treated
// as a raw ID.
func ParsePlaylistID(input string) string {
	if !strings.HasPrefix(input, "http") {
		return input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return input
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, part := range parts {
		if part == "playlist" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return input
}

// Items returns a lazy sequence over every item of the playlist, following
// the server-supplied next-page links until absent. The sequence is finite
// and non-restartable; a page failure is yielded once and ends iteration.
func (c *Client) Items(ctx context.Context, playlist string, mode Mode) iter.Seq2[PlaylistItem, error] {
	return func(yield func(PlaylistItem, error) bool) {
		id := ParsePlaylistID(playlist)
		next := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", c.baseURL, url.PathEscape(id), c.pageSize)

		for next != "" {
			var page trackPage
			if err := c.getJSON(ctx, next, mode, &page); err != nil {
				yield(PlaylistItem{}, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if page.Next == nil {
				return
			}
			next = *page.Next
		}
	}
}

// PlaylistName fetches the display name of a playlist.
func (c *Client) PlaylistName(ctx context.Context, playlist string, mode Mode) (string, error) {
	id := ParsePlaylistID(playlist)

	var meta playlistMeta
	endpoint := fmt.Sprintf("%s/playlists/%s", c.baseURL, url.PathEscape(id))
	if err := c.getJSON(ctx, endpoint, mode, &meta); err != nil {
		return "", err
	}
	return meta.Name, nil
}

// CurrentUserID fetches the authenticated user's ID. Requires user auth.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	var profile userProfile
	if err := c.getJSON(ctx, c.baseURL+"/me", ModeUser, &profile); err != nil {
		return "", err
	}
	return profile.ID, nil
}

// RemoveTracks removes every occurrence of each URI from the playlist.
// Removal is matched by URI value, not position. URIs are deduplicated and
// sent in chunks of 100.
func (c *Client) RemoveTracks(ctx context.Context, playlist string, uris []string) error {
	id := ParsePlaylistID(playlist)
	unique := dedupURIs(uris)

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(id))
	for chunk := range chunked(unique, mutationChunkSize) {
		payload := removePayload{Tracks: make([]removeTarget, 0, len(chunk))}
		for _, u := range chunk {
			payload.Tracks = append(payload.Tracks, removeTarget{URI: u})
		}

		if err := c.send(ctx, http.MethodDelete, endpoint, payload, nil); err != nil {
			return err
		}
		c.logger.Debug("removed track chunk", "playlist", id, "count", len(chunk))
	}
	return nil
}

// AddTracks appends the URIs to the playlist in chunks of 100. A negative
// position appends; otherwise chunks are inserted starting at position,
// advancing it per chunk so the original order is preserved.
func (c *Client) AddTracks(ctx context.Context, playlist string, uris []string, position int) error {
	id := ParsePlaylistID(playlist)

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(id))
	offset := position
	for chunk := range chunked(uris, mutationChunkSize) {
		payload := addPayload{URIs: chunk}
		if position >= 0 {
			at := offset
			payload.Position = &at
			offset += len(chunk)
		}

		if err := c.send(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
			return err
		}
		c.logger.Debug("added track chunk", "playlist", id, "count", len(chunk))
	}
	return nil
}

// ReplaceTracks replaces the playlist's entire contents with up to 100 URIs.
func (c *Client) ReplaceTracks(ctx context.Context, playlist string, uris []string) error {
	if len(uris) > mutationChunkSize {
		return fmt.Errorf("%w: replace accepts at most %d URIs", shared.ErrInvalidInput, mutationChunkSize)
	}

	id := ParsePlaylistID(playlist)
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(id))
	return c.send(ctx, http.MethodPut, endpoint, replacePayload{URIs: uris}, nil)
}

// CreatePlaylist creates a playlist under the given user account and returns
// the new playlist ID.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/playlists", c.baseURL, url.PathEscape(userID))
	payload := createPlaylistPayload{Name: name, Description: description, Public: public}

	var created playlistMeta
	if err := c.send(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// getJSON performs an authenticated GET. A 429 response sleeps for the
// server-specified Retry-After (default 1s) and reissues the same request,
// bounded by maxRetries; any other non-2xx status fails immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, mode Mode, out any) error {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.do(ctx, http.MethodGet, rawURL, mode, nil)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp)
			resp.Body.Close()
			c.logger.Warn("rate limited, backing off", "delay", delay, "attempt", attempt+1)
			c.sleep(delay)
			continue
		}

		return decodeResponse(resp, out)
	}

	return fmt.Errorf("%w: gave up after %d attempts", shared.ErrRateLimited, c.maxRetries)
}

// send performs an authenticated JSON-bodied mutation with user credentials.
// Mutations are not retried: a 429 here surfaces as an UpstreamError so the
// caller can report exactly which phase stalled.
func (c *Client) send(ctx context.Context, method, rawURL string, body, out any) error {
	resp, err := c.do(ctx, method, rawURL, ModeUser, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// do issues a single authenticated request.
func (c *Client) do(ctx context.Context, method, rawURL string, mode Mode, body any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	token, err := c.tokens.Get(ctx, mode)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return resp, nil
}

// decodeResponse consumes the response body, turning non-2xx statuses into
// UpstreamError and decoding successful bodies into out when provided.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// retryAfter reads the server-specified backoff, defaulting to one second.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// dedupURIs drops empty strings and repeats, preserving first-encounter order.
func dedupURIs(uris []string) []string {
	seen := make(map[string]struct{}, len(uris))
	unique := make([]string, 0, len(uris))
	for _, u := range uris {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}

// chunked yields successive slices of at most size elements.
func chunked(items []string, size int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for i := 0; i < len(items); i += size {
			end := min(i+size, len(items))
			if !yield(items[i:end]) {
				return
			}
		}
	}
}
