package spotify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"spotidedup/internal/shared"
)

const defaultTokenURL = "https://accounts.spotify.com/api/token"

// refreshSkew is how long before actual expiry a user token is considered
// stale and re-exchanged.
const refreshSkew = 30 * time.Second

// Mode selects which credential backs a request. App tokens cover public
// reads; user tokens are required for mutation and private-playlist reads.
type Mode string

const (
	ModeApp  Mode = "app"
	ModeUser Mode = "user"
)

// TokenStore persists the durable refresh token across processes. Spotify may
// rotate the refresh token on exchange; the rotated value is written back so
// future runs keep working.
type TokenStore interface {
	RefreshToken(ctx context.Context) (string, error)
	SaveRefreshToken(ctx context.Context, token string) error
}

// TokenManagerOpts contains configuration for creating a TokenManager.
type TokenManagerOpts struct {
	ClientID     string
	ClientSecret string
	RefreshToken string       // seed refresh token from config/env
	Store        TokenStore   // optional durable store; takes precedence over the seed
	TokenURL     string       // token endpoint override, used in tests
	HTTPClient   *http.Client // HTTP client for token exchanges
	Logger       *log.Logger
}

// TokenManager supplies bearer tokens for both credential modes. It owns the
// token cache explicitly: one value per client, guarded by a mutex, torn down
// with the client rather than living in process-wide state.
type TokenManager struct {
	mu           sync.Mutex
	clientID     string
	clientSecret string
	seedRefresh  string
	store        TokenStore
	tokenURL     string
	httpClient   *http.Client
	logger       *log.Logger

	app            oauth2.TokenSource
	user           oauth2.TokenSource
	currentRefresh string
}

// NewTokenManager creates a TokenManager from the provided options.
func NewTokenManager(opts TokenManagerOpts) *TokenManager {
	if opts.TokenURL == "" {
		opts.TokenURL = defaultTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &TokenManager{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		seedRefresh:  opts.RefreshToken,
		store:        opts.Store,
		tokenURL:     opts.TokenURL,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
	}
}

// Get returns a valid bearer token for the requested mode, exchanging or
// refreshing credentials as needed.
func (m *TokenManager) Get(ctx context.Context, mode Mode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch mode {
	case ModeUser:
		return m.userToken(ctx)
	default:
		return m.appToken(ctx)
	}
}

// Invalidate drops the cached token source for the given mode so the next Get
// performs a fresh exchange.
func (m *TokenManager) Invalidate(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch mode {
	case ModeUser:
		m.user = nil
	default:
		m.app = nil
	}
}

// appToken exchanges the client id/secret pair for a client-credentials
// token. The underlying source caches the token for the life of the manager.
func (m *TokenManager) appToken(ctx context.Context) (string, error) {
	if m.clientID == "" || m.clientSecret == "" {
		return "", fmt.Errorf("%w: client id and secret are required for app auth", shared.ErrCredentialsMissing)
	}

	if m.app == nil {
		conf := &clientcredentials.Config{
			ClientID:     m.clientID,
			ClientSecret: m.clientSecret,
			TokenURL:     m.tokenURL,
		}
		m.app = conf.TokenSource(m.exchangeContext(ctx))
	}

	tok, err := m.app.Token()
	if err != nil {
		return "", fmt.Errorf("%w: app token: %v", shared.ErrTokenExchange, err)
	}
	return tok.AccessToken, nil
}

// userToken exchanges the durable refresh token for a short-lived access
// token, re-exchanging within refreshSkew of expiry. Rotated refresh tokens
// are persisted back to the store.
func (m *TokenManager) userToken(ctx context.Context) (string, error) {
	if m.user == nil {
		refresh, err := m.resolveRefresh(ctx)
		if err != nil {
			return "", err
		}
		m.currentRefresh = refresh

		conf := &oauth2.Config{
			ClientID:     m.clientID,
			ClientSecret: m.clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: m.tokenURL},
		}
		base := conf.TokenSource(m.exchangeContext(ctx), &oauth2.Token{RefreshToken: refresh})
		m.user = oauth2.ReuseTokenSourceWithExpiry(nil, base, refreshSkew)
	}

	tok, err := m.user.Token()
	if err != nil {
		return "", fmt.Errorf("%w: user token: %v", shared.ErrTokenExchange, err)
	}

	if tok.RefreshToken != "" && tok.RefreshToken != m.currentRefresh {
		m.currentRefresh = tok.RefreshToken
		if m.store != nil {
			if err := m.store.SaveRefreshToken(ctx, tok.RefreshToken); err != nil {
				m.logger.Warn("failed to persist rotated refresh token", "error", err)
			}
		}
	}

	return tok.AccessToken, nil
}

// resolveRefresh looks up the refresh token: durable store first, then the
// config/env seed.
func (m *TokenManager) resolveRefresh(ctx context.Context) (string, error) {
	if m.currentRefresh != "" {
		return m.currentRefresh, nil
	}

	if m.store != nil {
		stored, err := m.store.RefreshToken(ctx)
		if err != nil {
			return "", fmt.Errorf("reading refresh token store: %w", err)
		}
		if stored != "" {
			return stored, nil
		}
	}

	if m.seedRefresh != "" {
		return m.seedRefresh, nil
	}

	return "", fmt.Errorf("%w: run 'auth token' or set SPOTIFY_REFRESH_TOKEN", shared.ErrRefreshUnavailable)
}

// exchangeContext routes oauth2 exchanges through the manager's HTTP client.
func (m *TokenManager) exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}
