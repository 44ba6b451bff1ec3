package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// spotifyProvider keys the single Spotify row in the tokens table.
const spotifyProvider = "spotify"

// TokenRepository persists the durable Spotify refresh token. It implements
// spotify.TokenStore so rotated tokens survive across processes.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a TokenRepository backed by the given database.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// RefreshToken returns the stored refresh token, or the empty string when no
// token has been saved yet.
func (r *TokenRepository) RefreshToken(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_token FROM tokens WHERE provider = ?`, spotifyProvider,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	return token, nil
}

// SaveRefreshToken upserts the refresh token for the Spotify provider.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (provider, refresh_token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(provider) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = excluded.updated_at`,
		spotifyProvider, token, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}
