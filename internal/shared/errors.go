package shared

import "fmt"

var (
	// Credential and token errors
	ErrCredentialsMissing = fmt.Errorf("missing client credentials")
	ErrRefreshUnavailable = fmt.Errorf("no refresh token available")
	ErrTokenExchange      = fmt.Errorf("token exchange failed")

	// API and service errors
	ErrRateLimited      = fmt.Errorf("rate limit retries exhausted")
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
