package spotify

// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/

// PlaylistItem represents one entry of a playlist's tracks page: the raw
// record shape the duplicate resolver consumes.
type PlaylistItem struct {
	AddedAt string    `json:"added_at"`
	Track   ItemTrack `json:"track"`
}

// ItemTrack is the track object embedded in a playlist item. Type
// distinguishes real tracks from podcast episodes and other item kinds.
type ItemTrack struct {
	Type       string       `json:"type"`
	Name       string       `json:"name"`
	Explicit   bool         `json:"explicit"`
	Artists    []ItemArtist `json:"artists"`
	Album      ItemAlbum    `json:"album"`
	URI        string       `json:"uri"`
	DurationMS int          `json:"duration_ms"`
}

// ItemArtist represents an artist reference on a track.
type ItemArtist struct {
	Name string `json:"name"`
}

// ItemAlbum represents an album reference on a track.
type ItemAlbum struct {
	Name string `json:"name"`
}

// trackPage is one page of a playlist's tracks with the server-supplied
// cursor to the next page.
type trackPage struct {
	Items []PlaylistItem `json:"items"`
	Next  *string        `json:"next"`
}

// playlistMeta is the subset of the playlist object the tool reads.
type playlistMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// userProfile is the subset of the current-user profile the tool reads.
type userProfile struct {
	ID string `json:"id"`
}

// removePayload is the body of a remove-items call. Removal is matched by
// URI value, so one entry removes every occurrence of that URI.
type removePayload struct {
	Tracks []removeTarget `json:"tracks"`
}

type removeTarget struct {
	URI string `json:"uri"`
}

// addPayload is the body of an add-items call.
type addPayload struct {
	URIs     []string `json:"uris"`
	Position *int     `json:"position,omitempty"`
}

// replacePayload is the body of a replace-items call.
type replacePayload struct {
	URIs []string `json:"uris"`
}

// createPlaylistPayload is the body of a create-playlist call.
type createPlaylistPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}
