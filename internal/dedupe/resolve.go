package dedupe

import (
	"iter"
	"math"
	"slices"

	"spotidedup/internal/spotify"
)

// DefaultTolerance is the duration tolerance window, in whole seconds, used
// when a caller has no stronger opinion.
const DefaultTolerance = 5

// Options configures a resolution pass.
type Options struct {
	Strict        bool
	ToleranceSecs int
}

// Track is the resolver's view of one playlist entry. Immutable once built
// from a raw record; SourceIndex records the original position for stable
// tie-breaks.
type Track struct {
	Name        string
	Artists     []string
	Album       string
	URI         string
	DurationMS  int
	AddedAt     string
	SourceIndex int
}

// Key is the fuzzy comparison key for a track. Keys are used only for
// membership testing during a scan, never persisted.
type Key struct {
	Title   string
	Artists []string // normalized, deduplicated, sorted
	Seconds int
}

// KeyOf builds the comparison key for a track.
func KeyOf(t Track, strict bool) Key {
	return Key{
		Title:   NormalizeTitle(t.Name, strict),
		Artists: NormalizeArtists(t.Artists),
		Seconds: roundSeconds(t.DurationMS),
	}
}

// matches reports whether candidate names the same song as the anchor key:
// exact title and artist-set equality, with the candidate's duration within
// tol seconds of the anchor's. The tolerance is always measured against the
// anchor, never re-anchored to later members.
func (k Key) matches(candidate Key, tol int) bool {
	if k.Title != candidate.Title || !slices.Equal(k.Artists, candidate.Artists) {
		return false
	}
	diff := candidate.Seconds - k.Seconds
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}

func roundSeconds(ms int) int {
	return int(math.Round(float64(ms) / 1000.0))
}

// Group is a set of at least two tracks that resolve to the same key,
// sorted ascending by added_at. The first element is the keeper.
type Group struct {
	Key    Key
	Tracks []Track
}

// Keeper returns the earliest-added occurrence in the group.
func (g Group) Keeper() Track {
	return g.Tracks[0]
}

// DuplicateCount returns the number of removable tracks across groups: every
// group retains exactly one keeper.
func DuplicateCount(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Tracks) - 1
	}
	return n
}

// ParseItems drains the raw item sequence into resolver tracks. Items whose
// embedded object is not track-typed (podcast episodes and the like) are
// silently skipped; missing fields default to zero values so one malformed
// record cannot abort a scan.
func ParseItems(items iter.Seq2[spotify.PlaylistItem, error]) ([]Track, error) {
	var tracks []Track

	pos := -1
	for item, err := range items {
		if err != nil {
			return nil, err
		}
		pos++

		if item.Track.Type != "track" {
			continue
		}

		artists := make([]string, 0, len(item.Track.Artists))
		for _, a := range item.Track.Artists {
			artists = append(artists, a.Name)
		}

		tracks = append(tracks, Track{
			Name:        item.Track.Name,
			Artists:     artists,
			Album:       item.Track.Album.Name,
			URI:         item.Track.URI,
			DurationMS:  item.Track.DurationMS,
			AddedAt:     item.AddedAt,
			SourceIndex: pos,
		})
	}

	return tracks, nil
}

// representative anchors one canonical key during the greedy scan: the first
// (keeper) URI plus every URI and track accumulated under it.
type representative struct {
	key    Key
	keeper string
	uris   []string
	seen   map[string]struct{}
	tracks []Track
}

// scan processes tracks in playlist order against the ordered list of
// representatives seen so far. Each track joins the first representative
// whose key matches within tolerance, or becomes a new representative. The
// policy is deliberately greedy and non-transitive: duration may drift
// across a chain of additions, but only relative to the original anchor.
func scan(tracks []Track, opts Options) []*representative {
	var reps []*representative

	for _, t := range tracks {
		key := KeyOf(t, opts.Strict)

		var match *representative
		for _, r := range reps {
			if r.key.matches(key, opts.ToleranceSecs) {
				match = r
				break
			}
		}

		if match == nil {
			match = &representative{key: key, keeper: t.URI, seen: make(map[string]struct{})}
			reps = append(reps, match)
		}

		if _, ok := match.seen[t.URI]; !ok {
			match.seen[t.URI] = struct{}{}
			match.uris = append(match.uris, t.URI)
		}
		match.tracks = append(match.tracks, t)
	}

	return reps
}

// Resolve decides which URIs to keep and which to delete. For every
// representative with more than one occurrence, the keeper is its first
// occurrence's URI and every URI accumulated under it lands in the delete
// set; the repair strategy is "remove all copies, then re-add one keeper".
// A URI kept under one key can therefore still be scheduled for removal
// under another. Both outputs are deduplicated in first-encounter order.
func Resolve(items iter.Seq2[spotify.PlaylistItem, error], opts Options) (keepURIs, deleteURIs []string, err error) {
	tracks, err := ParseItems(items)
	if err != nil {
		return nil, nil, err
	}

	keepSeen := make(map[string]struct{})
	deleteSeen := make(map[string]struct{})

	for _, r := range scan(tracks, opts) {
		if len(r.tracks) <= 1 {
			continue
		}

		if _, ok := keepSeen[r.keeper]; !ok && r.keeper != "" {
			keepSeen[r.keeper] = struct{}{}
			keepURIs = append(keepURIs, r.keeper)
		}

		for _, u := range r.uris {
			if u == "" {
				continue
			}
			if _, ok := deleteSeen[u]; ok {
				continue
			}
			deleteSeen[u] = struct{}{}
			deleteURIs = append(deleteURIs, u)
		}
	}

	return keepURIs, deleteURIs, nil
}

// Groups reports the duplicate groups found in the item sequence, using the
// same representative scan as Resolve so check and delete always agree.
// Tracks within a group are sorted ascending by added_at, original position
// breaking ties.
func Groups(items iter.Seq2[spotify.PlaylistItem, error], opts Options) ([]Group, error) {
	tracks, err := ParseItems(items)
	if err != nil {
		return nil, err
	}

	var out []Group
	for _, r := range scan(tracks, opts) {
		if len(r.tracks) <= 1 {
			continue
		}

		members := slices.Clone(r.tracks)
		slices.SortStableFunc(members, func(a, b Track) int {
			if a.AddedAt != b.AddedAt {
				if a.AddedAt < b.AddedAt {
					return -1
				}
				return 1
			}
			return a.SourceIndex - b.SourceIndex
		})

		out = append(out, Group{Key: r.key, Tracks: members})
	}

	return out, nil
}
