package dedupe

import (
	"fmt"
	"iter"
	"slices"
	"testing"
	"time"

	"spotidedup/internal/spotify"
)

// mkItem builds a playlist item the way the API returns them.
func mkItem(name string, artists []string, durMS int, uri, addedAt, typ string) spotify.PlaylistItem {
	itemArtists := make([]spotify.ItemArtist, 0, len(artists))
	for _, a := range artists {
		itemArtists = append(itemArtists, spotify.ItemArtist{Name: a})
	}

	return spotify.PlaylistItem{
		AddedAt: addedAt,
		Track: spotify.ItemTrack{
			Type:       typ,
			Name:       name,
			Artists:    itemArtists,
			Album:      spotify.ItemAlbum{Name: "Album"},
			URI:        uri,
			DurationMS: durMS,
		},
	}
}

func iso(t time.Time) string {
	return t.Format("2006-01-02T15:04:05Z")
}

func seq(items []spotify.PlaylistItem) iter.Seq2[spotify.PlaylistItem, error] {
	return func(yield func(spotify.PlaylistItem, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGroups(t *testing.T) {
	t.Run("relaxed mode groups feat and remaster variants", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Song (feat. Drake) - Remastered 2012", []string{"Artist A"}, 215000, "spotify:track:111", iso(t0), "track"),
			mkItem("Song", []string{"Artist A"}, 215000, "spotify:track:222", iso(t0.AddDate(0, 0, 1)), "track"),
		}

		groups, err := Groups(seq(items), Options{Strict: false, ToleranceSecs: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
		if len(groups[0].Tracks) != 2 {
			t.Fatalf("expected 2 tracks in group, got %d", len(groups[0].Tracks))
		}
		if groups[0].Tracks[0].AddedAt >= groups[0].Tracks[1].AddedAt {
			t.Error("expected tracks sorted oldest to newest")
		}
	})

	t.Run("strict mode does not group marker variants", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Song (feat. Drake) - Remastered 2012", []string{"Artist A"}, 215000, "spotify:track:111", iso(t0), "track"),
			mkItem("Song", []string{"Artist A"}, 215000, "spotify:track:222", iso(t0.AddDate(0, 0, 1)), "track"),
		}

		groups, err := Groups(seq(items), Options{Strict: true, ToleranceSecs: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("expected 0 groups, got %d", len(groups))
		}
	})

	t.Run("artist order is insensitive", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Collab", []string{"A", "B"}, 200000, "spotify:track:abc", iso(t0), "track"),
			mkItem("Collab", []string{"B", "A"}, 200000, "spotify:track:def", iso(t0.Add(time.Hour)), "track"),
		}

		groups, err := Groups(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(groups) != 1 || len(groups[0].Tracks) != 2 {
			t.Fatalf("expected 1 group of 2, got %v", groups)
		}
	})

	t.Run("duration tolerance", func(t *testing.T) {
		near := []spotify.PlaylistItem{
			mkItem("Track X", []string{"Artist"}, 214000, "spotify:track:x1", iso(t0), "track"),
			mkItem("Track X", []string{"Artist"}, 215000, "spotify:track:x2", iso(t0.Add(10*time.Second)), "track"),
		}

		t.Run("zero tolerance keeps close lengths apart", func(t *testing.T) {
			groups, err := Groups(seq(near), Options{ToleranceSecs: 0})
			if err != nil {
				t.Fatal(err)
			}
			if len(groups) != 0 {
				t.Errorf("expected 0 groups, got %d", len(groups))
			}
		})

		t.Run("one second tolerance merges them", func(t *testing.T) {
			groups, err := Groups(seq(near), Options{ToleranceSecs: 1})
			if err != nil {
				t.Fatal(err)
			}
			if len(groups) != 1 {
				t.Errorf("expected 1 group, got %d", len(groups))
			}
		})

		t.Run("far lengths never merge", func(t *testing.T) {
			far := []spotify.PlaylistItem{
				mkItem("Track Y", []string{"Artist"}, 214000, "spotify:track:y1", iso(t0), "track"),
				mkItem("Track Y", []string{"Artist"}, 219000, "spotify:track:y2", iso(t0.Add(10*time.Second)), "track"),
			}
			groups, err := Groups(seq(far), Options{ToleranceSecs: 2})
			if err != nil {
				t.Fatal(err)
			}
			if len(groups) != 0 {
				t.Errorf("expected 0 groups, got %d", len(groups))
			}
		})
	})

	t.Run("tolerance is anchored to the representative", func(t *testing.T) {
		// 214 anchors; 215 and 216 both join against 214, even though a
		// 216/215 pairing alone would also be valid. 217 exceeds the
		// anchor's window and starts a new representative: drift never
		// re-anchors. This is the documented greedy policy, not general
		// clustering.
		items := []spotify.PlaylistItem{
			mkItem("Drift", []string{"Artist"}, 214000, "spotify:track:d1", iso(t0), "track"),
			mkItem("Drift", []string{"Artist"}, 215000, "spotify:track:d2", iso(t0.Add(time.Minute)), "track"),
			mkItem("Drift", []string{"Artist"}, 216000, "spotify:track:d3", iso(t0.Add(2*time.Minute)), "track"),
			mkItem("Drift", []string{"Artist"}, 217000, "spotify:track:d4", iso(t0.Add(3*time.Minute)), "track"),
		}

		groups, err := Groups(seq(items), Options{ToleranceSecs: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
		if len(groups[0].Tracks) != 3 {
			t.Errorf("expected the 214/215/216 chain, got %d tracks", len(groups[0].Tracks))
		}
		if groups[0].Key.Seconds != 214 {
			t.Errorf("expected anchor at 214s, got %d", groups[0].Key.Seconds)
		}
	})

	t.Run("skips non-track items", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Keep Me", []string{"Artist"}, 180000, "spotify:track:k1", iso(t0), "track"),
			mkItem("Keep Me", []string{"Artist"}, 180000, "spotify:track:k2", iso(t0.Add(time.Second)), "track"),
			mkItem("Keep Me", []string{"Artist"}, 180000, "spotify:episode:e1", iso(t0), "episode"),
		}

		groups, err := Groups(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatal(err)
		}
		if len(groups) != 1 || len(groups[0].Tracks) != 2 {
			t.Fatalf("expected episodes to be excluded, got %v", groups)
		}
		for _, track := range groups[0].Tracks {
			if track.URI == "spotify:episode:e1" {
				t.Error("episode URI should never appear in a group")
			}
		}
	})

	t.Run("cjk titles preserved and not cross-grouped", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("もしも命が描けたら", []string{"YOASOBI"}, 250000, "spotify:track:j1", iso(t0), "track"),
			mkItem("もしも命が描けたら", []string{"YOASOBI"}, 250000, "spotify:track:j2", iso(t0.AddDate(0, 0, 1)), "track"),
			mkItem("あの夏に咲け", []string{"美波"}, 250000, "spotify:track:j3", iso(t0.AddDate(0, 0, 2)), "track"),
		}

		groups, err := Groups(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatal(err)
		}
		if len(groups) != 1 || len(groups[0].Tracks) != 2 {
			t.Fatalf("expected exactly 1 group of 2, got %v", groups)
		}
		for _, track := range groups[0].Tracks {
			if track.Name != "もしも命が描けたら" {
				t.Errorf("unexpected track in group: %q", track.Name)
			}
		}
	})

	t.Run("keeper is earliest added", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Late", []string{"Artist"}, 200000, "spotify:track:l2", iso(t0.AddDate(0, 0, 5)), "track"),
			mkItem("Late", []string{"Artist"}, 200000, "spotify:track:l1", iso(t0), "track"),
		}

		groups, err := Groups(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatal(err)
		}
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
		if groups[0].Keeper().URI != "spotify:track:l1" {
			t.Errorf("expected earliest-added keeper, got %s", groups[0].Keeper().URI)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("clean playlist yields empty plan", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("One", []string{"Artist"}, 200000, "spotify:track:1", iso(t0), "track"),
			mkItem("Two", []string{"Artist"}, 210000, "spotify:track:2", iso(t0), "track"),
		}

		keep, del, err := Resolve(seq(items), Options{ToleranceSecs: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(keep) != 0 || len(del) != 0 {
			t.Errorf("expected empty plan, got keep=%v delete=%v", keep, del)
		}
	})

	t.Run("keeper is first occurrence and delete covers every copy", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("Dup", []string{"Artist"}, 200000, "spotify:track:a", iso(t0), "track"),
			mkItem("Dup", []string{"Artist"}, 200000, "spotify:track:b", iso(t0.Add(time.Hour)), "track"),
			mkItem("Dup", []string{"Artist"}, 200000, "spotify:track:a", iso(t0.Add(2*time.Hour)), "track"),
		}

		keep, del, err := Resolve(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatal(err)
		}

		if !slices.Equal(keep, []string{"spotify:track:a"}) {
			t.Errorf("expected keeper a, got %v", keep)
		}
		// The keeper URI is also slated for removal: the repair strategy is
		// remove-then-re-add, so deletion wipes all copies first.
		if !slices.Equal(del, []string{"spotify:track:a", "spotify:track:b"}) {
			t.Errorf("expected both URIs deleted, got %v", del)
		}
	})

	t.Run("outputs are deduplicated in first-encounter order", func(t *testing.T) {
		items := []spotify.PlaylistItem{
			mkItem("First", []string{"Artist"}, 200000, "spotify:track:f1", iso(t0), "track"),
			mkItem("Second", []string{"Artist"}, 300000, "spotify:track:s1", iso(t0), "track"),
			mkItem("Second", []string{"Artist"}, 300000, "spotify:track:s2", iso(t0), "track"),
			mkItem("First", []string{"Artist"}, 200000, "spotify:track:f2", iso(t0), "track"),
		}

		keep, del, err := Resolve(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatal(err)
		}

		if !slices.Equal(keep, []string{"spotify:track:f1", "spotify:track:s1"}) {
			t.Errorf("unexpected keep order: %v", keep)
		}
		if !slices.Equal(del, []string{"spotify:track:f1", "spotify:track:f2", "spotify:track:s1", "spotify:track:s2"}) {
			t.Errorf("unexpected delete order: %v", del)
		}
	})

	t.Run("malformed records default instead of failing", func(t *testing.T) {
		bare := spotify.PlaylistItem{Track: spotify.ItemTrack{Type: "track"}}
		items := []spotify.PlaylistItem{
			bare,
			mkItem("Fine", []string{"Artist"}, 200000, "spotify:track:ok", iso(t0), "track"),
		}

		keep, del, err := Resolve(seq(items), Options{ToleranceSecs: 0})
		if err != nil {
			t.Fatalf("malformed records must never abort a scan: %v", err)
		}
		if len(keep) != 0 || len(del) != 0 {
			t.Errorf("expected no plan, got keep=%v delete=%v", keep, del)
		}
	})

	t.Run("sequence errors surface unmodified", func(t *testing.T) {
		failing := func(yield func(spotify.PlaylistItem, error) bool) {
			yield(spotify.PlaylistItem{}, fmt.Errorf("page fetch failed"))
		}

		_, _, err := Resolve(failing, Options{ToleranceSecs: 0})
		if err == nil {
			t.Fatal("expected error from failing sequence")
		}
	})
}

func TestKeyOf(t *testing.T) {
	t.Run("rounds duration to whole seconds", func(t *testing.T) {
		track := Track{Name: "X", Artists: []string{"A"}, DurationMS: 214600}
		if key := KeyOf(track, false); key.Seconds != 215 {
			t.Errorf("expected 215, got %d", key.Seconds)
		}
	})

	t.Run("source index never affects the key", func(t *testing.T) {
		a := KeyOf(Track{Name: "X", Artists: []string{"A"}, DurationMS: 200000, SourceIndex: 1}, false)
		b := KeyOf(Track{Name: "X", Artists: []string{"A"}, DurationMS: 200000, SourceIndex: 9}, false)
		if !a.matches(b, 0) {
			t.Error("expected identical keys to match")
		}
	})
}
