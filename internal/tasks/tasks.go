// package tasks orchestrates duplicate scans and repairs against a playlist.
//
// The core abstraction is Engine, which drives the read-resolve-mutate
// pipeline strictly sequentially: read all pages, resolve duplicates, then
// apply the mutation plan. Repair is modeled as an explicit two-phase plan so
// callers can report exactly which phase a partial failure reached.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/charmbracelet/log"

	"spotidedup/internal/dedupe"
	"spotidedup/internal/repositories"
	"spotidedup/internal/shared"
	"spotidedup/internal/spotify"
)

// PlaylistClient is the surface of the Spotify client the engine uses.
// This abstraction allows for easier testing and decoupling from the
// concrete implementation.
type PlaylistClient interface {
	Items(ctx context.Context, playlist string, mode spotify.Mode) iter.Seq2[spotify.PlaylistItem, error]
	PlaylistName(ctx context.Context, playlist string, mode spotify.Mode) (string, error)
	RemoveTracks(ctx context.Context, playlist string, uris []string) error
	AddTracks(ctx context.Context, playlist string, uris []string, position int) error
}

// ScanRecorder persists scan history. Recording failures are logged, never
// fatal.
type ScanRecorder interface {
	RecordScan(ctx context.Context, rec repositories.ScanRecord) error
}

// Options configures a scan or repair run.
type Options struct {
	Strict        bool
	ToleranceSecs int
	Mode          spotify.Mode // credential mode for reads; repairs always use user auth
}

// ScanResult contains everything a check run learned about a playlist.
type ScanResult struct {
	PlaylistID   string
	PlaylistName string
	TrackCount   int // track-typed items seen
	Groups       []dedupe.Group
	Duplicates   int // removable tracks across all groups
}

// Phase identifies how far a repair progressed. A failed repair reports the
// last phase that completed.
type Phase string

const (
	PhaseResolve Phase = "resolve" // plan computed, nothing mutated
	PhaseDelete  Phase = "delete"  // deletions applied
	PhaseDone    Phase = "done"    // keepers re-added
)

// Plan is the full mutation plan computed before anything is touched.
type Plan struct {
	KeepURIs   []string
	DeleteURIs []string
}

// Report summarizes a repair. There is no rollback: if re-adding fails after
// deletion succeeded, Phase tells the caller where things stopped and an
// idempotent re-run is the recovery path.
type Report struct {
	OriginalCount int // track-typed items before mutation
	KeptCount     int
	RemovedCount  int
	Phase         Phase
	Plan          Plan
}

// Engine drives duplicate scans and repairs.
type Engine struct {
	client  PlaylistClient
	history ScanRecorder
	logger  *log.Logger
}

// NewEngine creates an Engine. history may be nil to disable scan recording.
func NewEngine(client PlaylistClient, history ScanRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{client: client, history: history, logger: logger}
}

// Scan reads the whole playlist and reports its duplicate groups without
// mutating anything. Public reads use app credentials; if the playlist turns
// out to be private or restricted the read is retried with user auth.
func (e *Engine) Scan(ctx context.Context, playlist string, opts Options) (*ScanResult, error) {
	mode := opts.Mode
	if mode == "" {
		mode = spotify.ModeApp
	}

	items, err := e.collectItems(ctx, playlist, mode)
	if err != nil && mode == spotify.ModeApp && isRestricted(err) {
		e.logger.Info("playlist may be private or restricted, retrying with user auth")
		mode = spotify.ModeUser
		items, err = e.collectItems(ctx, playlist, mode)
	}
	if err != nil {
		var upstream *spotify.UpstreamError
		if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, err)
		}
		return nil, err
	}

	groups, err := dedupe.Groups(itemSeq(items), dedupe.Options{Strict: opts.Strict, ToleranceSecs: opts.ToleranceSecs})
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		PlaylistID: spotify.ParsePlaylistID(playlist),
		TrackCount: countTracks(items),
		Groups:     groups,
		Duplicates: dedupe.DuplicateCount(groups),
	}

	if name, err := e.client.PlaylistName(ctx, playlist, mode); err == nil {
		result.PlaylistName = name
	} else {
		e.logger.Debug("could not fetch playlist name", "error", err)
	}

	e.record(ctx, result, opts)
	return result, nil
}

// Repair computes the full keep/delete plan, removes every URI in the delete
// set (all copies, matched by URI), then re-adds exactly one keeper per
// duplicated key. Deletion and re-addition are two independent call
// sequences with no transactional guarantee.
func (e *Engine) Repair(ctx context.Context, playlist string, opts Options) (*Report, error) {
	items, err := e.collectItems(ctx, playlist, spotify.ModeUser)
	if err != nil {
		return nil, err
	}

	keep, del, err := dedupe.Resolve(itemSeq(items), dedupe.Options{Strict: opts.Strict, ToleranceSecs: opts.ToleranceSecs})
	if err != nil {
		return nil, err
	}

	report := &Report{
		OriginalCount: countTracks(items),
		KeptCount:     len(keep),
		RemovedCount:  len(del),
		Phase:         PhaseResolve,
		Plan:          Plan{KeepURIs: keep, DeleteURIs: del},
	}

	if len(del) > 0 {
		if err := e.client.RemoveTracks(ctx, playlist, del); err != nil {
			return report, fmt.Errorf("delete phase: %w", err)
		}
	}
	report.Phase = PhaseDelete

	if len(keep) > 0 {
		if err := e.client.AddTracks(ctx, playlist, keep, -1); err != nil {
			return report, fmt.Errorf("re-add phase: %w", err)
		}
	}
	report.Phase = PhaseDone

	e.logger.Info("repair complete",
		"original", report.OriginalCount, "kept", report.KeptCount, "removed", report.RemovedCount)
	return report, nil
}

// collectItems drains the lazy page sequence into memory.
func (e *Engine) collectItems(ctx context.Context, playlist string, mode spotify.Mode) ([]spotify.PlaylistItem, error) {
	var items []spotify.PlaylistItem
	for item, err := range e.client.Items(ctx, playlist, mode) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (e *Engine) record(ctx context.Context, result *ScanResult, opts Options) {
	if e.history == nil {
		return
	}

	rec := repositories.ScanRecord{
		PlaylistID:     result.PlaylistID,
		Strict:         opts.Strict,
		ToleranceSecs:  opts.ToleranceSecs,
		TrackCount:     result.TrackCount,
		GroupCount:     len(result.Groups),
		DuplicateCount: result.Duplicates,
	}
	if err := e.history.RecordScan(ctx, rec); err != nil {
		e.logger.Warn("failed to record scan history", "error", err)
	}
}

// isRestricted reports whether the upstream rejected the read in a way user
// auth might fix.
func isRestricted(err error) bool {
	var upstream *spotify.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	return upstream.Status == http.StatusUnauthorized ||
		upstream.Status == http.StatusForbidden ||
		upstream.Status == http.StatusNotFound
}

func countTracks(items []spotify.PlaylistItem) int {
	n := 0
	for _, item := range items {
		if item.Track.Type == "track" {
			n++
		}
	}
	return n
}

// itemSeq adapts an in-memory slice to the lazy sequence shape the resolver
// consumes.
func itemSeq(items []spotify.PlaylistItem) iter.Seq2[spotify.PlaylistItem, error] {
	return func(yield func(spotify.PlaylistItem, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
