package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"spotidedup/internal/formatter"
	"spotidedup/internal/repositories"
	"spotidedup/internal/spotify"
	"spotidedup/internal/tasks"
	"spotidedup/internal/ui"
)

// Check scans a playlist and prints its duplicate groups, optionally
// exporting JSON/CSV reports.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.String("playlist")
	opts := tasks.Options{
		Strict:        cmd.Bool("strict"),
		ToleranceSecs: cmd.Int("tol-secs"),
	}

	engine := r.ensureEngine()

	r.logger.Info("scanning playlist", "playlist", spotify.ParsePlaylistID(playlist), "tolerance", opts.ToleranceSecs, "strict", opts.Strict)
	result, err := engine.Scan(ctx, playlist, opts)
	if err != nil {
		return err
	}

	r.writePlain("%s", ui.RenderScan(result))

	if path := cmd.String("json"); path != "" {
		if err := formatter.WriteGroupsJSON(result.Groups, path); err != nil {
			return err
		}
		r.writePlain("Wrote JSON: %s\n", path)
	}

	if path := cmd.String("csv"); path != "" {
		if err := formatter.WriteGroupsCSV(result.Groups, path); err != nil {
			return err
		}
		r.writePlain("Wrote CSV: %s\n", path)
	}

	return nil
}

// Delete scans a playlist with user auth, shows the duplicate summary, and
// after confirmation removes all duplicate URIs and re-adds one keeper per
// group.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.String("playlist")
	opts := tasks.Options{
		Strict:        cmd.Bool("strict"),
		ToleranceSecs: cmd.Int("tol-secs"),
		Mode:          spotify.ModeUser, // private playlists need user auth anyway
	}

	engine := r.ensureEngine()

	result, err := engine.Scan(ctx, playlist, opts)
	if err != nil {
		return err
	}

	r.writePlain("%s", ui.RenderScan(result))

	if result.Duplicates <= 0 {
		r.writePlain("Nothing to delete\n")
		return nil
	}

	if !cmd.Bool("force") && !r.confirm("Proceed to wipe duplicate URIs and re-add one keeper per group? [y/N]: ") {
		r.writePlain("Aborting deletion\n")
		return nil
	}

	report, err := engine.Repair(ctx, playlist, opts)
	if report != nil {
		r.writePlain("%s", ui.RenderReport(report))
	}
	return err
}

// History prints recent recorded scans for a playlist.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	records, err := repositories.NewScanRepository(db).ListRecent(ctx, spotify.ParsePlaylistID(cmd.String("playlist")), cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.writeJSON(records, true)
}

// confirm reads one line from the runner's input and reports whether the
// user answered yes.
func (r *Runner) confirm(prompt string) bool {
	r.writePlain("%s", prompt)

	reader := bufio.NewReader(r.input)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
