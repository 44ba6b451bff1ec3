package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spotidedup/internal/shared"
)

// ScanRecord captures one duplicate scan for the history table.
type ScanRecord struct {
	ID             string
	PlaylistID     string
	Strict         bool
	ToleranceSecs  int
	TrackCount     int
	GroupCount     int
	DuplicateCount int
	CreatedAt      time.Time
}

// ScanRepository persists scan history rows.
type ScanRepository struct {
	db *sql.DB
}

// NewScanRepository creates a ScanRepository backed by the given database.
func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// RecordScan inserts a scan history row, assigning an ID and timestamp when
// absent.
func (r *ScanRepository) RecordScan(ctx context.Context, rec ScanRecord) error {
	if rec.ID == "" {
		rec.ID = shared.GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scans (id, playlist_id, strict, tolerance_secs, track_count, group_count, duplicate_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlaylistID, rec.Strict, rec.ToleranceSecs,
		rec.TrackCount, rec.GroupCount, rec.DuplicateCount,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// ListRecent returns up to limit scan rows for a playlist, newest first.
func (r *ScanRepository) ListRecent(ctx context.Context, playlistID string, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, playlist_id, strict, tolerance_secs, track_count, group_count, duplicate_count, created_at
		 FROM scans WHERE playlist_id = ? ORDER BY created_at DESC LIMIT ?`,
		playlistID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.PlaylistID, &rec.Strict, &rec.ToleranceSecs,
			&rec.TrackCount, &rec.GroupCount, &rec.DuplicateCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
