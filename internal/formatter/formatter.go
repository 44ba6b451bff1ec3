// package formatter exports duplicate-scan reports to JSON and CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spotidedup/internal/dedupe"
)

// groupJSON is the exported JSON shape of one duplicate group.
type groupJSON struct {
	Key    keyJSON     `json:"key"`
	Tracks []trackJSON `json:"tracks"`
}

type keyJSON struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	RoundedSec int      `json:"rounded_sec"`
}

type trackJSON struct {
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	URI         string   `json:"uri"`
	DurationMS  int      `json:"duration_ms"`
	AddedAt     string   `json:"added_at"`
	SourceIndex int      `json:"source_index"`
}

// GroupsToJSON renders duplicate groups as indented JSON.
func GroupsToJSON(groups []dedupe.Group) ([]byte, error) {
	out := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		gj := groupJSON{
			Key: keyJSON{Title: g.Key.Title, Artists: g.Key.Artists, RoundedSec: g.Key.Seconds},
		}
		for _, t := range g.Tracks {
			gj.Tracks = append(gj.Tracks, trackJSON{
				Name:        t.Name,
				Artists:     t.Artists,
				Album:       t.Album,
				URI:         t.URI,
				DurationMS:  t.DurationMS,
				AddedAt:     t.AddedAt,
				SourceIndex: t.SourceIndex,
			})
		}
		out = append(out, gj)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal groups: %w", err)
	}
	return data, nil
}

// GroupsToCSV renders duplicate groups as CSV, one row per track, with the
// group key flattened into the first column.
func GroupsToCSV(groups []dedupe.Group) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"group_key", "name", "artists", "album", "uri", "added_at", "duration_ms"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, g := range groups {
		key := strings.Join([]string{
			g.Key.Title,
			strings.Join(g.Key.Artists, ","),
			strconv.Itoa(g.Key.Seconds),
		}, "|")

		for _, t := range g.Tracks {
			record := []string{
				key,
				t.Name,
				strings.Join(t.Artists, ", "),
				t.Album,
				t.URI,
				t.AddedAt,
				strconv.Itoa(t.DurationMS),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteGroupsJSON writes the JSON report to path, creating parent
// directories as needed.
func WriteGroupsJSON(groups []dedupe.Group, path string) error {
	data, err := GroupsToJSON(groups)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteGroupsCSV writes the CSV report to path, creating parent directories
// as needed.
func WriteGroupsCSV(groups []dedupe.Group, path string) error {
	data, err := GroupsToCSV(groups)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
