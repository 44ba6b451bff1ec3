// package ui renders scan and repair results for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"spotidedup/internal/dedupe"
	"spotidedup/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF5F87", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RenderScan renders a duplicate scan summary: a headline plus one line per
// group.
func RenderScan(result *tasks.ScanResult) string {
	var b strings.Builder

	name := result.PlaylistName
	if name == "" {
		name = result.PlaylistID
	}

	b.WriteString(styles.title.Render(fmt.Sprintf("Duplicates in %q", name)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Found %s duplicate tracks in %s groups (%d tracks scanned)\n",
		styles.warn.Render(fmt.Sprintf("%d", result.Duplicates)),
		styles.warn.Render(fmt.Sprintf("%d", len(result.Groups))),
		result.TrackCount))

	for i, g := range result.Groups {
		b.WriteString(renderGroup(i+1, g))
	}

	if len(result.Groups) == 0 {
		b.WriteString(styles.ok.Render("No duplicates found") + "\n")
	}

	return b.String()
}

func renderGroup(n int, g dedupe.Group) string {
	keeper := g.Keeper()
	return fmt.Sprintf("[%d] %s — %s  (x%d)\n",
		n, keeper.Name, strings.Join(keeper.Artists, ", "), len(g.Tracks))
}

// RenderReport renders the outcome of a repair run, flagging partial
// completion when the run stopped before the final phase.
func RenderReport(report *tasks.Report) string {
	var b strings.Builder

	if report.Phase == tasks.PhaseDone {
		b.WriteString(styles.ok.Render("Repair complete") + "\n")
	} else {
		b.WriteString(styles.err.Render(fmt.Sprintf("Repair stopped after phase %q", report.Phase)) + "\n")
		b.WriteString(styles.help.Render("re-running is safe; the same plan will be recomputed") + "\n")
	}

	b.WriteString(fmt.Sprintf("Kept %d tracks, removed %d (from %d).\n",
		report.KeptCount, report.RemovedCount, report.OriginalCount))
	return b.String()
}
