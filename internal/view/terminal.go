// Package view renders analyzer state for terminals and machine consumers.
package view

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
)

const gaugeWidth = 41

var (
	colorHigh    = lipgloss.Color("#e53935")
	colorMedium  = lipgloss.Color("#FFC107")
	colorLow     = lipgloss.Color("#8BC34A")
	colorUnknown = lipgloss.Color("#9e9e9e")
	colorInfo    = lipgloss.Color("#2196F3")
)

type styles struct {
	title     lipgloss.Style
	score     lipgloss.Style
	muted     lipgloss.Style
	clause    lipgloss.Style
	number    lipgloss.Style
	category  lipgloss.Style
	errorBox  lipgloss.Style
	errorHead lipgloss.Style
	filename  lipgloss.Style
	severity  map[analysis.SeverityClass]lipgloss.Style
}

// Terminal writes a styled rendering of a snapshot. Colors are dropped when
// the writer is not a terminal or NO_COLOR is set.
type Terminal struct {
	out    io.Writer
	styles styles
}

// NewTerminal returns a renderer bound to out.
func NewTerminal(out io.Writer) *Terminal {
	r := lipgloss.NewRenderer(out)
	badge := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(c).Padding(0, 1)
	}
	return &Terminal{
		out: out,
		styles: styles{
			title:     r.NewStyle().Bold(true).Foreground(colorInfo),
			score:     r.NewStyle().Bold(true),
			muted:     r.NewStyle().Faint(true),
			clause:    r.NewStyle().Bold(true),
			number:    r.NewStyle().Bold(true).Foreground(colorHigh),
			category:  r.NewStyle().Foreground(colorInfo),
			errorBox:  r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorHigh).Padding(0, 1),
			errorHead: r.NewStyle().Bold(true).Foreground(colorHigh),
			filename:  r.NewStyle().Italic(true),
			severity: map[analysis.SeverityClass]lipgloss.Style{
				analysis.SeverityHigh:    badge(colorHigh),
				analysis.SeverityMedium:  badge(colorMedium),
				analysis.SeverityLow:     badge(colorLow),
				analysis.SeverityUnknown: badge(colorUnknown),
			},
		},
	}
}

// Render writes the snapshot.
func (t *Terminal) Render(snap analyzer.Snapshot) error {
	var b strings.Builder
	s := t.styles

	if snap.FilenameVisible {
		fmt.Fprintf(&b, "%s %s\n", s.muted.Render("Analyzed:"), s.filename.Render(snap.Filename))
	}

	fmt.Fprintf(&b, "%s %s\n", s.title.Render("Risk Score:"), s.score.Render(snap.Score))
	fmt.Fprintf(&b, "%s\n", Gauge(snap.Indicator))

	if snap.ClausesVisible && len(snap.Clauses) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.title.Render("Risky Clauses"))
		for _, entry := range snap.Clauses {
			fmt.Fprintf(&b, "%s %s\n", s.number.Render(fmt.Sprintf("%2d.", entry.Number)), s.clause.Render(entry.Text))
			fmt.Fprintf(&b, "    %s\n", entry.Explanation)
			badge, ok := s.severity[entry.Class]
			if !ok {
				badge = s.severity[analysis.SeverityUnknown]
			}
			fmt.Fprintf(&b, "    %s %s\n", badge.Render(entry.Severity), s.category.Render(entry.Category))
		}
	}

	if snap.ErrorVisible && snap.Error != nil {
		var body strings.Builder
		body.WriteString(s.errorHead.Render("Error: " + snap.Error.Text))
		if len(snap.Error.Hints) > 0 {
			body.WriteString("\n\nTroubleshooting steps:")
			for _, hint := range snap.Error.Hints {
				body.WriteString("\n  • " + hint)
			}
		}
		fmt.Fprintf(&b, "\n%s\n", s.errorBox.Render(body.String()))
	}

	_, err := io.WriteString(t.out, b.String())
	return err
}

// Gauge draws the 0–100 scale with a marker at the indicator offset. Offsets
// outside the scale are pinned to its ends; non-numeric offsets draw no
// marker.
func Gauge(offset string) string {
	cells := []rune(strings.Repeat("─", gaugeWidth))
	if pos, ok := markerPosition(offset); ok {
		cells[pos] = '▲'
	}
	return "0 " + string(cells) + " 100"
}

func markerPosition(offset string) (int, bool) {
	value, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(offset), "%"), 64)
	if err != nil || math.IsNaN(value) {
		return 0, false
	}
	value = math.Max(0, math.Min(100, value))
	return int(math.Round(value / 100 * float64(gaugeWidth-1))), true
}
