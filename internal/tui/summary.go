package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nbody/internal/storage"
)

// Summary renders a finished run as a bordered panel. energy, if given, is
// drawn as a sparkline.
func Summary(meta storage.RunMetadata, energy []float64) string {
	row := func(label, value string) string {
		return MetricLabel.Render(label) + MetricValue.Render(value)
	}

	lines := []string{
		Title.Render(meta.ID),
		"",
		row("particles", fmt.Sprintf("%d", meta.Particles)),
		row("threads", fmt.Sprintf("%d", meta.Threads)),
		row("integrator", meta.Integrator),
		row("init", fmt.Sprintf("%s (seed %d)", meta.Init, meta.Seed)),
		row("steps", fmt.Sprintf("%d x %.4g", meta.Steps, meta.Dt)),
		row("samples", fmt.Sprintf("%d", meta.Samples)),
		row("elapsed", fmt.Sprintf("%.3fs", meta.Elapsed)),
	}

	if len(meta.Metrics) > 0 {
		lines = append(lines, "")
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			lines = append(lines, row(name, fmt.Sprintf("%.6g", meta.Metrics[name])))
		}
	}

	if len(energy) > 0 {
		lines = append(lines, "", MetricLabel.Render("energy")+Sparkline(energy, 40))
	}

	return Panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RunTable lists runs one per line.
func RunTable(runs []storage.RunMetadata) string {
	if len(runs) == 0 {
		return Subtle.Render("no runs")
	}
	var sb strings.Builder
	header := fmt.Sprintf("%-32s %8s %7s %-15s %10s", "ID", "N", "THREADS", "INTEGRATOR", "ELAPSED")
	sb.WriteString(Title.Render(header) + "\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-32s %8d %7d %-15s %9.3fs\n", r.ID, r.Particles, r.Threads, r.Integrator, r.Elapsed)
	}
	return sb.String()
}
