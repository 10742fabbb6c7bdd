package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sandquake/internal/coords"
	"sandquake/internal/pipeline"
	"sandquake/internal/trace"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

func listCoords(set []coords.Coordinate) string {
	if len(set) == 0 {
		return "none"
	}
	parts := make([]string, len(set))
	for i, c := range set {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// renderSummary formats a finished run for the terminal.
func renderSummary(res *pipeline.Result, written []string, plotWidth int) string {
	cls := res.Classification
	w, h := res.Model.Dims()
	rows := []string{
		headerStyle.Render("sandquake run"),
		row("grid", fmt.Sprintf("%dx%d cells", w, h)),
		row("velocity", fmt.Sprintf("%.2f..%.2f km/s", res.Model.Min(), res.Model.Max())),
		row("sources", fmt.Sprintf("%s (%s)", listCoords(res.Sources), cls.Sources.Status)),
		row("obstacles", fmt.Sprintf("%s (%s)", listCoords(res.Obstacles), cls.Obstacles.Status)),
		row("time step", fmt.Sprintf("%.4f ms x %d", res.TimeStep, res.Steps)),
		row("frames", fmt.Sprintf("%d every %d steps", res.Cube.Len(), res.Cube.Stride)),
		row("backend", res.Backend),
		row("elapsed", res.Elapsed.Round(time.Millisecond).String()),
	}
	for _, p := range written {
		rows = append(rows, row("wrote", p))
	}
	out := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	if len(res.Traces) > 0 {
		tr := res.Traces[0]
		plot := trace.Plot(tr.Samples, plotWidth, 10, "receiver "+tr.At.String())
		if plot != "" {
			out = lipgloss.JoinVertical(lipgloss.Left, out, graphStyle.Render(plot))
		}
	}
	return out
}
