package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/nbody/internal/sim"
)

var palette = []string{"#00ff9c", "#ff6ac1", "#57c7ff", "#f3f99d", "#ff5c57", "#9aedfe", "#c792ea", "#ffb86c"}

type bounds struct {
	minX, minY     float64
	rangeX, rangeY float64
}

func newBounds(xs, ys []float64) bounds {
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	return bounds{minX: minX, minY: minY, rangeX: rangeX * 1.2, rangeY: rangeY * 1.2}
}

func (b bounds) project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.minX) / b.rangeX * float64(width)
	py := float64(height) - (y-b.minY)/b.rangeY*float64(height)
	return px, py
}

func svgHeader(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func writePath(sb *strings.Builder, xs, ys []float64, b bounds, width, height int, stroke string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i := range xs {
		x, y := b.project(xs[i], ys[i], width, height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// TrajectoryToSVG draws a single polyline through points.
func TrajectoryToSVG(points []struct{ X, Y float64 }, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	var sb strings.Builder
	svgHeader(&sb, width, height)
	writePath(&sb, xs, ys, newBounds(xs, ys), width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// SVG draws the x-y projection of every particle's path, one colour per
// particle, on a shared scale. Particles with fewer than two samples are
// drawn as a dot.
func SVG(w io.Writer, traj sim.Trajectory, width, height int) error {
	if len(traj) == 0 {
		return ErrEmpty
	}

	paths := make(map[int][]sim.Sample)
	order := make([]int, 0)
	allX := make([]float64, 0, len(traj))
	allY := make([]float64, 0, len(traj))
	for _, s := range byIndex(traj) {
		if _, ok := paths[s.Index]; !ok {
			order = append(order, s.Index)
		}
		paths[s.Index] = append(paths[s.Index], s)
		allX = append(allX, s.Pos.X)
		allY = append(allY, s.Pos.Y)
	}
	b := newBounds(allX, allY)

	var sb strings.Builder
	svgHeader(&sb, width, height)
	for n, idx := range order {
		samples := paths[idx]
		colour := palette[n%len(palette)]
		if len(samples) < 2 {
			x, y := b.project(samples[0].Pos.X, samples[0].Pos.Y, width, height)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"1.5\" fill=\"%s\"/>\n", x, y, colour)
			continue
		}
		xs := make([]float64, len(samples))
		ys := make([]float64, len(samples))
		for i, s := range samples {
			xs[i], ys[i] = s.Pos.X, s.Pos.Y
		}
		writePath(&sb, xs, ys, b, width, height, colour)
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
