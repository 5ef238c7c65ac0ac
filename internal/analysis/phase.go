package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/vector"
)

// Axis selects a Cartesian component.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("analysis: unknown axis %q", s)
}

func (a Axis) of(v vector.Vector3) float64 {
	switch a {
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	}
	return v.X
}

// PhasePortrait holds one particle's position against its velocity along a
// single axis, in time order.
type PhasePortrait struct {
	Index  int
	Axis   Axis
	Points []struct{ X, Y float64 }
}

// NewPhasePortrait returns nil if traj holds no samples of particle index.
func NewPhasePortrait(traj sim.Trajectory, index int, axis Axis) *PhasePortrait {
	p := &PhasePortrait{Index: index, Axis: axis}
	for _, s := range traj {
		if s.Index != index {
			continue
		}
		p.Points = append(p.Points, struct{ X, Y float64 }{X: axis.of(s.Pos), Y: axis.of(s.Vel)})
	}
	if len(p.Points) == 0 {
		return nil
	}
	return p
}

// PhasePortraitToASCII renders the portrait on a width x height canvas.
func PhasePortraitToASCII(portrait *PhasePortrait, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
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
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// zero velocity
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
