// Package export writes trajectories and run summaries in formats other
// tools read: JSON, Parquet, Arrow IPC and SVG.
package export

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/san-kum/nbody/internal/sim"
)

var ErrEmpty = errors.New("export: empty trajectory")

type Format string

const (
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatArrow   Format = "arrow"
	FormatSVG     Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatParquet, FormatArrow, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("export: unknown format %q (json, parquet, arrow, svg)", s)
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatArrow {
		return "arrow"
	}
	return string(f)
}

// WriteFile exports a stored run to path in format f.
func WriteFile(path string, f Format, summary Summary, traj sim.Trajectory) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	switch f {
	case FormatJSON:
		err = JSON(out, summary)
	case FormatParquet:
		err = Parquet(out, traj)
	case FormatArrow:
		err = Arrow(out, traj)
	case FormatSVG:
		err = SVG(out, traj, 800, 800)
	default:
		err = fmt.Errorf("export: unknown format %q", f)
	}

	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// byIndex returns a copy of traj sorted by particle index, then time.
func byIndex(traj sim.Trajectory) sim.Trajectory {
	sorted := slices.Clone(traj)
	slices.SortStableFunc(sorted, func(a, b sim.Sample) int {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return sorted
}
