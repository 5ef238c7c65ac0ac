package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/storage"
	"github.com/san-kum/nbody/internal/trajectory"
	"github.com/san-kum/nbody/internal/vector"
)

// Summary is a run's metadata with its per-frame diagnostics and final
// frame, without the full trajectory.
type Summary struct {
	Run       storage.RunMetadata `json:"run"`
	Frames    int                 `json:"frames"`
	Times     []float64           `json:"times"`
	Kinetic   []float64           `json:"kinetic"`
	Potential []float64           `json:"potential"`
	Total     []float64           `json:"total"`
	Momentum  []float64           `json:"momentum"`
	Final     []Particle          `json:"final"`
}

type Particle struct {
	Index int            `json:"index"`
	Pos   vector.Vector3 `json:"pos"`
	Vel   vector.Vector3 `json:"vel"`
}

func NewSummary(meta storage.RunMetadata, frames []trajectory.Frame) Summary {
	series := metrics.NewSeries(frames, meta.Physics.WithDefaults())
	s := Summary{
		Run:       meta,
		Frames:    len(frames),
		Times:     series.Times,
		Kinetic:   series.Kinetic,
		Potential: series.Potential,
		Total:     series.Total,
		Momentum:  series.Momentum,
		Final:     make([]Particle, 0),
	}
	if len(frames) > 0 {
		last := frames[len(frames)-1]
		for i, idx := range last.Indices {
			s.Final = append(s.Final, Particle{Index: idx, Pos: last.State.Pos[i], Vel: last.State.Vel[i]})
		}
	}
	return s
}

func JSON(w io.Writer, s Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}
