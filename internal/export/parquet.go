package export

import (
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/san-kum/nbody/internal/sim"
)

// Row is one trajectory sample as a flat Parquet record.
type Row struct {
	Time  float64 `parquet:"time"`
	Index int64   `parquet:"index"`
	PX    float64 `parquet:"px"`
	PY    float64 `parquet:"py"`
	PZ    float64 `parquet:"pz"`
	VX    float64 `parquet:"vx"`
	VY    float64 `parquet:"vy"`
	VZ    float64 `parquet:"vz"`
}

const parquetBatch = 1000

func newRow(s sim.Sample) Row {
	return Row{
		Time: s.Time, Index: int64(s.Index),
		PX: s.Pos.X, PY: s.Pos.Y, PZ: s.Pos.Z,
		VX: s.Vel.X, VY: s.Vel.Y, VZ: s.Vel.Z,
	}
}

// Parquet writes traj as a Snappy-compressed Parquet file, in trajectory
// order.
func Parquet(w io.Writer, traj sim.Trajectory) error {
	if len(traj) == 0 {
		return ErrEmpty
	}

	pw := parquet.NewGenericWriter[Row](w, parquet.Compression(&parquet.Snappy))
	rows := make([]Row, 0, parquetBatch)
	for _, s := range traj {
		rows = append(rows, newRow(s))
		if len(rows) == parquetBatch {
			if _, err := pw.Write(rows); err != nil {
				pw.Close()
				return err
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			pw.Close()
			return err
		}
	}
	return pw.Close()
}
