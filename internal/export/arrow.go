package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/san-kum/nbody/internal/sim"
)

var trajectorySchema = arrow.NewSchema([]arrow.Field{
	{Name: "time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "index", Type: arrow.PrimitiveTypes.Int64},
	{Name: "px", Type: arrow.PrimitiveTypes.Float64},
	{Name: "py", Type: arrow.PrimitiveTypes.Float64},
	{Name: "pz", Type: arrow.PrimitiveTypes.Float64},
	{Name: "vx", Type: arrow.PrimitiveTypes.Float64},
	{Name: "vy", Type: arrow.PrimitiveTypes.Float64},
	{Name: "vz", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// ToArrow builds a single record holding traj. The caller must Release it.
func ToArrow(traj sim.Trajectory, mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	b := array.NewRecordBuilder(mem, trajectorySchema)
	defer b.Release()

	t := b.Field(0).(*array.Float64Builder)
	idx := b.Field(1).(*array.Int64Builder)
	cols := make([]*array.Float64Builder, 6)
	for i := range cols {
		cols[i] = b.Field(i + 2).(*array.Float64Builder)
	}
	b.Reserve(len(traj))

	for _, s := range traj {
		t.Append(s.Time)
		idx.Append(int64(s.Index))
		cols[0].Append(s.Pos.X)
		cols[1].Append(s.Pos.Y)
		cols[2].Append(s.Pos.Z)
		cols[3].Append(s.Vel.X)
		cols[4].Append(s.Vel.Y)
		cols[5].Append(s.Vel.Z)
	}
	return b.NewRecord()
}

// Arrow writes traj as an Arrow IPC file with one record batch.
func Arrow(w io.Writer, traj sim.Trajectory) error {
	if len(traj) == 0 {
		return ErrEmpty
	}

	mem := memory.NewGoAllocator()
	rec := ToArrow(traj, mem)
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(trajectorySchema), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
