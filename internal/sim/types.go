package sim

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/san-kum/nbody/internal/partition"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/vector"
)

// State is the particle system. Index i is particle i in both slices.
type State struct {
	Pos []vector.Vector3
	Vel []vector.Vector3
}

// NewState returns n particles at the origin, at rest.
func NewState(n int) State {
	return State{
		Pos: make([]vector.Vector3, n),
		Vel: make([]vector.Vector3, n),
	}
}

func (s State) Len() int { return len(s.Pos) }

func (s State) Clone() State {
	c := State{
		Pos: make([]vector.Vector3, len(s.Pos)),
		Vel: make([]vector.Vector3, len(s.Vel)),
	}
	copy(c.Pos, s.Pos)
	copy(c.Vel, s.Vel)
	return c
}

// Validate checks that positions and velocities describe the same particles.
func (s State) Validate() error {
	if len(s.Pos) != len(s.Vel) {
		return &ConfigError{
			Field:  "state",
			Value:  fmt.Sprintf("%d positions, %d velocities", len(s.Pos), len(s.Vel)),
			Reason: "positions and velocities must have the same length",
		}
	}
	return nil
}

func (s State) IsValid() bool {
	for i := range s.Pos {
		if !s.Pos[i].IsFinite() {
			return false
		}
	}
	for i := range s.Vel {
		if !s.Vel[i].IsFinite() {
			return false
		}
	}
	return true
}

// Sample is one recorded (time, particle) point of the trajectory.
type Sample struct {
	Time  float64
	Index int
	Pos   vector.Vector3
	Vel   vector.Vector3
}

type Trajectory []Sample

// Order selects how a merged trajectory is sorted.
type Order int

const (
	// OrderByIndex sorts by particle index, then time.
	OrderByIndex Order = iota
	// OrderByTime sorts by time, then particle index: one frame after another.
	OrderByTime
)

func (o Order) String() string {
	switch o {
	case OrderByIndex:
		return "index"
	case OrderByTime:
		return "time"
	}
	return fmt.Sprintf("order(%d)", int(o))
}

func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index":
		return OrderByIndex, nil
	case "time":
		return OrderByTime, nil
	}
	return 0, &ConfigError{Field: "order", Value: s, Reason: "expected index or time"}
}

// Observer is notified after every completed step. It is called from a
// single worker goroutine.
type Observer interface {
	OnStep(step, steps int, t float64)
}

type Config struct {
	Threads   int
	Dt        float64
	MaxTime   float64
	Physics   physics.Params
	Remainder partition.Policy
	Order     Order
	// SampleEvery records every k-th step. Zero means every step.
	SampleEvery   int
	ValidateState bool
}

// DefaultConfig returns the settings used for n particles: the run lasts one
// characteristic time and takes a thousand steps.
func DefaultConfig(n int) Config {
	p := physics.DefaultParams()
	maxTime := physics.CharacteristicTime(n, p.BoxLength, p.G)
	return Config{
		Threads:       4,
		Dt:            1e-3 * maxTime,
		MaxTime:       maxTime,
		Physics:       p,
		Remainder:     partition.AbsorbLast,
		Order:         OrderByIndex,
		SampleEvery:   1,
		ValidateState: true,
	}
}

type Result struct {
	Trajectory Trajectory
	Final      State
	Slices     []partition.Slice
	Steps      int
	Elapsed    time.Duration
}

// Upper bounds on a single run. ValidateConfig rejects configurations
// beyond them, which also keeps step and sample counts inside int.
const (
	MaxSteps   = math.MaxInt32
	MaxSamples = math.MaxInt32
)

// StepCount is the number of fixed steps of size dt that fit in maxTime.
// Quotients within rounding of an integer snap to it, so maxTime = k*dt
// gives exactly k steps. Quotients too large for int saturate at math.MaxInt.
func StepCount(maxTime, dt float64) int {
	if dt <= 0 || maxTime <= 0 {
		return 0
	}
	q := maxTime / dt
	if q >= float64(math.MaxInt) {
		return math.MaxInt
	}
	if r := math.Round(q); math.Abs(q-r) <= 1e-9*math.Max(1, r) {
		return int(r)
	}
	return int(math.Floor(q))
}
