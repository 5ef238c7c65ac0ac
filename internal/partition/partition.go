// Package partition splits the particle index space into contiguous,
// disjoint slices, one per worker.
package partition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every error Split returns.
var ErrInvalid = errors.New("partition: invalid configuration")

// Policy decides what happens to the n % threads particles left over by floor
// division.
type Policy int

const (
	// AbsorbLast gives the remainder to the last slice.
	AbsorbLast Policy = iota
	// Drop leaves the remainder unowned. Those particles are still read by the
	// force kernel but are never advanced.
	Drop
	// Strict rejects particle counts that do not divide evenly.
	Strict
)

func (p Policy) String() string {
	switch p {
	case AbsorbLast:
		return "last"
	case Drop:
		return "drop"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy accepts the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return AbsorbLast, nil
	case "drop":
		return Drop, nil
	case "strict":
		return Strict, nil
	}
	return 0, fmt.Errorf("%w: unknown remainder policy %q", ErrInvalid, s)
}

// Slice is the half-open index range [Offset, Offset+Length).
type Slice struct {
	Offset int
	Length int
}

func (s Slice) End() int { return s.Offset + s.Length }

func (s Slice) Contains(i int) bool { return i >= s.Offset && i < s.End() }

// Error describes a rejected (n, threads) combination.
type Error struct {
	N       int
	Threads int
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("partition: %d particles over %d threads: %s", e.N, e.Threads, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Split divides [0, n) into threads contiguous slices of n/threads particles
// each, ordered by offset. The remainder is handled according to policy.
func Split(n, threads int, policy Policy) ([]Slice, error) {
	switch {
	case n <= 0:
		return nil, &Error{N: n, Threads: threads, Reason: "particle count must be positive"}
	case threads <= 0:
		return nil, &Error{N: n, Threads: threads, Reason: "thread count must be positive"}
	case threads > n:
		return nil, &Error{N: n, Threads: threads, Reason: "thread count exceeds particle count"}
	}

	size := n / threads
	rem := n % threads
	if rem != 0 && policy == Strict {
		return nil, &Error{N: n, Threads: threads, Reason: "particle count is not divisible by thread count"}
	}

	slices := make([]Slice, threads)
	for i := range slices {
		slices[i] = Slice{Offset: i * size, Length: size}
	}
	if policy == AbsorbLast {
		slices[threads-1].Length += rem
	}
	return slices, nil
}

// Covered reports how many indices of [0, n) belong to some slice.
func Covered(slices []Slice) int {
	total := 0
	for _, s := range slices {
		total += s.Length
	}
	return total
}
