package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrShortSeries = errors.New("analysis: series too short")

type Spectrum struct {
	// Freqs[k] is k / (n*dt), up to the Nyquist frequency.
	Freqs []float64
	Power []float64
}

// PowerSpectrum returns the one-sided amplitude spectrum of series sampled
// every dt. The mean is removed first, so Power[0] is zero.
func PowerSpectrum(series []float64, dt float64) (Spectrum, error) {
	n := len(series)
	if n < 4 {
		return Spectrum{}, ErrShortSeries
	}

	centred := make([]float64, n)
	copy(centred, series)
	floats.AddConst(-stat.Mean(series, nil), centred)

	coeffs := fft.FFTReal(centred)
	half := n/2 + 1
	s := Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}
	return s, nil
}

// DominantFrequency is the non-zero frequency with the most power.
func DominantFrequency(s Spectrum) (freq, power float64) {
	if len(s.Power) < 2 {
		return 0, 0
	}
	k := floats.MaxIdx(s.Power[1:]) + 1
	return s.Freqs[k], s.Power[k]
}
