// Package analysis provides the spectral helpers used to inspect simulated
// deflection waveforms.
package analysis

import (
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform of a power-of-two-length
// series by radix-2 decimation.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

// Blackman returns the n-point Blackman window, the default window the
// analyzer applies before demodulation.
func Blackman(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return w
}

// PowerSpectrum returns the single-sided magnitude spectrum of data,
// zero-padded to the next power of two.
func PowerSpectrum(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, data)

	fft := FFT(padded)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// Spectrum is PowerSpectrum plus the matching frequency axis for a series
// sampled at rate Hz.
func Spectrum(data []float64, rate float64) (freqs, power []float64) {
	power = PowerSpectrum(data)
	freqs = make([]float64, len(power))
	n := len(power) * 2
	for i := range freqs {
		freqs[i] = float64(i) * rate / float64(n)
	}
	return freqs, power
}

// DominantFrequency returns the frequency of the largest non-DC spectral
// component.
func DominantFrequency(data []float64, rate float64) float64 {
	freqs, power := Spectrum(data, rate)
	maxIdx := 0
	maxPower := 0.0
	for i := 1; i < len(power); i++ {
		if power[i] > maxPower {
			maxPower = power[i]
			maxIdx = i
		}
	}
	return freqs[maxIdx]
}
