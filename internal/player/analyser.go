package player

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults: a 256-point transform gives 128 bins.
const (
	DefaultFFTSize   = 256
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Analyser turns the tapped signal into byte magnitudes per frequency bin:
// Blackman window, FFT, temporal smoothing, then a linear map of
// [minDB, maxDB] onto [0, 255].
type Analyser struct {
	tap       *Tap
	size      int
	smoothing float64
	minDB     float64
	maxDB     float64
	fft       *fourier.FFT

	mu       sync.Mutex
	buf      []float64
	coeffs   []complex128
	smoothed []float64
}

// ValidFFTSize reports whether n is a power of two between 32 and 32768.
func ValidFFTSize(n int) bool {
	return n >= 32 && n <= 32768 && n&(n-1) == 0
}

// NewAnalyser reads fftSize samples from tap per snapshot.
func NewAnalyser(tap *Tap, fftSize int) (*Analyser, error) {
	if !ValidFFTSize(fftSize) {
		return nil, fmt.Errorf("player: invalid fft size %d", fftSize)
	}
	return &Analyser{
		tap:       tap,
		size:      fftSize,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
		fft:       fourier.NewFFT(fftSize),
		buf:       make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
	}, nil
}

// FrequencyBinCount is half the transform size.
func (a *Analyser) FrequencyBinCount() int {
	return a.size / 2
}

// ByteFrequencyData fills dst with the current magnitudes and returns the
// number of bins written.
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tap.Samples(a.buf)
	window.Blackman(a.buf)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)

	bins := a.size / 2
	if len(dst) < bins {
		bins = len(dst)
	}
	scale := 255 / (a.maxDB - a.minDB)
	for k := 0; k < a.size/2; k++ {
		mag := cmplx.Abs(a.coeffs[k]) / float64(a.size)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k >= bins {
			continue
		}
		v := scale * (20*math.Log10(a.smoothed[k]) - a.minDB)
		switch {
		case math.IsNaN(v) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
	return bins
}
