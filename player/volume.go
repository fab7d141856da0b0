package player

import (
	"github.com/viterin/vek/vek32"
)

// VolumeAnalyzer measures the smoothed output power of the rendered blocks,
// linear in [0, 1] (1 = full-scale square wave). Used for the CLI level meter.
type VolumeAnalyzer struct {
	Level float32

	samples []float32
	powers  []float32
}

// Smoothing factor per block, roughly a 100 ms time constant at the default
// block size.
const volumeAlpha = 0.01

// Update folds one block into the level estimate.
func (v *VolumeAnalyzer) Update(buffer [][2]float32) {
	if len(buffer) == 0 {
		return
	}
	if cap(v.samples) < 2*len(buffer) {
		v.samples = make([]float32, 2*len(buffer))
		v.powers = make([]float32, 2*len(buffer))
	}
	samples := v.samples[:2*len(buffer)]
	for i, frame := range buffer {
		samples[2*i] = frame[0]
		samples[2*i+1] = frame[1]
	}
	powers := vek32.Mul_Into(v.powers[:len(samples)], samples, samples)
	mean := vek32.Mean(powers)
	v.Level += (mean - v.Level) * volumeAlpha
}
