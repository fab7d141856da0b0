package engine

import (
	"math"

	"github.com/vsariola/virta"
)

// Oscillator is a 16-bit phase accumulator with a runtime-selected rendering
// algorithm producing one unsigned 8-bit sample per audio tick. The algorithm
// is picked when the corresponding patch field changes, not per sample.
type Oscillator struct {
	phase     uint16
	increment uint16
	parameter uint8
	note      uint8
	shape     uint8
	render    func(*Oscillator) uint8

	// FM modulator state.
	secondaryPhase     uint16
	secondaryIncrement uint16
	secondaryRatio     uint16

	// Vowel formant state, reset pitch-synchronously on carrier wrap.
	formantPhase     [2]uint16
	formantIncrement [2]uint16
}

// SetupAlgorithm selects the render function for the given waveform. Unknown
// shapes render silence.
func (o *Oscillator) SetupAlgorithm(shape uint8) {
	o.shape = shape
	if int(shape) < len(oscRenderTable) {
		o.render = oscRenderTable[shape]
	} else {
		o.render = renderSilence
	}
	if o.shape == virta.WaveformFM && o.secondaryRatio == 0 {
		o.secondaryRatio = fmModulatorRatios[12]
	}
}

// Update refreshes the per-control-tick parameters: the modulated shape
// parameter (pulse width, FM depth, vowel), the integer note and the phase
// increment looked up from the assembled pitch.
func (o *Oscillator) Update(parameter uint8, note uint8, increment uint16) {
	o.parameter = parameter
	o.note = note
	o.increment = increment
	switch o.shape {
	case virta.WaveformFM:
		o.secondaryIncrement = uint16(uint32(increment) * uint32(o.secondaryRatio) >> 8)
	case virta.WaveformVowel:
		v := &vowelFormants[min(int(parameter)/26, len(vowelFormants)-1)]
		for i := range o.formantIncrement {
			o.formantIncrement[i] = uint16(uint32(v[i]) * 65536 / SampleRate)
		}
	}
}

// UpdateSecondaryParameter sets the FM modulator ratio from a semitone offset
// (the oscillator range parameter, rebased so 12 means a unison modulator).
func (o *Oscillator) UpdateSecondaryParameter(offset int) {
	o.secondaryRatio = fmModulatorRatios[min(max(offset, 0), len(fmModulatorRatios)-1)]
}

// Reset restarts the oscillator from a clean phase, including the FM and
// formant sub-phases.
func (o *Oscillator) Reset() {
	o.phase = 0
	o.secondaryPhase = 0
	o.formantPhase[0] = 0
	o.formantPhase[1] = 0
}

// ResetPhase zeroes the main phase only; used for hard sync.
func (o *Oscillator) ResetPhase() { o.phase = 0 }

func (o *Oscillator) Phase() uint16 { return o.phase }

// Render advances the phase by one audio tick and returns the sample.
func (o *Oscillator) Render() uint8 {
	o.phase += o.increment
	if o.render == nil {
		return 128
	}
	return o.render(o)
}

var oscRenderTable = [virta.NumWaveforms]func(*Oscillator) uint8{
	virta.WaveformSaw:      renderSaw,
	virta.WaveformSquare:   renderSquare,
	virta.WaveformTriangle: renderTriangle,
	virta.WaveformSine:     renderSine,
	virta.WaveformFM:       renderFM,
	virta.WaveformVowel:    renderVowel,
}

func renderSilence(o *Oscillator) uint8 { return 128 }

func renderSaw(o *Oscillator) uint8 { return uint8(o.phase >> 8) }

// renderSquare is a pulse with the width offset by the modulated parameter;
// parameter 0 is a 50% square.
func renderSquare(o *Oscillator) uint8 {
	if uint8(o.phase>>8) < 128+o.parameter {
		return 255
	}
	return 0
}

func renderTriangle(o *Oscillator) uint8 {
	if o.phase&0x8000 != 0 {
		return uint8(^o.phase >> 7)
	}
	return uint8(o.phase >> 7)
}

func renderSine(o *Oscillator) uint8 {
	return wavSine[uint8(o.phase>>8)]
}

// renderFM phase-modulates the carrier by a second accumulator running at a
// ratio of the carrier increment; the parameter sets the modulation index.
func renderFM(o *Oscillator) uint8 {
	o.secondaryPhase += o.secondaryIncrement
	offset := u8MulScale8(wavSine[uint8(o.secondaryPhase>>8)], o.parameter<<1)
	return wavSine[uint8(o.phase>>8)+offset]
}

// renderVowel excites two formant accumulators, restarted pitch-synchronously
// every carrier cycle. The parameter selects the vowel.
func renderVowel(o *Oscillator) uint8 {
	if o.phase < o.increment {
		o.formantPhase[0] = 0
		o.formantPhase[1] = 0
	}
	o.formantPhase[0] += o.formantIncrement[0]
	o.formantPhase[1] += o.formantIncrement[1]
	a := wavSine[uint8(o.formantPhase[0]>>8)]
	b := wavSine[uint8(o.formantPhase[1]>>8)]
	return uint8((uint16(a) + uint16(b)) >> 1)
}

// vowelFormants holds the first two formant frequencies, in Hz, of the five
// supported vowels (a, e, i, o, u).
var vowelFormants = [5][2]uint16{
	{700, 1220},
	{530, 1840},
	{400, 2250},
	{570, 840},
	{300, 870},
}

// fmModulatorRatios maps a semitone offset in [-12, +36] (stored rebased by
// +12) to a modulator/carrier frequency ratio in 8.8 fixed point.
var fmModulatorRatios [49]uint16

func init() {
	for i := range fmModulatorRatios {
		fmModulatorRatios[i] = uint16(math.Round(256 * math.Exp2(float64(i-12)/12)))
	}
}
