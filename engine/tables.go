package engine

import "math"

// Rates. Audio runs at SampleRate; the control tick runs once per BlockSize
// samples.
const (
	SampleRate  = 44100
	BlockSize   = 40
	ControlRate = SampleRate / BlockSize
)

// Pitch is carried in 1/128ths of a semitone (a 7-bit fraction below the MIDI
// note number). The oscillator increment table covers the topmost octave only;
// pitches below it are transposed up in whole octaves and the looked-up
// increment is shifted right once per octave.
const (
	octave          = 12 * 128
	lowestNote      = 24 * 128
	highestNote     = 108 * 128
	pitchTableStart = 96 * 128
)

// The lookup tables are immutable after package init: the render paths only
// index them. All increment entries are nonzero by construction and the
// oscillator and LFO tables are monotonically increasing.
var (
	// oscillatorIncrements maps pitch - pitchTableStart, in 1/64th semitone
	// steps, to a 16-bit phase increment per audio tick.
	oscillatorIncrements [(highestNote - pitchTableStart) / 2]uint16

	// envPortamentoIncrements maps the shared envelope/portamento time
	// parameter to a 16-bit increment per control tick: 65536 would traverse
	// the full range in one tick. Index 0 is instantaneous; the curve decays
	// exponentially towards multi-second glides.
	envPortamentoIncrements [128]uint16

	// lfoIncrements maps a free-running LFO rate (rate parameter minus the
	// sync threshold) to a 16-bit phase increment per control tick.
	lfoIncrements [112]uint16

	// wavSine is one cycle of a sine, biased to unsigned 8 bits.
	wavSine [256]uint8
)

func init() {
	for i := range oscillatorIncrements {
		note := float64(pitchTableStart)/128 + float64(i)/64
		freq := 440 * math.Exp2((note-69)/12)
		oscillatorIncrements[i] = uint16(math.Round(65536 * freq / SampleRate))
	}
	for i := range envPortamentoIncrements {
		v := math.Round(65536 / math.Exp2(float64(i)/10))
		if v > 65535 {
			v = 65535
		}
		if v < 1 {
			v = 1
		}
		envPortamentoIncrements[i] = uint16(v)
	}
	for i := range lfoIncrements {
		freq := 0.05 * math.Exp2(float64(i)/12.8) // 0.05 Hz .. ~20 Hz
		v := math.Round(65536 * freq / ControlRate)
		if v < 1 {
			v = 1
		}
		lfoIncrements[i] = uint16(v)
	}
	for i := range wavSine {
		s := math.Sin(2 * math.Pi * float64(i) / 256)
		wavSine[i] = uint8(math.Round(127.5 + 127.5*s))
	}
}

// scaleOffsets holds the per-pitch-class tuning offsets, in 1/128ths of a
// semitone, of the supported scales/ragas. The keyboard raga parameter 0 means
// equal temperament (no offset); parameter n >= 1 selects scaleOffsets[n-1].
var scaleOffsets = [][12]int8{
	// just intonation
	{0, 15, 5, 20, -18, -3, -22, 3, 18, -20, 23, -15},
	// pythagorean
	{0, -12, 5, -8, 10, -3, -15, 3, -10, 8, -5, 13},
	// quarter-tone shruti-style inflection: flattened thirds and sevenths
	{0, 0, 0, -32, -32, 0, 0, 0, 0, -32, -32, 0},
}

// NumScales is the number of selectable scale/raga tables.
var NumScales = len(scaleOffsets)

// scaleOffset returns the tuning offset for a note under the given raga
// parameter. Unknown raga ids fall back to equal temperament.
func scaleOffset(raga uint8, note uint8) int16 {
	if raga == 0 || int(raga) > len(scaleOffsets) {
		return 0
	}
	return int16(scaleOffsets[raga-1][note%12])
}
