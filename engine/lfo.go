package engine

import "github.com/vsariola/virta"

// LFO is a 16-bit phase accumulator with a selectable waveform. Its increment
// is set externally, either from the free-running rate table or derived from
// the sequencer tempo (see Engine.UpdateModulationIncrements).
type LFO struct {
	phase     uint16
	increment uint16
	shape     uint8
	value     uint8
	rng       noiseGenerator
}

func (l *LFO) Init() {
	l.phase = 0
	l.value = 128
	l.rng.reset()
}

func (l *LFO) Update(shape uint8, increment uint16) {
	l.shape = shape
	l.increment = increment
}

// ResetPhase forces the phase back to zero. Tempo-synced LFOs are reset this
// way on step boundaries to bound accumulated rounding drift.
func (l *LFO) ResetPhase() { l.phase = 0 }

func (l *LFO) Phase() uint16 { return l.phase }

// Render advances the phase by one control tick and returns the output value.
func (l *LFO) Render() uint8 {
	wrapped := l.phase+l.increment < l.phase
	l.phase += l.increment
	switch l.shape {
	case virta.LFOSquare:
		if l.phase&0x8000 != 0 {
			l.value = 255
		} else {
			l.value = 0
		}
	case virta.LFORamp:
		l.value = uint8(l.phase >> 8)
	case virta.LFORandom:
		// Sample and hold, renewed once per cycle.
		if wrapped {
			l.rng.update()
			l.value = l.rng.msb()
		}
	default:
		if l.phase&0x8000 != 0 {
			l.value = uint8(^l.phase >> 7)
		} else {
			l.value = uint8(l.phase >> 7)
		}
	}
	return l.value
}
