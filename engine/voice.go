package engine

import "github.com/vsariola/virta"

const (
	NumVoices      = 1
	NumEnvelopes   = 2
	NumLFOs        = 2
	NumOscillators = 2
)

// Voice owns the envelope pair, the portamento state, the voice-local
// modulation sources, the resolved modulation destinations and the three
// oscillators. Control() resolves the modulation matrix once per control
// tick; Audio() renders one sample.
type Voice struct {
	engine *Engine

	envelopes [NumEnvelopes]Envelope
	dead      bool

	pitchIncrement int16
	pitchTarget    int16
	pitchValue     int16

	modSources      [virta.NumVoiceModSources]uint8
	modDestinations [virta.NumModDestinations]uint8

	osc    [NumOscillators]Oscillator
	subOsc Oscillator

	signal       uint8
	osc1PhaseMSB uint8

	// Accumulator scratch, reused every tick to keep Control allocation-free.
	dst [virta.NumModDestinations]int16
}

func voiceSource(s virta.ModSource) int { return int(s) - virta.NumGlobalModSources }

func (v *Voice) Init(e *Engine) {
	v.engine = e
	v.pitchValue = 0
	v.pitchIncrement = 0
	v.signal = 128
	for i := range v.envelopes {
		v.envelopes[i].Init()
	}
}

func (v *Voice) TriggerEnvelope(stage EnvelopeStage) {
	for i := range v.envelopes {
		v.envelopes[i].Trigger(stage)
	}
}

// Release moves both envelopes into their release stage.
func (v *Voice) Release() { v.TriggerEnvelope(StageRelease) }

// Kill silences the voice immediately.
func (v *Voice) Kill() {
	v.TriggerEnvelope(StageDead)
	v.signal = 128
}

// Trigger starts a note. A non-legato trigger restarts the envelopes and the
// oscillator phases; a legato one only moves the pitch target. The slide
// increment is scaled from the pitch delta by the portamento time lookup; a
// zero increment with a nonzero delta is forced to +-1 so the slide always
// converges. A voice whose pitch is still at its power-on zero snaps straight
// to the target.
func (v *Voice) Trigger(note, velocity uint8, legato bool) {
	p := &v.engine.patch
	if !legato {
		v.TriggerEnvelope(StageAttack)
		v.osc[0].Reset()
		v.osc[1].Reset()
		v.subOsc.Reset()
		v.modSources[voiceSource(virta.SrcVelocity)] = velocity << 1
	}
	v.pitchTarget = int16(note)<<7 + scaleOffset(p.KbdRaga, note)
	if v.pitchValue == 0 {
		v.pitchValue = v.pitchTarget
	}
	delta := v.pitchTarget - v.pitchValue
	increment := envPortamentoIncrements[p.KbdPortamento&0x7f]
	v.pitchIncrement = int16(int32(delta) * int32(increment) >> 15)
	if v.pitchIncrement == 0 {
		if delta < 0 {
			v.pitchIncrement = -1
		} else {
			v.pitchIncrement = 1
		}
	}
}

// Control runs the per-block update: envelopes, pitch slide, modulation
// matrix resolution and the oscillator pitch assembly.
func (v *Voice) Control() {
	e := v.engine
	p := &e.patch

	v.dead = true
	for i := range v.envelopes {
		v.envelopes[i].Render()
		v.dead = v.dead && v.envelopes[i].Dead()
	}

	// Advance the pitch slide; arrival is detected by the increment sign no
	// longer agreeing with which side of the target we are on.
	v.pitchValue += v.pitchIncrement
	if (v.pitchIncrement > 0) != (v.pitchValue < v.pitchTarget) {
		v.pitchValue = v.pitchTarget
		v.pitchIncrement = 0
	}

	// Rescale the voice-local sources to 0-255. Envelope levels and pitch are
	// both 14-bit.
	v.modSources[voiceSource(virta.SrcEnvelope1)] = uint8(v.envelopes[0].Value() >> 6)
	v.modSources[voiceSource(virta.SrcEnvelope2)] = uint8(v.envelopes[1].Value() >> 6)
	v.modSources[voiceSource(virta.SrcNote)] = uint8(v.pitchValue >> 6)
	if v.envelopes[0].Stage() >= StageRelease {
		v.modSources[voiceSource(virta.SrcGate)] = 0
	} else {
		v.modSources[voiceSource(virta.SrcGate)] = 255
	}

	v.modDestinations[virta.DstVCA] = 255

	// Load each accumulator with its base parameter scaled into the shared
	// 14-bit working range.
	dst := &v.dst
	dst[virta.DstFilterCutoff] = int16(p.FilterCutoff) << 7
	dst[virta.DstPWM1] = int16(p.OscParameter[0]) << 7
	dst[virta.DstPWM2] = int16(p.OscParameter[1]) << 7
	dst[virta.DstVCO1] = 8192
	dst[virta.DstVCO2] = 8192
	dst[virta.DstVCOFine] = 8192
	dst[virta.DstMixBalance] = int16(p.MixBalance) << 8
	dst[virta.DstMixNoise] = int16(p.MixNoise) << 8
	dst[virta.DstMixSubOsc] = int16(p.MixSubOsc) << 8
	dst[virta.DstFilterResonance] = int16(p.FilterResonance) << 8

	// Apply the matrix in stored order. One extra entry is evaluated after
	// the saved ones: it reuses the last saved routing with its amount
	// rescaled by the wheel, giving the wheel a patchable default action.
	for i := 0; i < virta.SavedModulationEntries+1; i++ {
		m := p.Modulation[min(i, virta.SavedModulationEntries-1)]
		amount := m.Amount
		if i == virta.SavedModulationEntries {
			amount = s8u8MulScale8(amount, e.modulationSources[virta.SrcWheel])
		}
		if amount == 0 {
			continue
		}
		var sourceValue uint8
		if m.Source.Global() {
			sourceValue = e.modulationSources[m.Source]
		} else {
			sourceValue = v.modSources[voiceSource(m.Source)]
		}
		if m.Destination != virta.DstVCA {
			modulation := dst[m.Destination] + s8u8Mul(amount, sourceValue)
			if m.Source.Relative() {
				modulation -= int16(amount) << 7
			}
			dst[m.Destination] = clip14(modulation)
		} else {
			// The VCA is multiplicative. A negative amount inverts the
			// source instead of flipping the product's sign.
			if amount < 0 {
				amount = -amount
				sourceValue = 255 - sourceValue
			}
			v.modDestinations[virta.DstVCA] = u8MulScale8(
				v.modDestinations[virta.DstVCA],
				u8Mix(255, sourceValue, uint8(amount)<<2))
		}
	}

	// Hardcoded filter modulations: envelope 1 and LFO 2, the latter
	// bias-centered.
	dst[virta.DstFilterCutoff] = clip14(dst[virta.DstFilterCutoff] +
		s8u8Mul(int8(p.FilterEnv), v.modSources[voiceSource(virta.SrcEnvelope1)]))
	dst[virta.DstFilterCutoff] = clip14(dst[virta.DstFilterCutoff] +
		s8u8Mul(int8(p.FilterLFO), e.modulationSources[virta.SrcLFO2]) -
		int16(p.FilterLFO)<<7)

	// Down-scale every accumulator to its destination's native range.
	v.modDestinations[virta.DstFilterCutoff] = uint8(dst[virta.DstFilterCutoff] >> 6)
	v.modDestinations[virta.DstFilterResonance] = uint8(dst[virta.DstFilterResonance] >> 6)
	v.modDestinations[virta.DstPWM1] = uint8(dst[virta.DstPWM1] >> 7)
	v.modDestinations[virta.DstPWM2] = uint8(dst[virta.DstPWM2] >> 7)
	v.modDestinations[virta.DstMixBalance] = uint8(dst[virta.DstMixBalance] >> 6)
	v.modDestinations[virta.DstMixNoise] = uint8(dst[virta.DstMixNoise] >> 8)
	v.modDestinations[virta.DstMixSubOsc] = uint8(dst[virta.DstMixSubOsc] >> 7)

	// Assemble each oscillator's final pitch and phase increment.
	for i := 0; i < NumOscillators; i++ {
		pitch := v.pitchValue
		// -24/+24 semitones from the range parameter, except for the FM
		// shape where the range drives the modulator ratio instead.
		if i == 0 && p.OscShape[0] == virta.WaveformFM {
			v.osc[0].UpdateSecondaryParameter(int(p.OscRange[0]) + 12)
		} else {
			pitch += int16(p.OscRange[i]) << 7
		}
		pitch += int16(p.KbdOctave) * octave
		if i == 1 {
			// 0/+1 semitone detune option for oscillator 2.
			pitch += int16(p.OscOption[1])
		}
		// -16/+16 semitones from the routed modulations, -4/+4 from the
		// shared fine destination.
		pitch += (dst[int(virta.DstVCO1)+i] - 8192) >> 2
		pitch += (dst[virta.DstVCOFine] - 8192) >> 4

		increment, wrapped := oscillatorIncrement(pitch)
		note := uint8(wrapped >> 7)
		if i == 0 {
			v.osc[0].Update(v.modDestinations[virta.DstPWM1], note, increment)
			v.subOsc.Update(0, note-12, increment>>1)
		} else {
			v.osc[1].Update(v.modDestinations[virta.DstPWM2], note, increment)
		}
	}
}

// oscillatorIncrement wraps an assembled pitch into the supported range, then
// into the top-octave window covered by the increment table; each octave of
// downward transposition halves the looked-up increment. It returns the
// increment and the range-wrapped pitch.
func oscillatorIncrement(pitch int16) (uint16, int16) {
	for pitch < lowestNote {
		pitch += octave
	}
	for pitch >= highestNote {
		pitch -= octave
	}
	refPitch := pitch - pitchTableStart
	numShifts := 0
	for refPitch < 0 {
		refPitch += octave
		numShifts++
	}
	return oscillatorIncrements[refPitch>>1] >> numShifts, pitch
}

// Audio renders one sample: the two main oscillators combined per the
// oscillator 1 option, then the sub-oscillator and noise blend. A dead voice
// short-circuits to mid-scale silence.
func (v *Voice) Audio() {
	if v.dead {
		v.signal = 128
		return
	}
	p := &v.engine.patch

	osc2 := v.osc[1].Render()
	mix := v.osc[0].Render()

	switch p.OscOption[0] {
	case virta.OptionRingMod:
		mix = uint8(s8s8MulScale8(int8(mix+128), int8(osc2+128))) + 128
	case virta.OptionXor:
		mix ^= osc2
		mix += v.modDestinations[virta.DstMixBalance]
	default:
		mix = u8Mix(mix, osc2, v.modDestinations[virta.DstMixBalance])
		if p.OscOption[0] == virta.OptionSync {
			// The increment stays well below 65536 - 256, so a decreasing
			// phase MSB can only mean the phase wrapped.
			phaseMSB := uint8(v.osc[0].Phase() >> 8)
			if phaseMSB < v.osc1PhaseMSB {
				v.osc[1].ResetPhase()
			}
			v.osc1PhaseMSB = phaseMSB
		}
	}

	// The vowel shape is too costly to leave room for the sub-oscillator and
	// noise blend within the sample budget.
	if p.OscShape[0] != virta.WaveformVowel {
		mix = u8Mix(mix, v.subOsc.Render(), v.modDestinations[virta.DstMixSubOsc])
		mix = u8Mix(mix, v.engine.noise.msb(), v.modDestinations[virta.DstMixNoise])
	}
	v.signal = mix
}

// Signal returns the last rendered sample.
func (v *Voice) Signal() uint8 { return v.signal }

// Dead reports whether both envelopes have decayed to silence.
func (v *Voice) Dead() bool { return v.dead }

// The control-voltage outputs consumed by the analog stage drivers.

func (v *Voice) CutoffCV() uint8    { return v.modDestinations[virta.DstFilterCutoff] }
func (v *Voice) ResonanceCV() uint8 { return v.modDestinations[virta.DstFilterResonance] }
func (v *Voice) AmplitudeCV() uint8 { return v.modDestinations[virta.DstVCA] }

// Pitch returns the current slide position in 1/128ths of a semitone.
func (v *Voice) Pitch() int16 { return v.pitchValue }
