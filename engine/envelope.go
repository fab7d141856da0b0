package engine

// EnvelopeStage enumerates the ADSR stage machine. The gate modulation source
// reads 255 until the envelope enters its release stage.
type EnvelopeStage uint8

const (
	StageAttack EnvelopeStage = iota
	StageDecay
	StageSustain
	StageRelease
	StageDead
)

// Envelope is a per-voice ADSR generator producing a 14-bit level once per
// control tick. It is mutated only by its owning voice and the engine's
// parameter updates.
type Envelope struct {
	stage   EnvelopeStage
	value   int16 // current level, 0..16383
	attack  uint16
	decay   uint16
	release uint16
	sustain int16
}

func (e *Envelope) Init() {
	e.stage = StageDead
	e.value = 0
}

// Update reloads the stage increments from the four time parameters. The
// increments share the envelope/portamento lookup table; the sustain parameter
// is scaled into the 14-bit level range.
func (e *Envelope) Update(attack, decay, sustain, release uint8) {
	e.attack = envPortamentoIncrements[attack&0x7f]
	e.decay = envPortamentoIncrements[decay&0x7f]
	e.release = envPortamentoIncrements[release&0x7f]
	e.sustain = int16(sustain) << 7
}

// Trigger forces the envelope into a stage. Triggering the attack does not
// reset the level: a retriggered envelope ramps up from wherever it was,
// which avoids level discontinuities on fast retrigs.
func (e *Envelope) Trigger(stage EnvelopeStage) {
	e.stage = stage
	if stage == StageDead {
		e.value = 0
	}
}

// Render advances the envelope by one control tick and returns the new level.
func (e *Envelope) Render() int16 {
	switch e.stage {
	case StageAttack:
		e.value += int16(e.attack >> 2)
		if e.value >= 16383 {
			e.value = 16383
			e.stage = StageDecay
		}
	case StageDecay:
		e.value -= int16(e.decay >> 2)
		if e.value <= e.sustain {
			e.value = e.sustain
			e.stage = StageSustain
		}
	case StageRelease:
		e.value -= int16(e.release >> 2)
		if e.value <= 0 {
			e.value = 0
			e.stage = StageDead
		}
	}
	return e.value
}

func (e *Envelope) Value() int16         { return e.value }
func (e *Envelope) Stage() EnvelopeStage { return e.stage }
func (e *Envelope) Dead() bool           { return e.stage == StageDead }
