package engine

import "github.com/vsariola/virta"

// Engine is the synthesis core: it owns the working patch, the global
// modulation sources, the LFOs, the voice array and the note controller, and
// dispatches parameter writes, channel events and the two periodic ticks. The
// external scheduler calls Control() once per block of BlockSize samples and
// Audio() once per sample; both are allocation-free. All state is owned by
// the single caller context, so an Engine needs no locking.
type Engine struct {
	patch             virta.Patch
	modulationSources [virta.NumGlobalModSources]uint8

	voices     [NumVoices]Voice
	controller VoiceController
	lfos       [NumLFOs]LFO
	noise      noiseGenerator

	oscillatorDecimation uint8
	nrpnParameter        uint8

	numLFOResetSteps uint16
	lfoResetCounter  uint16
	lfoToReset       uint8
}

// NewEngine returns an initialized engine loaded with the default patch.
func NewEngine() *Engine {
	e := &Engine{}
	e.Init()
	return e
}

// Init performs the one-time setup. The engine must not be copied afterwards:
// the controller keeps pointers into the voice array.
func (e *Engine) Init() {
	voices := make([]*Voice, NumVoices)
	for i := range e.voices {
		voices[i] = &e.voices[i]
	}
	e.controller.Init(voices)
	e.nrpnParameter = 0xff
	e.ResetPatch()
	e.Reset()
	for i := range e.voices {
		e.voices[i].Init(e)
	}
}

// ResetPatch loads the default patch.
func (e *Engine) ResetPatch() {
	e.patch = virta.DefaultPatch()
	e.TouchPatch()
}

// SetPatch replaces the whole working patch at once.
func (e *Engine) SetPatch(p virta.Patch) {
	e.patch = p
	e.TouchPatch()
}

// Patch returns a copy of the working patch.
func (e *Engine) Patch() virta.Patch { return e.patch }

// TouchPatch re-derives every cached value from the patch: oscillator
// algorithms, envelope and LFO increments, and the controller's copy of the
// arpeggiator settings.
func (e *Engine) TouchPatch() {
	e.controller.SetTempo(e.patch.ArpTempo)
	e.controller.SetOctaves(e.patch.ArpOctaves)
	e.controller.SetPattern(e.patch.ArpPattern)
	e.controller.SetSwing(e.patch.ArpSwing)
	e.controller.SetPatternSize(e.patch.ArpPatternSize)
	e.UpdateOscillatorAlgorithms()
	e.UpdateModulationIncrements()
}

// Reset rewinds the controller and the global sources to their power-on
// state without touching the patch.
func (e *Engine) Reset() {
	e.controller.Reset()
	e.controller.AllSoundOff()
	for i := range e.modulationSources {
		e.modulationSources[i] = 0
	}
	e.modulationSources[virta.SrcPitchBend] = 128
	e.noise.reset()
	for i := range e.lfos {
		e.lfos[i].Init()
	}
	e.lfoResetCounter = 0
}

// NoteOn forwards a note to the controller. When no sequence or arpeggio is
// running, the tempo-synced LFO reset counter is primed so the next step
// boundary resynchronizes the LFOs to the fresh performance.
func (e *Engine) NoteOn(channel, note, velocity uint8) {
	if !e.controller.Active() && e.numLFOResetSteps > 0 {
		e.lfoResetCounter = e.numLFOResetSteps - 1
	}
	e.controller.NoteOn(note, velocity)
}

func (e *Engine) NoteOff(channel, note, velocity uint8) {
	e.controller.NoteOff(note)
}

// MIDI controller numbers the engine reacts to.
const (
	ccModulationWheel   = 1
	ccPortamentoTime    = 5
	ccDataEntryMSB      = 6
	ccGeneralPurpose1   = 16
	ccGeneralPurpose2   = 17
	ccHarmonicIntensity = 71
	ccRelease           = 72
	ccAttack            = 73
	ccBrightness        = 74
	ccNRPNMSB           = 99
)

// ControlChange maps the fixed set of supported controllers onto the wheel
// source and a handful of patch fields; data entry writes the parameter
// selected by the last NRPN MSB.
func (e *Engine) ControlChange(channel, controller, value uint8) {
	switch controller {
	case ccModulationWheel:
		e.modulationSources[virta.SrcWheel] = value << 1
	case ccDataEntryMSB:
		if int(e.nrpnParameter) < virta.NumParams {
			e.SetParameter(int(e.nrpnParameter), value)
		}
	case ccPortamentoTime:
		e.patch.KbdPortamento = value
	case ccRelease:
		e.patch.EnvRelease[1] = value
		e.UpdateModulationIncrements()
	case ccAttack:
		e.patch.EnvAttack[1] = value
		e.UpdateModulationIncrements()
	case ccHarmonicIntensity:
		e.patch.FilterResonance = value
	case ccBrightness:
		e.patch.FilterCutoff = value
	case ccGeneralPurpose1:
		e.SetAssignable(0, value<<1)
	case ccGeneralPurpose2:
		e.SetAssignable(1, value<<1)
	case ccNRPNMSB:
		e.nrpnParameter = value
	}
}

// PitchBend takes the 14-bit unsigned bend position (8192 = centered).
func (e *Engine) PitchBend(channel uint8, bend uint16) {
	e.modulationSources[virta.SrcPitchBend] = uint8(bend >> 6)
}

// SetCV feeds one of the two control-voltage modulation sources.
func (e *Engine) SetCV(index int, value uint8) {
	e.modulationSources[int(virta.SrcCV1)+(index&1)] = value
}

// SetAssignable feeds one of the two assignable-controller sources.
func (e *Engine) SetAssignable(index int, value uint8) {
	e.modulationSources[int(virta.SrcAssignable1)+(index&1)] = value
}

// CheckChannel reports whether events on the (0-based) channel should be
// acted upon; channel 0 in the patch means omni.
func (e *Engine) CheckChannel(channel uint8) bool {
	return e.patch.KbdMidiChannel == 0 || e.patch.KbdMidiChannel == channel+1
}

func (e *Engine) AllSoundOff(channel uint8) { e.controller.AllSoundOff() }

func (e *Engine) AllNotesOff(channel uint8) { e.controller.AllNotesOff() }

func (e *Engine) ResetAllControllers(channel uint8) {
	e.modulationSources[virta.SrcPitchBend] = 128
	e.modulationSources[virta.SrcWheel] = 0
}

// OmniModeOff narrows reception to the channel the message arrived on.
func (e *Engine) OmniModeOff(channel uint8) {
	e.patch.KbdMidiChannel = channel + 1
}

func (e *Engine) OmniModeOn(channel uint8) {
	e.patch.KbdMidiChannel = 0
}

// Clock, Start and Stop forward the external MIDI transport to the
// controller.
func (e *Engine) Clock() { e.controller.ExternalSync() }
func (e *Engine) Start() { e.controller.Start() }
func (e *Engine) Stop()  { e.controller.Stop() }

// SetParameter writes a patch parameter and performs the side effects its
// index range calls for: envelope/LFO ranges re-derive the increments,
// oscillator shape ranges re-select the render algorithms, and arpeggiator
// settings are forwarded to the controller's own copy.
func (e *Engine) SetParameter(index int, value uint8) {
	e.patch.SetParameter(index, value)
	if index >= virta.ParamEnvAttack1 && index <= virta.ParamLFORate2 {
		e.UpdateModulationIncrements()
	}
	if index <= virta.ParamOscShape2 || index == virta.ParamMixSubOscShape {
		e.UpdateOscillatorAlgorithms()
	}
	switch index {
	case virta.ParamArpTempo:
		e.controller.SetTempo(value)
		e.UpdateModulationIncrements()
	case virta.ParamArpOctaves:
		e.controller.SetOctaves(value)
	case virta.ParamArpPattern:
		e.controller.SetPattern(value)
	case virta.ParamArpSwing:
		e.controller.SetSwing(value)
	case virta.ParamArpPatternSize:
		e.controller.SetPatternSize(value)
	}
}

// GetParameter reads back a patch parameter.
func (e *Engine) GetParameter(index int) uint8 {
	return e.patch.Parameter(index)
}

// UpdateOscillatorAlgorithms re-selects the render functions from the shape
// parameters.
func (e *Engine) UpdateOscillatorAlgorithms() {
	for i := range e.voices {
		v := &e.voices[i]
		v.osc[0].SetupAlgorithm(e.patch.OscShape[0])
		v.osc[1].SetupAlgorithm(e.patch.OscShape[1])
		v.subOsc.SetupAlgorithm(e.patch.MixSubOscShape)
	}
}

// UpdateModulationIncrements re-derives the LFO increments and envelope time
// constants. LFO rates below the sync threshold get a tempo-derived increment
// completing (1 + rate) / 4 cycles per step; the combined reset cadence is
// the product of (1 + rate) across the synced LFOs.
func (e *Engine) UpdateModulationIncrements() {
	e.numLFOResetSteps = 0
	e.lfoToReset = 0
	for i := 0; i < NumLFOs; i++ {
		var increment uint16
		rate := e.patch.LFORate[i]
		if rate < virta.LFORateSyncThreshold {
			beat := uint32(e.controller.EstimatedBeatDuration())
			increment = uint16(65536 / (beat * uint32(1+rate) / 4))
			steps := e.numLFOResetSteps
			if steps == 0 {
				steps = 1
			}
			e.numLFOResetSteps = steps * uint16(1+rate)
			e.lfoToReset |= 1 << i
		} else {
			index := int(rate) - virta.LFORateSyncThreshold
			if index >= len(lfoIncrements) {
				index = len(lfoIncrements) - 1
			}
			increment = lfoIncrements[index]
		}
		e.lfos[i].Update(e.patch.LFOWave[i], increment)

		for j := range e.voices {
			e.voices[j].envelopes[i].Update(
				e.patch.EnvAttack[i],
				e.patch.EnvDecay[i],
				e.patch.EnvSustain[i],
				e.patch.EnvRelease[i])
		}
	}
}

// Control is the block-rate tick: it refreshes the global modulation sources,
// advances the note controller and runs every voice's control update.
func (e *Engine) Control() {
	for i := 0; i < NumLFOs; i++ {
		e.modulationSources[int(virta.SrcLFO1)+i] = e.lfos[i].Render()
	}
	e.modulationSources[virta.SrcRandom] = e.noise.msb()

	if e.controller.Control() {
		e.stepAdvanced()
	}

	e.modulationSources[virta.SrcSequence] = e.patch.SequenceStep(e.controller.Step())
	if e.controller.HasArpeggiatorNote() {
		e.modulationSources[virta.SrcSequencerGate] = 255
	} else {
		e.modulationSources[virta.SrcSequencerGate] = 0
	}

	for i := range e.voices {
		e.voices[i].Control()
	}
}

// stepAdvanced runs once per sequencer step. Every numLFOResetSteps steps the
// synced LFO increments are recomputed from the possibly changed tempo and
// their phases snapped back to zero, bounding long-run drift from rounding.
func (e *Engine) stepAdvanced() {
	e.lfoResetCounter++
	if e.numLFOResetSteps > 0 && e.lfoResetCounter >= e.numLFOResetSteps {
		e.UpdateModulationIncrements()
		for i := 0; i < NumLFOs; i++ {
			if e.lfoToReset&(1<<i) != 0 {
				e.lfos[i].ResetPhase()
			}
		}
		e.lfoResetCounter = 0
	}
}

// Audio is the sample-rate tick: it decimates the noise generator by four and
// renders one sample per voice.
func (e *Engine) Audio() {
	e.oscillatorDecimation = (e.oscillatorDecimation + 1) & 3
	if e.oscillatorDecimation == 0 {
		e.noise.update()
	}
	for i := range e.voices {
		e.voices[i].Audio()
	}
}

// Voice returns the i-th voice for the output stage's read accessors.
func (e *Engine) Voice(i int) *Voice { return &e.voices[i] }

// ModulationSource returns the current value of a global source.
func (e *Engine) ModulationSource(s virta.ModSource) uint8 {
	return e.modulationSources[s]
}
