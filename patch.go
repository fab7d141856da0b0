package virta

import (
	"errors"
	"fmt"
)

// Oscillator waveform algorithms. The designated high-cost shape is
// WaveformVowel: when oscillator 1 uses it, the voice skips the sub-oscillator
// and noise blend to stay within the per-sample budget. WaveformFM routes the
// oscillator range parameter to the FM modulator ratio instead of transposing.
const (
	WaveformSaw = iota
	WaveformSquare
	WaveformTriangle
	WaveformSine
	WaveformFM
	WaveformVowel

	NumWaveforms
)

// Oscillator 1 combine options. For oscillator 2 the option byte is instead a
// 0..127 fine detune, in 1/128ths of a semitone.
const (
	OptionCrossfade = iota
	OptionSync
	OptionRingMod
	OptionXor
)

// LFO waveforms.
const (
	LFOTriangle = iota
	LFOSquare
	LFORamp
	LFORandom

	NumLFOWaveforms
)

// LFO rate values below LFORateSyncThreshold are tempo-synced: the LFO
// completes a cycle every (1 + rate) / 4 sequencer steps. Values at or above
// the threshold index the free-running increment table at rate - threshold.
const LFORateSyncThreshold = 16

const (
	SavedModulationEntries = 14
	NumSequenceSteps       = 8
	PatchNameSize          = 8
)

// PatchName is the fixed-size patch name field. It marshals as a string; on
// unmarshal it is space padded or truncated to PatchNameSize bytes.
type PatchName [PatchNameSize]byte

func (n PatchName) String() string {
	end := len(n)
	for end > 0 && (n[end-1] == ' ' || n[end-1] == 0) {
		end--
	}
	return string(n[:end])
}

func (n PatchName) MarshalYAML() (interface{}, error) {
	return n.String(), nil
}

func (n *PatchName) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*n = NamePatch(s)
	return nil
}

// NamePatch converts a string into a space-padded PatchName.
func NamePatch(s string) (n PatchName) {
	for i := range n {
		if i < len(s) {
			n[i] = s[i]
		} else {
			n[i] = ' '
		}
	}
	return n
}

// Patch is the full set of parameters driving the synthesis engine. Every
// field is addressable through a flat, densely indexed 8-bit parameter space
// (see the Param constants and paramTable); the engine holds a working copy
// and mutates it in place on parameter writes.
type Patch struct {
	OscShape     [2]uint8 `yaml:",flow"`
	OscParameter [2]uint8 `yaml:",flow"`
	OscRange     [2]int8  `yaml:",flow"`
	OscOption    [2]uint8 `yaml:",flow"`

	MixBalance     uint8
	MixSubOsc      uint8
	MixNoise       uint8
	MixSubOscShape uint8

	FilterCutoff    uint8
	FilterResonance uint8
	FilterEnv       uint8
	FilterLFO       uint8

	EnvAttack  [2]uint8 `yaml:",flow"`
	EnvDecay   [2]uint8 `yaml:",flow"`
	EnvSustain [2]uint8 `yaml:",flow"`
	EnvRelease [2]uint8 `yaml:",flow"`

	LFOWave [2]uint8 `yaml:",flow"`
	LFORate [2]uint8 `yaml:",flow"`

	Modulation [SavedModulationEntries]ModulationEntry

	ArpTempo       uint8
	ArpOctaves     uint8
	ArpPattern     uint8
	ArpSwing       uint8
	ArpPatternSize uint8

	Sequence [NumSequenceSteps]uint8 `yaml:",flow"`

	KbdOctave      int8
	KbdRaga        uint8
	KbdPortamento  uint8
	KbdMidiChannel uint8

	Name PatchName
}

// The flat parameter index space. Each index maps to exactly one Patch field
// for the lifetime of the process; the mapping is defined once, in paramTable,
// so that struct layout changes cannot silently desynchronize ids from fields.
const (
	ParamOscShape1 = iota
	ParamOscShape2
	ParamOscParameter1
	ParamOscParameter2
	ParamOscRange1
	ParamOscRange2
	ParamOscOption1
	ParamOscOption2
	ParamMixBalance
	ParamMixSubOsc
	ParamMixNoise
	ParamMixSubOscShape
	ParamFilterCutoff
	ParamFilterResonance
	ParamFilterEnv
	ParamFilterLFO
	ParamEnvAttack1
	ParamEnvAttack2
	ParamEnvDecay1
	ParamEnvDecay2
	ParamEnvSustain1
	ParamEnvSustain2
	ParamEnvRelease1
	ParamEnvRelease2
	ParamLFOWave1
	ParamLFOWave2
	ParamLFORate1
	ParamLFORate2
	ParamModulationBase // 3 consecutive ids (source, destination, amount) per entry
)

const (
	ParamArpTempo = ParamModulationBase + 3*SavedModulationEntries + iota
	ParamArpOctaves
	ParamArpPattern
	ParamArpSwing
	ParamSequenceBase // NumSequenceSteps consecutive ids
)

const (
	ParamKbdOctave = ParamSequenceBase + NumSequenceSteps + iota
	ParamKbdRaga
	ParamKbdPortamento
	ParamKbdMidiChannel
	ParamNameBase // PatchNameSize consecutive ids
)

const (
	ParamArpPatternSize = ParamNameBase + PatchNameSize

	NumParams = ParamArpPatternSize + 1
)

// ParamModulationSource returns the parameter id of the n-th matrix entry's
// source field; destination and amount follow at +1 and +2.
func ParamModulationSource(n int) int { return ParamModulationBase + 3*n }

// ParamSequenceStep returns the parameter id of the n-th sequence step.
func ParamSequenceStep(n int) int { return ParamSequenceBase + n }

type paramAccessor struct {
	get func(*Patch) uint8
	set func(*Patch, uint8)
}

func u8Param(f func(*Patch) *uint8) paramAccessor {
	return paramAccessor{
		get: func(p *Patch) uint8 { return *f(p) },
		set: func(p *Patch, v uint8) { *f(p) = v },
	}
}

func s8Param(f func(*Patch) *int8) paramAccessor {
	return paramAccessor{
		get: func(p *Patch) uint8 { return uint8(*f(p)) },
		set: func(p *Patch, v uint8) { *f(p) = int8(v) },
	}
}

var paramTable [NumParams]paramAccessor

func init() {
	t := &paramTable
	t[ParamOscShape1] = u8Param(func(p *Patch) *uint8 { return &p.OscShape[0] })
	t[ParamOscShape2] = u8Param(func(p *Patch) *uint8 { return &p.OscShape[1] })
	t[ParamOscParameter1] = u8Param(func(p *Patch) *uint8 { return &p.OscParameter[0] })
	t[ParamOscParameter2] = u8Param(func(p *Patch) *uint8 { return &p.OscParameter[1] })
	t[ParamOscRange1] = s8Param(func(p *Patch) *int8 { return &p.OscRange[0] })
	t[ParamOscRange2] = s8Param(func(p *Patch) *int8 { return &p.OscRange[1] })
	t[ParamOscOption1] = u8Param(func(p *Patch) *uint8 { return &p.OscOption[0] })
	t[ParamOscOption2] = u8Param(func(p *Patch) *uint8 { return &p.OscOption[1] })
	t[ParamMixBalance] = u8Param(func(p *Patch) *uint8 { return &p.MixBalance })
	t[ParamMixSubOsc] = u8Param(func(p *Patch) *uint8 { return &p.MixSubOsc })
	t[ParamMixNoise] = u8Param(func(p *Patch) *uint8 { return &p.MixNoise })
	t[ParamMixSubOscShape] = u8Param(func(p *Patch) *uint8 { return &p.MixSubOscShape })
	t[ParamFilterCutoff] = u8Param(func(p *Patch) *uint8 { return &p.FilterCutoff })
	t[ParamFilterResonance] = u8Param(func(p *Patch) *uint8 { return &p.FilterResonance })
	t[ParamFilterEnv] = u8Param(func(p *Patch) *uint8 { return &p.FilterEnv })
	t[ParamFilterLFO] = u8Param(func(p *Patch) *uint8 { return &p.FilterLFO })
	for i := 0; i < 2; i++ {
		i := i
		t[ParamEnvAttack1+i] = u8Param(func(p *Patch) *uint8 { return &p.EnvAttack[i] })
		t[ParamEnvDecay1+i] = u8Param(func(p *Patch) *uint8 { return &p.EnvDecay[i] })
		t[ParamEnvSustain1+i] = u8Param(func(p *Patch) *uint8 { return &p.EnvSustain[i] })
		t[ParamEnvRelease1+i] = u8Param(func(p *Patch) *uint8 { return &p.EnvRelease[i] })
		t[ParamLFOWave1+i] = u8Param(func(p *Patch) *uint8 { return &p.LFOWave[i] })
		t[ParamLFORate1+i] = u8Param(func(p *Patch) *uint8 { return &p.LFORate[i] })
	}
	for i := 0; i < SavedModulationEntries; i++ {
		i := i
		t[ParamModulationSource(i)] = paramAccessor{
			get: func(p *Patch) uint8 { return uint8(p.Modulation[i].Source) },
			set: func(p *Patch, v uint8) { p.Modulation[i].Source = ModSource(v) },
		}
		t[ParamModulationSource(i)+1] = paramAccessor{
			get: func(p *Patch) uint8 { return uint8(p.Modulation[i].Destination) },
			set: func(p *Patch, v uint8) { p.Modulation[i].Destination = ModDestination(v) },
		}
		t[ParamModulationSource(i)+2] = paramAccessor{
			get: func(p *Patch) uint8 { return uint8(p.Modulation[i].Amount) },
			set: func(p *Patch, v uint8) { p.Modulation[i].Amount = int8(v) },
		}
	}
	t[ParamArpTempo] = u8Param(func(p *Patch) *uint8 { return &p.ArpTempo })
	t[ParamArpOctaves] = u8Param(func(p *Patch) *uint8 { return &p.ArpOctaves })
	t[ParamArpPattern] = u8Param(func(p *Patch) *uint8 { return &p.ArpPattern })
	t[ParamArpSwing] = u8Param(func(p *Patch) *uint8 { return &p.ArpSwing })
	for i := 0; i < NumSequenceSteps; i++ {
		i := i
		t[ParamSequenceStep(i)] = u8Param(func(p *Patch) *uint8 { return &p.Sequence[i] })
	}
	t[ParamKbdOctave] = s8Param(func(p *Patch) *int8 { return &p.KbdOctave })
	t[ParamKbdRaga] = u8Param(func(p *Patch) *uint8 { return &p.KbdRaga })
	t[ParamKbdPortamento] = u8Param(func(p *Patch) *uint8 { return &p.KbdPortamento })
	t[ParamKbdMidiChannel] = u8Param(func(p *Patch) *uint8 { return &p.KbdMidiChannel })
	for i := 0; i < PatchNameSize; i++ {
		i := i
		t[ParamNameBase+i] = u8Param(func(p *Patch) *uint8 { return &p.Name[i] })
	}
	t[ParamArpPatternSize] = u8Param(func(p *Patch) *uint8 { return &p.ArpPatternSize })
	for i, a := range t {
		if a.get == nil || a.set == nil {
			panic(fmt.Sprintf("parameter %d has no accessor", i))
		}
	}
}

// SequenceStep returns the value of the step-th sequencer step. Steps are
// 4-bit values packed two per sequence byte, returned scaled to the top of the
// 8-bit source range.
func (p *Patch) SequenceStep(step uint8) uint8 {
	v := p.Sequence[(step>>1)&(NumSequenceSteps-1)]
	if step&1 != 0 {
		return v << 4
	}
	return v & 0xf0
}

// Parameter returns the 8-bit value of the index-th parameter. Out-of-range
// indices return 0.
func (p *Patch) Parameter(index int) uint8 {
	if index < 0 || index >= NumParams {
		return 0
	}
	return paramTable[index].get(p)
}

// SetParameter writes value into the index-th parameter field. Out-of-range
// indices are ignored. Values are not validated; callers are responsible for
// bounding them to each parameter's documented range.
func (p *Patch) SetParameter(index int, value uint8) {
	if index < 0 || index >= NumParams {
		return
	}
	paramTable[index].set(p, value)
}

// Validate checks the fields that make a patch unusable by the engine, i.e.
// ids that index fixed tables. Parameter values themselves are by contract
// bounded by the editing layers, not here.
func (p *Patch) Validate() error {
	for i, m := range p.Modulation {
		if int(m.Source) >= NumModSources {
			return fmt.Errorf("modulation entry %d: source %d out of range", i, m.Source)
		}
		if int(m.Destination) >= NumModDestinations {
			return fmt.Errorf("modulation entry %d: destination %d out of range", i, m.Destination)
		}
	}
	if p.OscShape[0] >= NumWaveforms || p.OscShape[1] >= NumWaveforms {
		return errors.New("oscillator shape out of range")
	}
	if p.MixSubOscShape >= NumWaveforms {
		return errors.New("sub-oscillator shape out of range")
	}
	if p.LFOWave[0] >= NumLFOWaveforms || p.LFOWave[1] >= NumLFOWaveforms {
		return errors.New("LFO waveform out of range")
	}
	return nil
}

// DefaultPatch returns the patch loaded by Engine.Init: saw + thin pulse into
// a half-open filter, envelope 2 and velocity on the VCA, note tracking on the
// cutoff, and a handful of zero-amount routings ready to be dialed in.
func DefaultPatch() Patch {
	return Patch{
		OscShape:       [2]uint8{WaveformSaw, WaveformSquare},
		OscParameter:   [2]uint8{0, 32},
		OscOption:      [2]uint8{OptionCrossfade, 0},
		MixBalance:     24,
		MixSubOscShape: WaveformSquare,

		FilterCutoff: 110,
		FilterEnv:    10,

		EnvAttack:  [2]uint8{20, 0},
		EnvDecay:   [2]uint8{60, 40},
		EnvSustain: [2]uint8{20, 80},
		EnvRelease: [2]uint8{60, 40},

		LFOWave: [2]uint8{LFOTriangle, LFOTriangle},
		LFORate: [2]uint8{96, 3},

		Modulation: [SavedModulationEntries]ModulationEntry{
			{SrcLFO1, DstVCO1, 0},
			{SrcLFO1, DstVCO2, 0},
			{SrcLFO1, DstPWM1, 0},
			{SrcLFO1, DstPWM2, 0},
			{SrcLFO2, DstMixBalance, 0},
			// The cutoff CV tracks the note by default; the amount was tuned
			// by ear against the analog filter's tracking error.
			{SrcNote, DstFilterCutoff, 58},
			{SrcEnvelope2, DstVCA, 63},
			{SrcVelocity, DstVCA, 16},
			{SrcPitchBend, DstVCOFine, 32},
			{SrcLFO1, DstVCOFine, 16},
			{SrcAssignable1, DstPWM1, 0},
			{SrcAssignable2, DstFilterCutoff, 0},
			{SrcCV1, DstFilterCutoff, 0},
			{SrcCV2, DstFilterCutoff, 0},
		},

		ArpTempo:       120,
		ArpPatternSize: 16,
		Sequence:       [NumSequenceSteps]uint8{0x00, 0x00, 0xff, 0xff, 0xcc, 0xcc, 0x44, 0x44},

		KbdMidiChannel: 1,
		Name:           NamePatch("new"),
	}
}
