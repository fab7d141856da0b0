package engine

import (
	"testing"

	"github.com/vsariola/virta"
)

// zeroModulationPatch returns the default patch with every matrix amount and
// the hardcoded filter modulations zeroed, so every destination should
// resolve to its scaled base value.
func zeroModulationPatch() virta.Patch {
	p := virta.DefaultPatch()
	for i := range p.Modulation {
		p.Modulation[i].Amount = 0
	}
	p.FilterEnv = 0
	p.FilterLFO = 0
	return p
}

func TestUnmodulatedDestinationsEqualScaledBase(t *testing.T) {
	e := NewEngine()
	p := zeroModulationPatch()
	p.FilterResonance = 30
	p.MixNoise = 17
	p.MixSubOsc = 5
	e.SetPatch(p)
	e.Control()

	v := e.Voice(0)
	cases := []struct {
		name string
		got  uint8
		want uint8
	}{
		{"cutoff", v.CutoffCV(), uint8(int16(p.FilterCutoff) << 7 >> 6)},
		{"resonance", v.ResonanceCV(), uint8(int16(p.FilterResonance) << 8 >> 6)},
		{"pwm1", v.modDestinations[virta.DstPWM1], p.OscParameter[0]},
		{"pwm2", v.modDestinations[virta.DstPWM2], p.OscParameter[1]},
		{"balance", v.modDestinations[virta.DstMixBalance], uint8(int16(p.MixBalance) << 8 >> 6)},
		{"noise", v.modDestinations[virta.DstMixNoise], p.MixNoise},
		{"subosc", v.modDestinations[virta.DstMixSubOsc], p.MixSubOsc << 1},
		{"vca", v.AmplitudeCV(), 255},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.got, c.want)
		}
	}
}

// The VCA modulation is multiplicative: amount -a with source v must resolve
// exactly like amount a with source 255-v.
func TestVCAModulationSignSymmetry(t *testing.T) {
	resolve := func(amount int8, source uint8) uint8 {
		e := NewEngine()
		p := zeroModulationPatch()
		p.Modulation[0] = virta.ModulationEntry{
			Source: virta.SrcCV1, Destination: virta.DstVCA, Amount: amount,
		}
		e.SetPatch(p)
		e.SetCV(0, source)
		e.Control()
		return e.Voice(0).AmplitudeCV()
	}
	for _, amount := range []int8{1, 16, 40, 63} {
		for _, source := range []uint8{0, 3, 100, 200, 255} {
			pos := resolve(amount, source)
			neg := resolve(-amount, 255-source)
			if pos != neg {
				t.Errorf("amount %d source %d: got %d, inverted got %d", amount, source, pos, neg)
			}
		}
	}
}

func TestFirstNoteSnapsWithoutSlide(t *testing.T) {
	e := NewEngine()
	p := e.Patch()
	p.KbdPortamento = 100
	e.SetPatch(p)
	e.NoteOn(0, 60, 100)
	if got, want := e.Voice(0).Pitch(), int16(60)<<7; got != want {
		t.Errorf("pitch after first trigger: got %d, want %d", got, want)
	}
}

func TestPortamentoAlwaysConverges(t *testing.T) {
	e := NewEngine()
	p := e.Patch()
	p.KbdPortamento = 127 // slowest slide; the raw increment rounds to zero
	e.SetPatch(p)
	e.NoteOn(0, 60, 100)
	e.NoteOn(0, 62, 100)
	v := e.Voice(0)
	if v.pitchIncrement == 0 {
		t.Fatal("increment must be forced nonzero while a delta remains")
	}
	for i := 0; i < 60*ControlRate; i++ {
		e.Control()
		if v.Pitch() == v.pitchTarget {
			return
		}
	}
	t.Errorf("pitch never reached target: at %d, want %d", v.Pitch(), v.pitchTarget)
}

func TestPitchWrapHalvesIncrementPerOctave(t *testing.T) {
	for _, x := range []int16{0, 100, 761, 1535} {
		high, _ := oscillatorIncrement(pitchTableStart + x)
		low, _ := oscillatorIncrement(pitchTableStart + x - 2*octave)
		if low != high>>2 {
			t.Errorf("x=%d: got %d two octaves down, want %d", x, low, high>>2)
		}
	}
}

func TestXorMixIsExactBitwiseXor(t *testing.T) {
	e := NewEngine()
	p := zeroModulationPatch()
	p.OscShape = [2]uint8{virta.WaveformSaw, virta.WaveformSaw}
	p.OscOption[0] = virta.OptionXor
	p.MixBalance = 0
	p.MixSubOsc = 0
	p.MixNoise = 0
	e.SetPatch(p)
	e.NoteOn(0, 60, 100)
	e.Control()

	v := e.Voice(0)
	v.osc[0].phase = 0b10110010 << 8
	v.osc[0].increment = 0
	v.osc[1].phase = 0b01101100 << 8
	v.osc[1].increment = 0
	v.Audio()
	if got, want := v.Signal(), uint8(0b10110010^0b01101100); got != want {
		t.Errorf("got %08b, want %08b", got, want)
	}
}

func TestHardSyncResetsOscillator2OnWrap(t *testing.T) {
	e := NewEngine()
	p := zeroModulationPatch()
	p.OscOption[0] = virta.OptionSync
	e.SetPatch(p)
	e.NoteOn(0, 60, 100)
	e.Control()

	v := e.Voice(0)
	v.osc[0].phase = 0xfd00
	v.osc[0].increment = 0x0200
	v.osc[1].phase = 0x4321
	v.osc[1].increment = 0

	v.Audio() // phase 0xff00, no wrap yet
	if v.osc[1].Phase() == 0 {
		t.Fatal("oscillator 2 reset before oscillator 1 wrapped")
	}
	v.Audio() // phase wraps to 0x0100
	if v.osc[1].Phase() != 0 {
		t.Errorf("oscillator 2 phase after wrap: got %#x, want 0", v.osc[1].Phase())
	}
}

func TestDeadVoiceRendersSilence(t *testing.T) {
	e := NewEngine()
	e.Control() // no note: both envelopes dead
	v := e.Voice(0)
	if !v.Dead() {
		t.Fatal("voice with idle envelopes must be dead")
	}
	v.Audio()
	if v.Signal() != 128 {
		t.Errorf("dead voice signal: got %d, want 128", v.Signal())
	}
}
