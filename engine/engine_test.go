package engine_test

import (
	"testing"

	"github.com/vsariola/virta"
	"github.com/vsariola/virta/engine"
)

// renderBlock runs one control tick followed by n audio ticks and returns the
// voice samples.
func renderBlock(e *engine.Engine, n int) []uint8 {
	e.Control()
	samples := make([]uint8, n)
	for i := range samples {
		e.Audio()
		samples[i] = e.Voice(0).Signal()
	}
	return samples
}

func TestDefaultPatchEndToEnd(t *testing.T) {
	e := engine.NewEngine()
	e.NoteOn(0, 60, 100)
	samples := renderBlock(e, 16)

	if e.Voice(0).Dead() {
		t.Fatal("voice must be alive after a note-on")
	}
	silent := true
	for _, s := range samples {
		if s != 128 {
			silent = false
			break
		}
	}
	if silent {
		t.Fatal("default patch rendered silence")
	}

	// The render is a pure function of the patch and the tables: a second
	// engine fed the same events must produce the same samples.
	e2 := engine.NewEngine()
	e2.NoteOn(0, 60, 100)
	for i, s := range renderBlock(e2, 16) {
		if s != samples[i] {
			t.Fatalf("sample %d: got %d, want %d", i, s, samples[i])
		}
	}
}

func TestControlVoltageOutputsFollowThePatch(t *testing.T) {
	e := engine.NewEngine()
	e.NoteOn(0, 60, 100)
	e.Control()
	v := e.Voice(0)
	if v.AmplitudeCV() == 0 {
		t.Error("amplitude CV must be nonzero while the VCA envelope is open")
	}
	if v.CutoffCV() == 0 {
		t.Error("cutoff CV must track the half-open default filter")
	}

	e.SetParameter(virta.ParamFilterResonance, 63)
	e.Control()
	if got, want := v.ResonanceCV(), uint8(63<<2); got != want {
		t.Errorf("resonance CV: got %d, want %d", got, want)
	}
}

func TestSetParameterRoundTripsThroughGetParameter(t *testing.T) {
	e := engine.NewEngine()
	e.SetParameter(virta.ParamFilterCutoff, 42)
	if got := e.GetParameter(virta.ParamFilterCutoff); got != 42 {
		t.Errorf("cutoff readback: got %d, want 42", got)
	}
	// Out-of-range indices are ignored, not validated.
	e.SetParameter(-1, 99)
	e.SetParameter(virta.NumParams, 99)
	if got := e.GetParameter(virta.NumParams); got != 0 {
		t.Errorf("out-of-range readback: got %d, want 0", got)
	}
}

func TestShapeParameterSelectsAlgorithm(t *testing.T) {
	e := engine.NewEngine()
	e.SetParameter(virta.ParamOscShape1, virta.WaveformSine)
	e.NoteOn(0, 60, 100)
	a := renderBlock(e, 64)

	e2 := engine.NewEngine()
	e2.SetParameter(virta.ParamOscShape1, virta.WaveformTriangle)
	e2.NoteOn(0, 60, 100)
	b := renderBlock(e2, 64)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different oscillator shapes rendered identical audio")
	}
}

func TestChannelFilter(t *testing.T) {
	e := engine.NewEngine() // default patch listens on channel 1
	if !e.CheckChannel(0) {
		t.Error("channel 1 patch must accept channel 0 events")
	}
	if e.CheckChannel(1) {
		t.Error("channel 1 patch must reject channel 1 events")
	}
	e.OmniModeOn(0)
	if !e.CheckChannel(9) {
		t.Error("omni mode must accept every channel")
	}
	e.OmniModeOff(4)
	if !e.CheckChannel(4) || e.CheckChannel(0) {
		t.Error("omni-off must narrow reception to the arriving channel")
	}
}

func TestResetAllControllersCentersTheSources(t *testing.T) {
	e := engine.NewEngine()
	e.PitchBend(0, 0)
	e.ControlChange(0, 1, 127) // modulation wheel
	if e.ModulationSource(virta.SrcPitchBend) == 128 {
		t.Fatal("pitch bend source did not move")
	}
	e.ResetAllControllers(0)
	if e.ModulationSource(virta.SrcPitchBend) != 128 {
		t.Error("pitch bend must re-center to 128")
	}
	if e.ModulationSource(virta.SrcWheel) != 0 {
		t.Error("wheel must reset to 0")
	}
}

func TestNRPNDataEntryWritesSelectedParameter(t *testing.T) {
	e := engine.NewEngine()
	e.ControlChange(0, 99, virta.ParamFilterCutoff) // NRPN MSB selects the parameter
	e.ControlChange(0, 6, 77)                       // data entry writes it
	if got := e.GetParameter(virta.ParamFilterCutoff); got != 77 {
		t.Errorf("cutoff after NRPN write: got %d, want 77", got)
	}
}
