package engine

import (
	"testing"

	"github.com/vsariola/virta"
)

// Two synced LFOs at rates 3 and 7 give a combined reset cadence of
// (1+3) * (1+7) = 32 steps.
func TestSyncedLFOResetCadence(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamLFORate1, 3)
	e.SetParameter(virta.ParamLFORate2, 7)
	if e.numLFOResetSteps != 32 {
		t.Fatalf("reset cadence: got %d, want 32", e.numLFOResetSteps)
	}

	for i := 0; i < 10; i++ {
		e.lfos[0].Render()
		e.lfos[1].Render()
	}
	for i := 0; i < 31; i++ {
		e.stepAdvanced()
	}
	if e.lfos[0].Phase() == 0 || e.lfos[1].Phase() == 0 {
		t.Fatal("LFO phases reset before the cadence was reached")
	}
	e.stepAdvanced()
	if e.lfos[0].Phase() != 0 || e.lfos[1].Phase() != 0 {
		t.Errorf("LFO phases after 32 steps: got %d and %d, want 0 and 0",
			e.lfos[0].Phase(), e.lfos[1].Phase())
	}
}

func TestFreeRunningLFOIsNotReset(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamLFORate1, 3)   // synced
	e.SetParameter(virta.ParamLFORate2, 100) // free-running
	if e.numLFOResetSteps != 4 {
		t.Fatalf("reset cadence: got %d, want 4", e.numLFOResetSteps)
	}
	for i := 0; i < 10; i++ {
		e.lfos[0].Render()
		e.lfos[1].Render()
	}
	free := e.lfos[1].Phase()
	for i := 0; i < 4; i++ {
		e.stepAdvanced()
	}
	if e.lfos[0].Phase() != 0 {
		t.Error("synced LFO was not reset")
	}
	if e.lfos[1].Phase() != free {
		t.Error("free-running LFO must keep its phase across resyncs")
	}
}

func TestNoteOnPrimesResyncWhenIdle(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamLFORate1, 3)
	e.SetParameter(virta.ParamLFORate2, 7)
	e.NoteOn(0, 60, 100)
	if e.lfoResetCounter != e.numLFOResetSteps-1 {
		t.Errorf("reset counter after idle note-on: got %d, want %d",
			e.lfoResetCounter, e.numLFOResetSteps-1)
	}
	e.lfos[0].Render()
	e.stepAdvanced()
	if e.lfos[0].Phase() != 0 {
		t.Error("first step boundary after note-on must resync the LFOs")
	}
}

func TestLFOWaveformRanges(t *testing.T) {
	shapes := []uint8{virta.LFOTriangle, virta.LFOSquare, virta.LFORamp, virta.LFORandom}
	for _, shape := range shapes {
		var l LFO
		l.Init()
		l.Update(shape, 1000)
		seen := map[uint8]bool{}
		for i := 0; i < 1000; i++ {
			seen[l.Render()] = true
		}
		if len(seen) == 0 {
			t.Fatalf("shape %d produced no values", shape)
		}
	}
}

func TestTriangleLFOIsSymmetric(t *testing.T) {
	var l LFO
	l.Init()
	l.Update(virta.LFOTriangle, 0)
	l.phase = 0x4000
	up := l.Render()
	l.phase = 0xc000
	down := l.Render()
	if up != 128 || down != 127 {
		t.Errorf("quarter-phase values: got %d and %d, want 128 and 127", up, down)
	}
}
