package engine

import (
	"testing"

	"github.com/vsariola/virta"
)

func TestNoteStackLastNotePriority(t *testing.T) {
	var s noteStack
	s.NoteOn(60, 100)
	s.NoteOn(64, 90)
	s.NoteOn(67, 80)
	if n, v := s.MostRecent(); n != 67 || v != 80 {
		t.Fatalf("most recent: got %d/%d, want 67/80", n, v)
	}
	s.NoteOff(67)
	if n, _ := s.MostRecent(); n != 64 {
		t.Fatalf("after release: got %d, want 64", n)
	}
	// Re-pressing a held note moves it to the top.
	s.NoteOn(60, 110)
	if n, v := s.MostRecent(); n != 60 || v != 110 {
		t.Fatalf("re-press: got %d/%d, want 60/110", n, v)
	}
	if s.size != 2 {
		t.Fatalf("size after re-press: got %d, want 2", s.size)
	}
}

func TestNoteStackSorted(t *testing.T) {
	var s noteStack
	for _, n := range []uint8{67, 60, 64} {
		s.NoteOn(n, 100)
	}
	want := []uint8{60, 64, 67}
	for i, w := range want {
		if n, _ := s.Sorted(uint8(i)); n != w {
			t.Errorf("sorted[%d]: got %d, want %d", i, n, w)
		}
	}
}

func TestMonoReleaseReturnsToHeldNote(t *testing.T) {
	e := NewEngine()
	v := e.Voice(0)
	e.NoteOn(0, 60, 100)
	e.NoteOn(0, 64, 100)
	if v.pitchTarget != int16(64)<<7 {
		t.Fatalf("target after second note: got %d, want %d", v.pitchTarget, int16(64)<<7)
	}
	e.NoteOff(0, 64, 0)
	if v.pitchTarget != int16(60)<<7 {
		t.Errorf("target after release: got %d, want %d", v.pitchTarget, int16(60)<<7)
	}
	e.NoteOff(0, 60, 0)
	if v.envelopes[0].Stage() != StageRelease {
		t.Errorf("releasing the last note must release the envelopes")
	}
}

func TestArpeggiatorCyclesHeldNotesUpwards(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamArpOctaves, 2)
	e.SetParameter(virta.ParamArpPattern, 0) // every step
	e.NoteOn(0, 60, 100)
	e.NoteOn(0, 64, 100)

	c := &e.controller
	if !c.Active() {
		t.Fatal("controller must be active with notes held and octaves > 0")
	}
	v := e.Voice(0)
	want := []int16{60, 64, 72, 76, 60}
	for _, w := range want {
		c.advanceStep()
		if !c.HasArpeggiatorNote() {
			t.Fatal("pattern 0 must gate every step")
		}
		if v.pitchTarget != w<<7 {
			t.Fatalf("arp note: got %d, want %d", v.pitchTarget>>7, w)
		}
	}
}

func TestArpeggiatorStepTiming(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamArpTempo, 240)
	e.SetParameter(virta.ParamArpOctaves, 1)
	e.NoteOn(0, 60, 100)

	c := &e.controller
	ticks := int(c.EstimatedBeatDuration() / 4)
	for i := 0; i < ticks-1; i++ {
		if c.Control() {
			t.Fatalf("step advanced early, at tick %d of %d", i, ticks)
		}
	}
	if !c.Control() {
		t.Error("step must advance after one step duration")
	}
}

func TestExternalClockAdvancesEverySixPulses(t *testing.T) {
	e := NewEngine()
	e.SetParameter(virta.ParamArpTempo, 0) // below 40: external clock
	e.Start()
	c := &e.controller

	// Start primes the first step to fire immediately.
	if !c.Control() {
		t.Fatal("first step after Start must fire")
	}
	for i := 0; i < 5; i++ {
		e.Clock()
	}
	if c.Control() {
		t.Fatal("step advanced before six pulses")
	}
	e.Clock()
	if !c.Control() {
		t.Error("step must advance on the sixth pulse")
	}
	e.Stop()
	if c.Active() {
		t.Error("controller must go inactive on Stop")
	}
}

func TestAllSoundOffSilencesImmediately(t *testing.T) {
	e := NewEngine()
	e.NoteOn(0, 60, 100)
	e.Control()
	if e.Voice(0).Dead() {
		t.Fatal("voice must be alive after note-on")
	}
	e.AllSoundOff(0)
	e.Control()
	if !e.Voice(0).Dead() {
		t.Error("voice must be dead after all-sound-off")
	}
}
