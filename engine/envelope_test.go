package engine

import "testing"

func TestEnvelopeStageProgression(t *testing.T) {
	var e Envelope
	e.Init()
	if !e.Dead() {
		t.Fatal("freshly initialized envelope must be dead")
	}
	// Times 0 are instantaneous: one tick per stage.
	e.Update(0, 0, 100, 0)
	e.Trigger(StageAttack)

	if got := e.Render(); got != 16383 {
		t.Fatalf("attack peak: got %d, want 16383", got)
	}
	if e.Stage() != StageDecay {
		t.Fatalf("stage after peak: got %d, want decay", e.Stage())
	}
	if got := e.Render(); got != int16(100)<<7 {
		t.Fatalf("sustain level: got %d, want %d", got, int16(100)<<7)
	}
	if e.Stage() != StageSustain {
		t.Fatalf("stage after decay: got %d, want sustain", e.Stage())
	}
	for i := 0; i < 10; i++ {
		if got := e.Render(); got != int16(100)<<7 {
			t.Fatalf("sustain must hold: got %d", got)
		}
	}
	e.Trigger(StageRelease)
	if got := e.Render(); got != 0 || !e.Dead() {
		t.Fatalf("after release: got %d, dead=%v", got, e.Dead())
	}
}

func TestEnvelopeSlowAttackIsMonotonic(t *testing.T) {
	var e Envelope
	e.Init()
	e.Update(80, 0, 0, 0)
	e.Trigger(StageAttack)
	prev := int16(-1)
	for e.Stage() == StageAttack {
		v := e.Render()
		if v <= prev && e.Stage() == StageAttack {
			t.Fatalf("attack not strictly increasing: %d after %d", v, prev)
		}
		prev = v
	}
	if prev != 16383 {
		t.Errorf("attack must end at full level, got %d", prev)
	}
}

// Retriggering the attack keeps the current level so fast retrigs do not
// click.
func TestEnvelopeRetriggerKeepsLevel(t *testing.T) {
	var e Envelope
	e.Init()
	e.Update(80, 0, 0, 0)
	e.Trigger(StageAttack)
	for i := 0; i < 5; i++ {
		e.Render()
	}
	level := e.Value()
	e.Trigger(StageAttack)
	if e.Value() != level {
		t.Errorf("level after retrigger: got %d, want %d", e.Value(), level)
	}
}
