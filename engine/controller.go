package engine

// VoiceController is the note dispatcher and arpeggiator. It keeps the stack
// of held notes, allocates them to the (single) voice with last-note priority,
// and, when arpeggiation is enabled, steps through the held notes on a clock
// that is either internal (from the tempo parameter) or external (MIDI clock).
// It also owns the step/tempo state the engine reads for the sequencer
// modulation sources and the tempo-synced LFOs.
type VoiceController struct {
	voices []*Voice

	notes noteStack

	tempo       uint8
	octaves     uint8
	pattern     uint8
	swing       uint8
	patternSize uint8

	running       bool // external transport started
	internalClock bool

	step        uint8
	tickCounter uint16

	arpIndex   uint16
	hasArpNote bool

	// External clock bookkeeping: 24 PPQN, 6 pulses per step. The measured
	// pulse period (in control ticks) feeds the beat duration estimate.
	externalPulses   uint8
	ticksSincePulse  uint16
	pulsePeriodTicks uint16
}

const pulsesPerStep = 6 // 24 PPQN, sixteenth-note steps

func (c *VoiceController) Init(voices []*Voice) {
	c.voices = voices
	c.tempo = 120
	c.patternSize = 16
	c.internalClock = true
	c.Reset()
}

// Reset rewinds the step position and clock without touching the held notes.
func (c *VoiceController) Reset() {
	c.step = 0
	c.tickCounter = 0
	c.arpIndex = 0
	c.externalPulses = 0
	c.ticksSincePulse = 0
	c.hasArpNote = false
}

func (c *VoiceController) SetTempo(tempo uint8) {
	c.tempo = tempo
	c.internalClock = tempo >= 40
}

func (c *VoiceController) SetOctaves(octaves uint8) { c.octaves = octaves }
func (c *VoiceController) SetPattern(pattern uint8) { c.pattern = pattern }
func (c *VoiceController) SetSwing(swing uint8)     { c.swing = swing }

func (c *VoiceController) SetPatternSize(size uint8) {
	if size == 0 || size > 16 {
		size = 16
	}
	c.patternSize = size
	if c.step >= size {
		c.step = 0
	}
}

// Active reports whether the controller is driving notes by itself: either
// the external transport is running or the arpeggiator is cycling held notes.
func (c *VoiceController) Active() bool {
	return c.running || (c.octaves > 0 && c.notes.size > 0)
}

func (c *VoiceController) Step() uint8 { return c.step }

func (c *VoiceController) HasArpeggiatorNote() bool { return c.hasArpNote }

// EstimatedBeatDuration returns the duration of one beat in control ticks,
// from the tempo parameter or, under external clock, from the measured pulse
// period.
func (c *VoiceController) EstimatedBeatDuration() uint16 {
	if !c.internalClock && c.pulsePeriodTicks > 0 {
		return c.pulsePeriodTicks * 24
	}
	t := c.tempo
	if t < 40 {
		t = 120
	}
	return uint16(ControlRate * 60 / int(t))
}

// NoteOn pushes a held note. Outside arpeggiator mode the voice is triggered
// immediately, legato when another note was already held.
func (c *VoiceController) NoteOn(note, velocity uint8) {
	if velocity == 0 {
		c.NoteOff(note)
		return
	}
	legato := c.notes.size > 0
	c.notes.NoteOn(note, velocity)
	if c.octaves == 0 {
		c.trigger(note, velocity, legato)
	}
}

// NoteOff releases a held note. With other notes still held the voice slides
// back to the most recent of them; otherwise the envelopes are released.
func (c *VoiceController) NoteOff(note uint8) {
	c.notes.NoteOff(note)
	if c.notes.size == 0 {
		c.release()
		c.hasArpNote = false
		return
	}
	if c.octaves == 0 {
		n, v := c.notes.MostRecent()
		c.trigger(n, v, true)
	}
}

func (c *VoiceController) AllNotesOff() {
	c.notes.Clear()
	c.hasArpNote = false
	c.release()
}

func (c *VoiceController) AllSoundOff() {
	c.notes.Clear()
	c.hasArpNote = false
	for _, v := range c.voices {
		v.Kill()
	}
}

func (c *VoiceController) Start() {
	c.running = true
	c.Reset()
	// Prime the clock so the first step fires on the next tick or pulse.
	c.tickCounter = c.ticksForStep()
	c.externalPulses = pulsesPerStep
}

func (c *VoiceController) Stop() {
	c.running = false
	c.hasArpNote = false
	c.release()
}

// ExternalSync consumes one MIDI clock pulse and refreshes the beat duration
// estimate.
func (c *VoiceController) ExternalSync() {
	c.externalPulses++
	if c.ticksSincePulse > 0 {
		c.pulsePeriodTicks = c.ticksSincePulse
	}
	c.ticksSincePulse = 0
}

// Control advances the controller by one control tick and reports whether the
// step position moved.
func (c *VoiceController) Control() bool {
	c.ticksSincePulse++
	if !c.Active() {
		c.tickCounter = 0
		return false
	}
	if c.internalClock {
		c.tickCounter++
		if c.tickCounter < c.ticksForStep() {
			return false
		}
		c.tickCounter = 0
	} else {
		if c.externalPulses < pulsesPerStep {
			return false
		}
		c.externalPulses -= pulsesPerStep
	}
	c.advanceStep()
	return true
}

// ticksForStep returns the length of the current step in control ticks,
// lengthening even steps and shortening odd ones by the swing amount.
func (c *VoiceController) ticksForStep() uint16 {
	base := c.EstimatedBeatDuration() / 4
	adj := uint16(uint32(base) * uint32(c.swing) >> 9)
	if c.step&1 == 0 {
		return base + adj
	}
	return base - adj
}

func (c *VoiceController) advanceStep() {
	c.step++
	if c.step >= c.patternSize {
		c.step = 0
	}
	if c.octaves == 0 || c.notes.size == 0 {
		return
	}
	if arpPatterns[int(c.pattern)%len(arpPatterns)]&(1<<c.step) == 0 {
		if c.hasArpNote {
			c.release()
			c.hasArpNote = false
		}
		return
	}
	span := uint16(c.notes.size) * uint16(c.octaves)
	if c.arpIndex >= span {
		c.arpIndex = 0
	}
	note, velocity := c.notes.Sorted(uint8(c.arpIndex % uint16(c.notes.size)))
	note += 12 * uint8(c.arpIndex/uint16(c.notes.size))
	c.arpIndex++
	c.trigger(note, velocity, false)
	c.hasArpNote = true
}

func (c *VoiceController) trigger(note, velocity uint8, legato bool) {
	for _, v := range c.voices {
		v.Trigger(note, velocity, legato)
	}
}

func (c *VoiceController) release() {
	for _, v := range c.voices {
		v.Release()
	}
}

// arpPatterns are 16-step gate masks, bit n gating step n.
var arpPatterns = [...]uint16{
	0xffff, // every step
	0xaaaa, // offbeats
	0x5555, // onbeats
	0xcccc,
	0xf0f0,
	0xff00,
	0xb6db,
	0x9249,
	0x8888,
	0xedb6,
}

// noteStack keeps the held notes in press order, most recent last. A note
// re-pressed while held moves to the top. When full, the oldest note is
// dropped.
type noteStack struct {
	note     [16]uint8
	velocity [16]uint8
	size     uint8
}

func (s *noteStack) Clear() { s.size = 0 }

func (s *noteStack) NoteOn(note, velocity uint8) {
	s.NoteOff(note)
	if int(s.size) == len(s.note) {
		copy(s.note[:], s.note[1:])
		copy(s.velocity[:], s.velocity[1:])
		s.size--
	}
	s.note[s.size] = note
	s.velocity[s.size] = velocity
	s.size++
}

func (s *noteStack) NoteOff(note uint8) {
	for i := uint8(0); i < s.size; i++ {
		if s.note[i] == note {
			copy(s.note[i:], s.note[i+1:s.size])
			copy(s.velocity[i:], s.velocity[i+1:s.size])
			s.size--
			return
		}
	}
}

// MostRecent returns the note pressed last. Only valid when size > 0.
func (s *noteStack) MostRecent() (note, velocity uint8) {
	return s.note[s.size-1], s.velocity[s.size-1]
}

// Sorted returns the i-th lowest held note. Only valid for i < size; held
// notes are unique by construction.
func (s *noteStack) Sorted(i uint8) (note, velocity uint8) {
	prev := -1
	for {
		lowest := 256
		idx := 0
		for j := 0; j < int(s.size); j++ {
			if int(s.note[j]) > prev && int(s.note[j]) < lowest {
				lowest = int(s.note[j])
				idx = j
			}
		}
		if i == 0 || lowest == 256 {
			return s.note[idx], s.velocity[idx]
		}
		i--
		prev = lowest
	}
}
