// Package player runs the synthesis engine as a cooperative producer: it owns
// the engine, applies queued events between blocks and renders into a ring
// buffer that the audio backend drains. The engine itself is only ever touched
// from the player's goroutine.
package player

import (
	"time"

	"github.com/vsariola/virta"
	"github.com/vsariola/virta/engine"
)

// Event is anything the player applies to the engine between blocks. Events
// arrive from other goroutines (MIDI callbacks, the CLI) and take effect
// atomically at the next block boundary.
type Event interface {
	apply(e *engine.Engine)
}

type (
	NoteOnEvent        struct{ Channel, Note, Velocity uint8 }
	NoteOffEvent       struct{ Channel, Note, Velocity uint8 }
	ControlChangeEvent struct{ Channel, Controller, Value uint8 }
	PitchBendEvent     struct {
		Channel uint8
		Bend    uint16
	}
	ParameterEvent struct {
		Index int
		Value uint8
	}
	PatchEvent struct{ Patch virta.Patch }
	ClockEvent struct{}
	StartEvent struct{}
	StopEvent  struct{}
)

func (ev NoteOnEvent) apply(e *engine.Engine) {
	if e.CheckChannel(ev.Channel) {
		e.NoteOn(ev.Channel, ev.Note, ev.Velocity)
	}
}

func (ev NoteOffEvent) apply(e *engine.Engine) {
	if e.CheckChannel(ev.Channel) {
		e.NoteOff(ev.Channel, ev.Note, ev.Velocity)
	}
}

func (ev ControlChangeEvent) apply(e *engine.Engine) {
	if e.CheckChannel(ev.Channel) {
		e.ControlChange(ev.Channel, ev.Controller, ev.Value)
	}
}

func (ev PitchBendEvent) apply(e *engine.Engine) {
	if e.CheckChannel(ev.Channel) {
		e.PitchBend(ev.Channel, ev.Bend)
	}
}

func (ev ParameterEvent) apply(e *engine.Engine) { e.SetParameter(ev.Index, ev.Value) }
func (ev PatchEvent) apply(e *engine.Engine)     { e.SetPatch(ev.Patch) }
func (ev ClockEvent) apply(e *engine.Engine)     { e.Clock() }
func (ev StartEvent) apply(e *engine.Engine)     { e.Start() }
func (ev StopEvent) apply(e *engine.Engine)      { e.Stop() }

// Player renders the engine block by block. Backpressure works by skipping:
// when the ring buffer has no room for a block, Step does nothing instead of
// blocking, so the engine's tick deadlines are never spent waiting.
type Player struct {
	engine *engine.Engine
	events chan Event
	ring   *RingBuffer
	volume VolumeAnalyzer

	// MasterVolume scales the output, 255 = unity.
	MasterVolume uint8

	block [engine.BlockSize][2]float32
}

func NewPlayer(e *engine.Engine) *Player {
	return &Player{
		engine:       e,
		events:       make(chan Event, 256),
		ring:         NewRingBuffer(engine.BlockSize * 32),
		MasterVolume: 255,
	}
}

// Send queues an event for the next block boundary. When the queue is full
// the event is dropped; dropping is preferable to blocking a MIDI driver
// callback.
func (p *Player) Send(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}

// Source returns the consumer side of the ring buffer for the audio backend.
func (p *Player) Source() virta.AudioSource { return ringSource{p.ring} }

// Level returns the smoothed output power level, linear in [0, 1].
func (p *Player) Level() float32 { return p.volume.Level }

// Step runs one cooperative iteration: it applies every queued event and, if
// the ring buffer can take a block, renders one. It reports whether audio was
// produced; false means the step was skipped for backpressure.
func (p *Player) Step() bool {
	for {
		select {
		case ev := <-p.events:
			ev.apply(p.engine)
			continue
		default:
		}
		break
	}
	if !p.ring.WritableBlock(engine.BlockSize) {
		return false
	}
	renderBlock(p.engine, p.MasterVolume, p.block[:])
	p.ring.Write(p.block[:])
	p.volume.Update(p.block[:])
	return true
}

// Run steps the player until quit closes. Skipped steps yield briefly so the
// consumer can catch up.
func (p *Player) Run(quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}
		if !p.Step() {
			time.Sleep(time.Duration(engine.BlockSize) * time.Second / engine.SampleRate)
		}
	}
}

// renderBlock runs one control tick and BlockSize audio ticks, converting the
// voice output to stereo float. The amplitude CV is applied here the way the
// analog VCA would apply it.
func renderBlock(e *engine.Engine, masterVolume uint8, out [][2]float32) {
	e.Control()
	v := e.Voice(0)
	gain := float32(masterVolume) / 255
	for i := range out {
		e.Audio()
		s := (float32(v.Signal()) - 128) / 128
		s *= float32(v.AmplitudeCV()) / 255 * gain
		out[i][0] = s
		out[i][1] = s
	}
}

// Render runs the engine offline for the given number of samples, rounded up
// to whole blocks, and returns the rendered buffer.
func Render(e *engine.Engine, numSamples int, masterVolume uint8) virta.AudioBuffer {
	if numSamples <= 0 {
		return nil
	}
	numBlocks := (numSamples + engine.BlockSize - 1) / engine.BlockSize
	buffer := make(virta.AudioBuffer, numBlocks*engine.BlockSize)
	for i := 0; i < numBlocks; i++ {
		renderBlock(e, masterVolume, buffer[i*engine.BlockSize:(i+1)*engine.BlockSize])
	}
	return buffer
}

// ringSource adapts the ring buffer to an AudioSource. An empty ring yields
// silence rather than blocking or ending the stream: the producer may just be
// momentarily behind.
type ringSource struct{ ring *RingBuffer }

func (s ringSource) ReadAudio(buffer virta.AudioBuffer) (int, error) {
	n := s.ring.Read(buffer)
	for i := n; i < len(buffer); i++ {
		buffer[i] = [2]float32{}
	}
	return len(buffer), nil
}
