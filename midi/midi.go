// Package midi opens a MIDI input via rtmidi and translates the decoded
// channel-voice and system messages into player events. Patch bulk dumps
// arriving over SysEx are decoded and forwarded as whole-patch events.
package midi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vsariola/virta"
	"github.com/vsariola/virta/player"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type RTMIDIContext struct {
	driver  *rtmididrv.Driver
	in      drivers.In
	stop    func()
	dst     *player.Player
	decoder virta.SysExDecoder
}

// NewContext opens the rtmidi driver. A nil driver (no MIDI support on the
// system) is tolerated: the context simply has no devices.
func NewContext(dst *player.Player) *RTMIDIContext {
	c := &RTMIDIContext{dst: dst}
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices returns the names of the available MIDI inputs.
func (c *RTMIDIContext) InputDevices() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// TryToOpenBy opens the first input whose name has the given prefix, or the
// first input available when takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if c.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if takeFirst || strings.HasPrefix(in.String(), namePrefix) {
			return c.open(in)
		}
	}
	return fmt.Errorf("no MIDI input matching %q", namePrefix)
}

func (c *RTMIDIContext) open(in drivers.In) error {
	c.Close()
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input %q failed: %w", in.String(), err)
	}
	stop, err := midi.ListenTo(in, c.HandleMessage, midi.UseSysEx())
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input %q failed: %w", in.String(), err)
	}
	c.in = in
	c.stop = stop
	return nil
}

// HandleMessage runs on the driver's callback goroutine; everything is
// forwarded to the player queue, never applied here.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity, controller, value uint8
	var rel int16
	var abs uint16
	var data []byte
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		c.dst.Send(player.NoteOnEvent{Channel: channel, Note: key, Velocity: velocity})
	case msg.GetNoteOff(&channel, &key, &velocity):
		c.dst.Send(player.NoteOffEvent{Channel: channel, Note: key, Velocity: velocity})
	case msg.GetControlChange(&channel, &controller, &value):
		c.dst.Send(player.ControlChangeEvent{Channel: channel, Controller: controller, Value: value})
	case msg.GetPitchBend(&channel, &rel, &abs):
		c.dst.Send(player.PitchBendEvent{Channel: channel, Bend: abs})
	case msg.GetSysEx(&data):
		c.feedSysEx(data)
	case msg.Is(midi.TimingClockMsg):
		c.dst.Send(player.ClockEvent{})
	case msg.Is(midi.StartMsg):
		c.dst.Send(player.StartEvent{})
	case msg.Is(midi.StopMsg):
		c.dst.Send(player.StopEvent{})
	}
}

// feedSysEx runs a bulk dump through the patch decoder. The driver strips the
// frame bytes, so they are re-fed around the payload.
func (c *RTMIDIContext) feedSysEx(data []byte) {
	c.decoder.Feed(0xf0)
	for _, b := range data {
		c.decoder.Feed(b)
	}
	if c.decoder.Feed(0xf7) != virta.SysExReceptionOK {
		return
	}
	patch, err := c.decoder.Patch()
	if err != nil {
		return
	}
	c.dst.Send(player.PatchEvent{Patch: patch})
}

// HasDeviceOpen reports whether an input is currently open.
func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.in != nil && c.in.IsOpen()
}

// Close closes the open input, if any. The driver stays usable.
func (c *RTMIDIContext) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.in != nil && c.in.IsOpen() {
		c.in.Close()
	}
	c.in = nil
}

// Destroy closes the input and the driver.
func (c *RTMIDIContext) Destroy() {
	c.Close()
	if c.driver != nil {
		c.driver.Close()
	}
}
