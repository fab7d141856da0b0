// Package oto wraps the ebitengine/oto backend as a virta.AudioContext.
package oto

import (
	"fmt"
	"io"
	"math"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/virta"
	"github.com/vsariola/virta/engine"
)

type (
	// OtoContext wraps the oto context so that it implements
	// virta.AudioContext.
	OtoContext struct {
		context *oto.Context
	}

	// OtoPlayer wraps an ongoing playback so that it implements
	// virta.PlayerCloser.
	OtoPlayer struct {
		player *oto.Player
	}
)

// NewContext initializes the audio backend: 44100 Hz, stereo, 16-bit.
func NewContext() (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   engine.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

// Play starts playing the source and returns a handle to stop it.
func (c *OtoContext) Play(source virta.AudioSource) virta.PlayerCloser {
	player := c.context.NewPlayer(&sourceReader{source: source})
	player.Play()
	return OtoPlayer{player: player}
}

func (c *OtoContext) Close() error {
	// An oto context cannot be closed; it lives for the process lifetime.
	return nil
}

func (p OtoPlayer) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

const bytesPerFrame = 4 // stereo 16-bit

// sourceReader converts an AudioSource into the int16 little-endian byte
// stream oto pulls from.
type sourceReader struct {
	source virta.AudioSource
	frames virta.AudioBuffer
	err    error
}

var _ io.Reader = (*sourceReader)(nil)

func (r *sourceReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	numFrames := len(p) / bytesPerFrame
	if numFrames == 0 {
		return 0, nil
	}
	if cap(r.frames) < numFrames {
		r.frames = make(virta.AudioBuffer, numFrames)
	}
	n, err := r.source.ReadAudio(r.frames[:numFrames])
	for i := 0; i < n; i++ {
		left := floatToInt16(r.frames[i][0])
		right := floatToInt16(r.frames[i][1])
		p[i*4] = byte(left)
		p[i*4+1] = byte(left >> 8)
		p[i*4+2] = byte(right)
		p[i*4+3] = byte(right >> 8)
	}
	if err != nil && n == 0 {
		return 0, err
	}
	if err != nil {
		// Deliver what we got; report the error on the next read.
		r.err = err
	}
	return n * bytesPerFrame, nil
}

func floatToInt16(v float32) int16 {
	if v <= -1 {
		return -math.MaxInt16
	}
	if v >= 1 {
		return math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}
