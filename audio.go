package virta

import "io"

type (
	// AudioBuffer is a buffer of stereo audio samples of the form
	// [[left1, right1], [left2, right2], ...], in the range [-1, 1].
	AudioBuffer [][2]float32

	// AudioSource is a source of stereo audio, e.g. a player rendering the
	// synthesis engine in real time or a prerendered AudioBuffer. ReadAudio
	// should fill the buffer completely when it can; returning io.EOF ends
	// the playback.
	AudioSource interface {
		ReadAudio(buffer AudioBuffer) (n int, err error)
	}

	// AudioContext is the audio backend, giving the ability to play an
	// AudioSource.
	AudioContext interface {
		Play(source AudioSource) PlayerCloser
		Close() error
	}

	// PlayerCloser is an ongoing playback that can be stopped.
	PlayerCloser interface {
		Close() error
	}
)

type bufferSource struct {
	buffer AudioBuffer
	pos    int
}

// Source returns an AudioSource playing back the (prerendered) buffer once.
func (b AudioBuffer) Source() AudioSource {
	return &bufferSource{buffer: b}
}

func (s *bufferSource) ReadAudio(buffer AudioBuffer) (int, error) {
	n := copy(buffer, s.buffer[s.pos:])
	s.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
