package player

import "sync"

// RingBuffer is the producer/consumer handoff between the render loop and the
// audio backend. The producer checks WritableBlock before rendering and skips
// the render pass when it would not fit; neither side ever blocks.
type RingBuffer struct {
	mu    sync.Mutex
	buf   [][2]float32
	read  int
	write int
	size  int
}

func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{buf: make([][2]float32, capacity)}
}

// WritableBlock reports whether n frames fit in the buffer.
func (r *RingBuffer) WritableBlock(n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)-r.size >= n
}

// Write appends frames, returning how many fit.
func (r *RingBuffer) Write(frames [][2]float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range frames {
		if r.size == len(r.buf) {
			break
		}
		r.buf[r.write] = f
		r.write = (r.write + 1) % len(r.buf)
		r.size++
		n++
	}
	return n
}

// Read fills dst with buffered frames, returning how many were available.
func (r *RingBuffer) Read(dst [][2]float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for n < len(dst) && r.size > 0 {
		dst[n] = r.buf[r.read]
		r.read = (r.read + 1) % len(r.buf)
		r.size--
		n++
	}
	return n
}

// Len returns the number of buffered frames.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
