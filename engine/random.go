package engine

// noiseGenerator is a 16-bit Galois LFSR. It is ticked once every fourth audio
// sample; the high byte doubles as the noise sample for the mixer and the
// value of the random modulation source.
type noiseGenerator struct {
	state uint16
}

func (n *noiseGenerator) reset() {
	n.state = 0xace1
}

func (n *noiseGenerator) update() {
	lsb := n.state & 1
	n.state >>= 1
	if lsb != 0 {
		n.state ^= 0xb400
	}
}

func (n *noiseGenerator) msb() uint8 {
	return uint8(n.state >> 8)
}
