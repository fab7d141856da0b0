package engine

// 8/16-bit fixed-point primitives shared by the render paths. These mirror the
// arithmetic of an 8-bit DSP loop: sources and samples are unsigned bytes,
// modulation amounts are signed bytes, and intermediates live in 16 bits.

// u8Mix returns the weighted blend a*(256-balance)/256 + b*balance/256.
// Balance 0 passes a through bit-exact.
func u8Mix(a, b, balance uint8) uint8 {
	return uint8((uint16(a)*(256-uint16(balance)) + uint16(b)*uint16(balance)) >> 8)
}

// u8MulScale8 returns a*b >> 8.
func u8MulScale8(a, b uint8) uint8 {
	return uint8(uint16(a) * uint16(b) >> 8)
}

// s8u8Mul returns the full-width signed product of a signed amount and an
// unsigned source value.
func s8u8Mul(a int8, b uint8) int16 {
	return int16(a) * int16(b)
}

// s8u8MulScale8 returns a*b >> 8, keeping the sign of a.
func s8u8MulScale8(a int8, b uint8) int8 {
	return int8(int16(a) * int16(b) >> 8)
}

// s8s8MulScale8 returns the signed product of two signed bytes, scaled back
// into a signed byte.
func s8s8MulScale8(a, b int8) int8 {
	return int8(int16(a) * int16(b) >> 8)
}

// clip14 saturates a modulation accumulator to the shared 14-bit working
// range. Accumulators saturate, they never wrap.
func clip14(v int16) int16 {
	if v < 0 {
		return 0
	}
	if v > 16383 {
		return 16383
	}
	return v
}
