package play

import "math/rand/v2"

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource draws from math/rand/v2's global generator, which is safe for
// concurrent use by request goroutines.
func DefaultSource() Source { return globalSource{} }

// XorShift32 is a seeded deterministic source, used for reproducible draws.
// It is not safe for concurrent use.
type XorShift32 struct {
	state uint32
}

func NewXorShift32(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = 0x12345678
	}
	return &XorShift32{state: seed}
}

func (x *XorShift32) Next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

func (x *XorShift32) Float64() float64 {
	const span = float64(1 << 32)
	return float64(x.Next()) / span
}
