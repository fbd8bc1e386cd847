package rules

// #region mulberry32
// Mulberry32 is the seeded 32-bit generator used for bootstrap resampling.
// The same seed yields the same sequence on every platform. A Mulberry32 is
// not safe for concurrent use; give each simulation its own.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 seeds a generator. Seeds wider than 32 bits are truncated.
func NewMulberry32(seed int64) *Mulberry32 {
	return &Mulberry32{state: uint32(seed)}
}

// Next returns the next value in [0, 1).
func (m *Mulberry32) Next() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Intn returns a value in [0, n). n must be positive.
func (m *Mulberry32) Intn(n int) int {
	i := int(m.Next() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// #endregion mulberry32
