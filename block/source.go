package block

import "github.com/sarchlab/tickrun/sim"

// Constant always outputs the same value.
type Constant struct {
	Value float64
}

func newConstantFromParams(name string, src ParamSource) Block {
	return &Constant{Value: src.Float(name, "value", 0)}
}

// Generate returns the constant.
func (b *Constant) Generate(_ sim.Snapshot) float64 {
	return b.Value
}

// Ramp integrates a constant rate over the timestep it is given. Its output
// is its own accumulated memory, so it only advances by the time the running
// state actually observed.
type Ramp struct {
	Rate  float64
	value float64
}

// NewRamp creates a ramp starting at initial.
func NewRamp(initial, rate float64) *Ramp {
	return &Ramp{Rate: rate, value: initial}
}

func newRampFromParams(name string, src ParamSource) Block {
	return NewRamp(src.Float(name, "initial", 0), src.Float(name, "rate", 1))
}

// Generate accumulates rate*dt and returns the new value.
func (b *Ramp) Generate(in sim.Snapshot) float64 {
	b.value += b.Rate * in.TimestepS()
	return b.value
}
