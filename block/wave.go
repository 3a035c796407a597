package block

import (
	"math"

	"github.com/sarchlab/tickrun/sim"
)

// WaveParams configures a periodic waveform generator.
type WaveParams struct {
	Amplitude float64
	Frequency float64
	Phase     float64
	Bias      float64
}

// LoadWaveParams reads amplitude, frequency, phase and bias for the named
// block, defaulting to a unit wave.
func LoadWaveParams(name string, src ParamSource) WaveParams {
	return WaveParams{
		Amplitude: src.Float(name, "amplitude", 1),
		Frequency: src.Float(name, "frequency", 1),
		Phase:     src.Float(name, "phase", 0),
		Bias:      src.Float(name, "bias", 0),
	}
}

func (p WaveParams) angle(t float64) float64 {
	return 2*math.Pi*p.Frequency*t + p.Phase
}

// Sine generates A*sin(2*pi*f*t + phase) + bias.
type Sine struct {
	Params WaveParams
}

// NewSine creates a Sine block.
func NewSine(p WaveParams) *Sine {
	return &Sine{Params: p}
}

// Generate returns the wave value at the snapshot time.
func (b *Sine) Generate(in sim.Snapshot) float64 {
	p := b.Params
	return p.Amplitude*math.Sin(p.angle(in.AppTimeS())) + p.Bias
}

// Triangle generates a triangle wave in phase with Sine, peaking at the same
// times.
type Triangle struct {
	Params WaveParams
}

// NewTriangle creates a Triangle block.
func NewTriangle(p WaveParams) *Triangle {
	return &Triangle{Params: p}
}

// Generate returns the wave value at the snapshot time.
func (b *Triangle) Generate(in sim.Snapshot) float64 {
	p := b.Params
	s := math.Sin(p.angle(in.AppTimeS()))

	return p.Amplitude*(2/math.Pi)*math.Asin(s) + p.Bias
}

// Square outputs +A while the matching sine is non-negative and -A otherwise.
type Square struct {
	Params WaveParams
}

// NewSquare creates a Square block.
func NewSquare(p WaveParams) *Square {
	return &Square{Params: p}
}

// Generate returns the wave value at the snapshot time.
func (b *Square) Generate(in sim.Snapshot) float64 {
	p := b.Params
	if math.Sin(p.angle(in.AppTimeS())) < 0 {
		return -p.Amplitude + p.Bias
	}

	return p.Amplitude + p.Bias
}

// Sawtooth rises linearly from -A to +A once per period.
type Sawtooth struct {
	Params WaveParams
}

// NewSawtooth creates a Sawtooth block.
func NewSawtooth(p WaveParams) *Sawtooth {
	return &Sawtooth{Params: p}
}

// Generate returns the wave value at the snapshot time.
func (b *Sawtooth) Generate(in sim.Snapshot) float64 {
	p := b.Params
	x := p.Frequency*in.AppTimeS() + p.Phase/(2*math.Pi)
	frac := x - math.Floor(x)

	return p.Amplitude*(2*frac-1) + p.Bias
}
