// Package block provides the computation units a state runs once per tick.
package block

import (
	"fmt"
	"sort"

	"github.com/sarchlab/tickrun/sim"
)

// A Block produces one output value per tick.
//
// Generate must be deterministic given the snapshot and the block's own
// memory. It must not read the wall clock or touch other blocks.
type Block interface {
	Generate(in sim.Snapshot) float64
}

// Fallible is implemented by blocks that can fail to produce a value. When a
// block implements it, states call GenerateE instead of Generate.
type Fallible interface {
	GenerateE(in sim.Snapshot) (float64, error)
}

// ParamSource answers parameter lookups by component and parameter name,
// falling back to def when the parameter is not configured.
type ParamSource interface {
	Float(component, name string, def float64) float64
}

// A Factory builds a block named name, reading its parameters from src.
type Factory func(name string, src ParamSource) Block

var factories = map[string]Factory{
	"sine":     func(n string, s ParamSource) Block { return NewSine(LoadWaveParams(n, s)) },
	"triangle": func(n string, s ParamSource) Block { return NewTriangle(LoadWaveParams(n, s)) },
	"square":   func(n string, s ParamSource) Block { return NewSquare(LoadWaveParams(n, s)) },
	"sawtooth": func(n string, s ParamSource) Block { return NewSawtooth(LoadWaveParams(n, s)) },
	"constant": newConstantFromParams,
	"ramp":     newRampFromParams,
}

// Register adds a block kind. It panics if the kind already exists.
func Register(kind string, f Factory) {
	if _, exists := factories[kind]; exists {
		panic("block kind " + kind + " already registered")
	}

	factories[kind] = f
}

// Kinds lists the registered block kinds in alphabetical order.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

// New creates a block of the given kind. An unknown kind is a configuration
// error.
func New(kind, name string, src ParamSource) (Block, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown block kind %q for block %q",
			sim.ErrConfiguration, kind, name)
	}

	return f(name, src), nil
}

// OutputField returns the record field name under which the output of the
// named block is logged.
func OutputField(name string) string {
	return name + ".0"
}
