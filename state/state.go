// Package state groups blocks into states and switches between them.
package state

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/tickrun/block"
	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/sim"
)

// A Binding is a named block inside a state.
type Binding struct {
	Name  string
	Block block.Block
}

// Field returns the record field the binding writes.
func (b Binding) Field() string {
	return block.OutputField(b.Name)
}

type observation struct {
	appTimeUs uint64
}

// A State runs its blocks in order once per tick.
type State struct {
	id       string
	bindings []Binding
	outputs  []float64
	last     *observation
	logger   *slog.Logger

	// OnPostRun, if set, is called after every Run.
	OnPostRun func(s *State, rc sim.RuntimeContext)
}

// New creates a state. The blocks run in the order of the bindings.
func New(id string, bindings ...Binding) *State {
	return &State{
		id:       id,
		bindings: bindings,
		outputs:  make([]float64, len(bindings)),
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger used for per-iteration debug output.
func (s *State) WithLogger(logger *slog.Logger) *State {
	s.logger = logger
	return s
}

// ID returns the state id.
func (s *State) ID() string {
	return s.id
}

// Bindings returns the blocks of the state.
func (s *State) Bindings() []Binding {
	return s.bindings
}

// OutputFields returns the record fields the state writes, in block order.
func (s *State) OutputFields() []string {
	fields := make([]string, 0, len(s.bindings))
	for _, b := range s.bindings {
		fields = append(fields, b.Field())
	}

	return fields
}

// Outputs returns the values produced by the last Run, keyed by record field.
func (s *State) Outputs() map[string]float64 {
	out := make(map[string]float64, len(s.bindings))
	if s.last == nil {
		return out
	}

	for i, b := range s.bindings {
		out[b.Field()] = s.outputs[i]
	}

	return out
}

// Run executes every block once at the context's time and writes the outputs
// into rec. The timestep is the time since the previous Run of this state, or
// zero if the state has not run since it was created or entered.
func (s *State) Run(rc sim.RuntimeContext, rec *datarecording.Record) error {
	now := rc.AppTimeUs()

	in := sim.Snapshot{AppTimeUs: now}
	if s.last != nil && now > s.last.appTimeUs {
		in.TimestepUs = now - s.last.appTimeUs
	}

	s.logger.Debug("state iteration",
		"state", s.id,
		"time_s", in.AppTimeS(),
		"dt_s", in.TimestepS())

	for i, b := range s.bindings {
		v, err := generate(b.Block, in)
		if err != nil {
			return fmt.Errorf("%w: state %s, block %s: %w",
				sim.ErrBlockComputation, s.id, b.Name, err)
		}

		s.outputs[i] = v

		if rec == nil {
			continue
		}

		if err := rec.Set(b.Field(), v); err != nil {
			return err
		}
	}

	s.last = &observation{appTimeUs: now}

	return nil
}

func generate(b block.Block, in sim.Snapshot) (float64, error) {
	if f, ok := b.(block.Fallible); ok {
		return f.GenerateE(in)
	}

	return b.Generate(in), nil
}

// PostRun is called by the manager after each Run.
func (s *State) PostRun(rc sim.RuntimeContext) {
	if s.OnPostRun != nil {
		s.OnPostRun(s, rc)
	}
}

// Enter forgets the last observation so that the next Run sees a zero
// timestep.
func (s *State) Enter() {
	s.last = nil
}
