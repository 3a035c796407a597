package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tickrun/block"
	"github.com/sarchlab/tickrun/sim"
	"github.com/sarchlab/tickrun/timing"
)

// AppComponent is the parameter component holding the run settings.
const AppComponent = "app"

// Defaults of the run settings.
const (
	DefaultRunTimeS = 10.0
	DefaultHertz    = 10.0
	DefaultRealtime = true
)

// BlockConfig declares one block of a state.
type BlockConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// StateConfig declares a state and its blocks in execution order.
type StateConfig struct {
	ID     string        `yaml:"id"`
	Blocks []BlockConfig `yaml:"blocks"`
}

// TransitionConfig declares an edge between two states.
type TransitionConfig struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Guard string `yaml:"guard,omitempty"`
}

// Diagram is the static description of what a run executes.
type Diagram struct {
	Name         string             `yaml:"name"`
	App          map[string]any     `yaml:"app,omitempty"`
	States       []StateConfig      `yaml:"states"`
	InitialState string             `yaml:"initial_state,omitempty"`
	Transitions  []TransitionConfig `yaml:"transitions,omitempty"`
	Params       Params             `yaml:"params,omitempty"`
}

// AppSettings are the run settings derived from the app parameters.
type AppSettings struct {
	RunTime  timing.RunTime
	Hertz    timing.Freq
	Realtime bool
}

// DefaultDiagram is a single state running a sine and a triangle wave.
func DefaultDiagram() *Diagram {
	return &Diagram{
		Name: "default",
		States: []StateConfig{
			{
				ID: "main",
				Blocks: []BlockConfig{
					{Name: "sinewave1", Kind: "sine"},
					{Name: "trianglewave1", Kind: "triangle"},
				},
			},
		},
		InitialState: "main",
	}
}

// LoadDiagram reads and validates a diagram file.
func LoadDiagram(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diagram file: %w", err)
	}

	d, err := ParseDiagram(data)
	if err != nil {
		return nil, fmt.Errorf("diagram %s: %w", path, err)
	}

	return d, nil
}

// ParseDiagram decodes and validates a diagram.
func ParseDiagram(data []byte) (*Diagram, error) {
	d := &Diagram{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate checks the structure of the diagram. An empty initial state
// defaults to the first state.
func (d *Diagram) Validate() error {
	if len(d.States) == 0 {
		return fmt.Errorf("%w: diagram has no states", sim.ErrConfiguration)
	}

	kinds := block.Kinds()
	states := make(map[string]bool)
	blocks := make(map[string]bool)

	for _, s := range d.States {
		if s.ID == "" {
			return fmt.Errorf("%w: state without id", sim.ErrConfiguration)
		}

		if states[s.ID] {
			return fmt.Errorf("%w: duplicated state %q", sim.ErrConfiguration, s.ID)
		}

		states[s.ID] = true

		for _, b := range s.Blocks {
			if err := validateBlock(b, blocks, kinds); err != nil {
				return fmt.Errorf("state %s: %w", s.ID, err)
			}
		}
	}

	if d.InitialState == "" {
		d.InitialState = d.States[0].ID
	}

	if !states[d.InitialState] {
		return fmt.Errorf("%w: unknown initial state %q",
			sim.ErrConfiguration, d.InitialState)
	}

	for _, t := range d.Transitions {
		if !states[t.From] || !states[t.To] {
			return fmt.Errorf("%w: transition %s -> %s refers to an unknown state",
				sim.ErrConfiguration, t.From, t.To)
		}
	}

	return nil
}

func validateBlock(b BlockConfig, seen map[string]bool, kinds []string) error {
	if b.Name == "" {
		return fmt.Errorf("%w: block without name", sim.ErrConfiguration)
	}

	if seen[b.Name] {
		return fmt.Errorf("%w: duplicated block %q", sim.ErrConfiguration, b.Name)
	}

	seen[b.Name] = true

	if !slices.Contains(kinds, b.Kind) {
		return fmt.Errorf("%w: block %q has unknown kind %q",
			sim.ErrConfiguration, b.Name, b.Kind)
	}

	return nil
}

// ParamSource returns the diagram parameters with the app section merged
// under AppComponent.
func (d *Diagram) ParamSource() Params {
	p := Params{}
	p.Merge(d.Params)

	for name, v := range d.App {
		p.Set(AppComponent, name, v)
	}

	return p
}

// LoadAppSettings reads run_time_s, hertz and realtime from the app
// component.
func LoadAppSettings(p Params) (AppSettings, error) {
	runTime, err := timing.RunTimeFromSeconds(
		p.Float(AppComponent, "run_time_s", DefaultRunTimeS))
	if err != nil {
		return AppSettings{}, err
	}

	hertz := timing.Freq(p.Float(AppComponent, "hertz", DefaultHertz))
	if err := hertz.Validate(); err != nil {
		return AppSettings{}, err
	}

	return AppSettings{
		RunTime:  runTime,
		Hertz:    hertz,
		Realtime: p.Bool(AppComponent, "realtime", DefaultRealtime),
	}, nil
}
