package state

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/sim"
)

// ErrNoTransition is returned when asked to move along an edge the transition
// table does not have.
var ErrNoTransition = errors.New("state: no such transition")

// A Transition is an edge of the state diagram. The guard is a CEL
// expression; an empty guard always holds.
type Transition struct {
	From  string
	To    string
	Guard string
}

type edge struct {
	from  string
	to    string
	guard *Guard
}

// Manager owns the states of a diagram and tracks the active one.
type Manager struct {
	current   string
	order     []string
	states    map[string]*State
	edges     []edge
	fields    []string
	entered   bool
	enteredUs uint64
	logger    *slog.Logger
}

// NewManager validates the diagram and returns a manager positioned at the
// initial state. Unknown states, duplicated ids or output fields and bad
// guards are configuration errors.
func NewManager(
	initial string,
	states []*State,
	transitions []Transition,
) (*Manager, error) {
	m := &Manager{
		current: initial,
		states:  make(map[string]*State, len(states)),
		logger:  slog.Default(),
	}

	if len(states) == 0 {
		return nil, fmt.Errorf("%w: no states", sim.ErrConfiguration)
	}

	seenFields := make(map[string]string)
	for _, s := range states {
		if _, dup := m.states[s.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicated state %q",
				sim.ErrConfiguration, s.ID())
		}

		for _, f := range s.OutputFields() {
			if owner, dup := seenFields[f]; dup {
				return nil, fmt.Errorf(
					"%w: output field %q of state %q already written by state %q",
					sim.ErrConfiguration, f, s.ID(), owner)
			}

			seenFields[f] = s.ID()
			m.fields = append(m.fields, f)
		}

		m.states[s.ID()] = s
		m.order = append(m.order, s.ID())
	}

	if _, ok := m.states[initial]; !ok {
		return nil, fmt.Errorf("%w: unknown initial state %q",
			sim.ErrConfiguration, initial)
	}

	for _, t := range transitions {
		if err := m.addTransition(t); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Manager) addTransition(t Transition) error {
	for _, id := range []string{t.From, t.To} {
		if _, ok := m.states[id]; !ok {
			return fmt.Errorf("%w: transition %s -> %s refers to unknown state %q",
				sim.ErrConfiguration, t.From, t.To, id)
		}
	}

	guard, err := CompileGuard(t.Guard)
	if err != nil {
		return err
	}

	m.edges = append(m.edges, edge{from: t.From, to: t.To, guard: guard})

	return nil
}

// WithLogger sets the logger used to report transitions.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// CurrentID returns the id of the active state.
func (m *Manager) CurrentID() string {
	return m.current
}

// Current returns the active state.
func (m *Manager) Current() *State {
	return m.states[m.current]
}

// State returns the state with the given id.
func (m *Manager) State(id string) (*State, bool) {
	s, ok := m.states[id]
	return s, ok
}

// StateIDs returns the ids of all states in configuration order.
func (m *Manager) StateIDs() []string {
	ids := make([]string, len(m.order))
	copy(ids, m.order)

	return ids
}

// Transitions returns the transition table.
func (m *Manager) Transitions() []Transition {
	ts := make([]Transition, 0, len(m.edges))
	for _, e := range m.edges {
		ts = append(ts, Transition{From: e.from, To: e.to, Guard: e.guard.String()})
	}

	return ts
}

// OutputFields returns the output fields of every state, in configuration
// order.
func (m *Manager) OutputFields() []string {
	fields := make([]string, len(m.fields))
	copy(fields, m.fields)

	return fields
}

// Run executes the active state, then its PostRun hook, then follows the
// first transition out of it whose guard holds. The target state is entered
// and runs from the next tick on.
func (m *Manager) Run(rc sim.RuntimeContext, rec *datarecording.Record) error {
	if !m.entered {
		m.entered = true
		m.enteredUs = rc.AppTimeUs()
	}

	s := m.states[m.current]
	if err := s.Run(rc, rec); err != nil {
		return err
	}

	s.PostRun(rc)

	return m.followTransitions(rc, s)
}

func (m *Manager) followTransitions(rc sim.RuntimeContext, s *State) error {
	var vars *GuardVars

	for _, e := range m.edges {
		if e.from != m.current {
			continue
		}

		if vars == nil {
			vars = &GuardVars{
				TimeS:      rc.AppTimeS(),
				StateTimeS: float64(rc.AppTimeUs()-m.enteredUs) / 1e6,
				Outputs:    s.Outputs(),
			}
		}

		ok, err := e.guard.Eval(*vars)
		if err != nil {
			return fmt.Errorf("%w: state %s: %w",
				sim.ErrBlockComputation, m.current, err)
		}

		if ok {
			m.switchTo(e.to)
			return nil
		}
	}

	return nil
}

// Transition moves to state to, which must be the target of a transition
// out of the current state. Guards are not evaluated.
func (m *Manager) Transition(to string) error {
	for _, e := range m.edges {
		if e.from == m.current && e.to == to {
			m.switchTo(to)
			return nil
		}
	}

	return fmt.Errorf("%w from %q to %q", ErrNoTransition, m.current, to)
}

func (m *Manager) switchTo(to string) {
	m.logger.Info("state transition", "from", m.current, "to", to)

	m.current = to
	m.states[to].Enter()
	m.entered = false
}
