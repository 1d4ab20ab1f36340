package pipeline

import (
	"encoding/json"
	"fmt"
)

type State uint32

const (
	StateMissing State = iota
	StatePending
	StateRunning
	StateSucceeded
	StateFailed
	StateSkipped
)

var stateNames = map[State]string{
	StateMissing:   "",
	StatePending:   "PENDING",
	StateRunning:   "RUNNING",
	StateSucceeded: "SUCCEEDED",
	StateFailed:    "FAILED",
	StateSkipped:   "SKIPPED",
}

var statesByName = func() map[string]State {
	m := make(map[string]State, len(stateNames))
	for k, v := range stateNames {
		m[v] = k
	}
	return m
}()

func (s State) String() string {
	if v, ok := stateNames[s]; ok {
		return v
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// ParseState returns the State for name, e.g. "RUNNING".
func ParseState(name string) (State, error) {
	if s, ok := statesByName[name]; ok && name != "" {
		return s, nil
	}
	return StateMissing, fmt.Errorf("unknown state %q", name)
}

// IsFinished returns true if no further transitions are possible.
func (s State) IsFinished() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

func (s State) MarshalJSON() ([]byte, error) {
	v, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unhandled State value %v in custom MarshalJSON() conversion", uint32(s))
	}
	return json.Marshal(v)
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	if name == "" {
		*s = StateMissing
		return nil
	}
	v, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s State) MarshalYAML() (interface{}, error) {
	v, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unhandled State value %v in custom MarshalYAML() conversion", uint32(s))
	}
	return v, nil
}
