package workflow

// State is a node in a state machine. The set of valid states is owned by
// the builder that declares the machine.
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
