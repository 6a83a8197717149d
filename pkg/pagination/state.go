package pagination

// State is the lifecycle state of a collector run.
type State string

const (
	// StateIdle is the state before Run is called.
	StateIdle State = "idle"

	// StateRunning is the state while pages are being fetched.
	StateRunning State = "running"

	// StateCompleted is the terminal state after the page bound was reached.
	StateCompleted State = "completed"

	// StateFailed is the terminal state after a fetch or sink error.
	StateFailed State = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
