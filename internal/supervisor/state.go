package supervisor

// State is the supervisor's view of the backend lifecycle.
//
// State machine:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//
// with Starting -> Failed and Running -> Failed (unsolicited exit) as
// alternate paths. Failed -> Starting is permitted on retry.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
