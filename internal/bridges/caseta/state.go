package caseta

// State is the lifecycle state of the bridge session.
type State int32

// Session states.
const (
	StateUnpaired State = iota
	StatePaired
	StateConnecting
	StateConnected
	StateDisconnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StatePaired:
		return "paired"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
