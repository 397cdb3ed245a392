package session

// State is the client's view of its own authentication.
type State int

const (
	Unauthenticated State = iota
	Initializing
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
