package app

// State is the coordinator's position in the capture lifecycle
type State int

const (
	// Unarmed: no capture session, start disabled
	Unarmed State = iota
	// Armed: session acquired, ready to record
	Armed
	// Recording: the recorder is running
	Recording
)

func (s State) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Armed:
		return "armed"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

type Event int

const (
	Granted Event = iota
	Denied
	Start
	Stop
	Stopped
	Unload
	// Ended: the capture session died underneath the coordinator
	Ended
)

func (e Event) String() string {
	switch e {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Stopped:
		return "stopped"
	case Unload:
		return "unload"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// transition returns the state after e and whether e applies in s at all.
// Ignored events leave the state unchanged.
func transition(s State, e Event) (State, bool) {
	switch e {
	case Unload, Ended:
		return Unarmed, true
	case Stopped:
		if s == Unarmed {
			return Unarmed, true
		}
		return Armed, true
	}

	switch s {
	case Unarmed:
		switch e {
		case Granted:
			return Armed, true
		case Denied:
			return Unarmed, true
		}
	case Armed:
		if e == Start {
			return Recording, true
		}
	case Recording:
		if e == Stop {
			// stays Recording until the recorder reports it has stopped
			return Recording, true
		}
	}
	return s, false
}

// Controls is what the UI shell shows. Exactly one of RecordVisible and
// StopVisible is set.
type Controls struct {
	StartEnabled  bool
	RecordVisible bool
	StopVisible   bool
}

func controlsFor(s State) Controls {
	switch s {
	case Armed:
		return Controls{StartEnabled: true, RecordVisible: true}
	case Recording:
		return Controls{StartEnabled: true, StopVisible: true}
	default:
		return Controls{RecordVisible: true}
	}
}
