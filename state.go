package engine

import "sync/atomic"

// State is the coarse, externally visible projection of the Engine's
// internal state machine. Listeners observe only these values even
// though the Engine itself tracks finer-grained transitional states
// (Initializing, Starting, Pausing, Resuming, Stopping).
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StatePaused
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// internalState is the fine-grained state the machine actually
// transitions through; coarse() projects it down to State.
type internalState int32

const (
	internalCreated internalState = iota
	internalInitializing
	internalInitialized
	internalStarting
	internalRunning
	internalPausing
	internalPaused
	internalResuming
	internalStopping
	internalStopped
	internalErrorState
)

func (s internalState) coarse() State {
	switch s {
	case internalCreated:
		return StateCreated
	case internalInitializing, internalInitialized:
		return StateInitialized
	case internalStarting, internalRunning, internalResuming:
		return StateRunning
	case internalPausing, internalPaused:
		return StatePaused
	case internalStopping, internalStopped:
		return StateStopped
	case internalErrorState:
		return StateError
	default:
		return StateError
	}
}

// validTransitions encodes the reachability graph from spec.md §4.10.
// Every state except internalStopped can reach internalErrorState;
// that edge is checked separately rather than listed in every entry.
var validTransitions = map[internalState][]internalState{
	internalCreated:       {internalInitializing},
	internalInitializing:  {internalInitialized},
	internalInitialized:   {internalStarting},
	internalStarting:      {internalRunning},
	internalRunning:       {internalPausing, internalStopping},
	internalPausing:       {internalPaused},
	internalPaused:        {internalResuming, internalStopping},
	internalResuming:      {internalRunning},
	internalStopping:      {internalStopped},
	internalStopped:       {},
	internalErrorState:    {internalStopping, internalStopped},
}

// atomicInternalState wraps atomic.Int32 with internalState-typed
// accessors so the Engine never juggles raw int32 casts.
type atomicInternalState struct {
	v atomic.Int32
}

func (a *atomicInternalState) load() internalState       { return internalState(a.v.Load()) }
func (a *atomicInternalState) store(s internalState)      { a.v.Store(int32(s)) }

func canTransition(from, to internalState) bool {
	if to == internalErrorState {
		return from != internalStopped
	}
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
