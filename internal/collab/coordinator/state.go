package coordinator

import (
	"fmt"

	"github.com/dshills/inkwell/internal/collab/transport"
)

// Phase is the coordinator's lifecycle phase.
type Phase int

const (
	// PhaseInitializing is the state before Start.
	PhaseInitializing Phase = iota
	// PhaseCreatingSession covers endpoint binding, presence
	// publication, and the gossip subscribe.
	PhaseCreatingSession
	// PhaseActive means the session is live.
	PhaseActive
	// PhaseError is terminal for this session.
	PhaseError
)

// String returns the phase's name.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseCreatingSession:
		return "creating-session"
	case PhaseActive:
		return "active"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the single authoritative session state value. Fields beyond
// Phase are set per phase: NodeID and RelayURL while creating,
// SessionURI once active, Message on error.
type State struct {
	Phase      Phase
	NodeID     transport.NodeID
	RelayURL   string
	SessionURI string
	Message    string
}
