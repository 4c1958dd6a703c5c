package domain

// VotePhase tells observers which step of the reconciliation produced a state.
type VotePhase int

const (
	VoteOptimistic VotePhase = iota // predicted locally, remote call pending
	VoteConfirmed                   // authoritative count read back from the gateway
	VoteRolledBack                  // remote write failed, snapshot restored
	VoteRefreshed                   // count pushed by another session or a refetch
)

func (p VotePhase) String() string {
	switch p {
	case VoteOptimistic:
		return "optimistic"
	case VoteConfirmed:
		return "confirmed"
	case VoteRolledBack:
		return "rolled_back"
	case VoteRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// VoteEvent is emitted whenever a session's vote state for a subject changes.
type VoteEvent struct {
	Subject SubjectRef
	State   VoteState
	Phase   VotePhase
}

// VoteObserver receives vote events. Implementations must not block.
type VoteObserver interface {
	VoteChanged(event VoteEvent)
}
