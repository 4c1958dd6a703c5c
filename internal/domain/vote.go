package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Direction is the direction of a single vote.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts user input into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Delta is the count change of a freshly applied vote in this direction.
func (d Direction) Delta() int {
	if d == DirectionDown {
		return -1
	}
	return 1
}

// SubjectKind identifies what is being voted on.
type SubjectKind string

const (
	// SubjectPost is a forum post; it accepts up and down votes.
	SubjectPost SubjectKind = "post"
	// SubjectStartup is a product launch; it only accepts upvotes.
	SubjectStartup SubjectKind = "startup"
)

// ParseSubjectKind converts user input into a SubjectKind, defaulting to posts.
func ParseSubjectKind(s string) SubjectKind {
	switch s {
	case string(SubjectStartup):
		return SubjectStartup
	default:
		return SubjectPost
	}
}

// Allows reports whether the kind accepts votes in the given direction.
func (k SubjectKind) Allows(d Direction) bool {
	switch k {
	case SubjectPost:
		return d == DirectionUp || d == DirectionDown
	case SubjectStartup:
		return d == DirectionUp
	default:
		return false
	}
}

// SubjectRef addresses a votable entity.
type SubjectRef struct {
	Kind SubjectKind
	ID   uuid.UUID
}

func (s SubjectRef) String() string {
	return string(s.Kind) + ":" + s.ID.String()
}

// VoteState is the session-local view of the current user's vote on a subject.
// Upvoted and Downvoted are never both true. Count is a prediction until the
// gateway confirms it. Post counts are net scores and may be negative.
type VoteState struct {
	Upvoted   bool `json:"upvoted"`
	Downvoted bool `json:"downvoted"`
	Count     int  `json:"count"`
}

// Voted returns the direction currently held, if any.
func (s VoteState) Voted() (Direction, bool) {
	switch {
	case s.Upvoted:
		return DirectionUp, true
	case s.Downvoted:
		return DirectionDown, true
	default:
		return "", false
	}
}

// VoteRow is a persisted vote, scoped by (subject, user).
type VoteRow struct {
	Subject   SubjectRef
	UserID    uuid.UUID
	Direction Direction
}

// VoteMutation is the row operation that persists a toggle.
type VoteMutation int

const (
	MutationInsert VoteMutation = iota // no previous vote row
	MutationDelete                     // vote retracted
	MutationUpdate                     // vote flipped to the other direction
)

func (m VoteMutation) String() string {
	switch m {
	case MutationInsert:
		return "insert"
	case MutationDelete:
		return "delete"
	case MutationUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Outcome names the user-visible effect of a mutation, used for metrics and logs.
func (m VoteMutation) Outcome() string {
	switch m {
	case MutationInsert:
		return "applied"
	case MutationDelete:
		return "retracted"
	case MutationUpdate:
		return "flipped"
	default:
		return "unknown"
	}
}

// VoteWrite is one toggle as the gateway persists it. Row.Direction is the
// direction held afterwards and is ignored for deletes.
type VoteWrite struct {
	Mutation VoteMutation
	Row      VoteRow
}
