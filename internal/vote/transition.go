package vote

import (
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
)

// Transition describes how a toggle moves a vote state.
type Transition struct {
	Before    domain.VoteState
	After     domain.VoteState
	Mutation  domain.VoteMutation
	Direction domain.Direction
	Delta     int
}

// Next computes the state that results from toggling dir on current.
// Voting again in the held direction retracts the vote, voting in the other
// direction flips it, otherwise the vote is applied.
func Next(current domain.VoteState, dir domain.Direction) Transition {
	t := Transition{Before: current, Direction: dir}

	held, voted := current.Voted()
	switch {
	case voted && held == dir:
		t.Mutation = domain.MutationDelete
		t.Delta = -dir.Delta()
	case voted:
		t.Mutation = domain.MutationUpdate
		t.Delta = 2 * dir.Delta()
	default:
		t.Mutation = domain.MutationInsert
		t.Delta = dir.Delta()
	}

	t.After = domain.VoteState{Count: current.Count + t.Delta}
	if t.Mutation != domain.MutationDelete {
		t.After.Upvoted = dir == domain.DirectionUp
		t.After.Downvoted = dir == domain.DirectionDown
	}
	return t
}

// Write is the gateway request that persists the transition for userID.
func (t Transition) Write(subject domain.SubjectRef, userID uuid.UUID) domain.VoteWrite {
	return domain.VoteWrite{
		Mutation: t.Mutation,
		Row:      domain.VoteRow{Subject: subject, UserID: userID, Direction: t.Direction},
	}
}
