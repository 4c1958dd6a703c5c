package vote

import (
	"testing"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  domain.VoteState
		dir      domain.Direction
		want     domain.VoteState
		mutation domain.VoteMutation
		delta    int
	}{
		{
			name:     "apply up",
			current:  domain.VoteState{Count: 4},
			dir:      domain.DirectionUp,
			want:     domain.VoteState{Upvoted: true, Count: 5},
			mutation: domain.MutationInsert,
			delta:    1,
		},
		{
			name:     "apply down",
			current:  domain.VoteState{Count: 4},
			dir:      domain.DirectionDown,
			want:     domain.VoteState{Downvoted: true, Count: 3},
			mutation: domain.MutationInsert,
			delta:    -1,
		},
		{
			name:     "retract up",
			current:  domain.VoteState{Upvoted: true, Count: 5},
			dir:      domain.DirectionUp,
			want:     domain.VoteState{Count: 4},
			mutation: domain.MutationDelete,
			delta:    -1,
		},
		{
			name:     "retract down",
			current:  domain.VoteState{Downvoted: true, Count: 3},
			dir:      domain.DirectionDown,
			want:     domain.VoteState{Count: 4},
			mutation: domain.MutationDelete,
			delta:    1,
		},
		{
			name:     "flip down to up",
			current:  domain.VoteState{Downvoted: true, Count: 3},
			dir:      domain.DirectionUp,
			want:     domain.VoteState{Upvoted: true, Count: 5},
			mutation: domain.MutationUpdate,
			delta:    2,
		},
		{
			name:     "flip up to down",
			current:  domain.VoteState{Upvoted: true, Count: 5},
			dir:      domain.DirectionDown,
			want:     domain.VoteState{Downvoted: true, Count: 3},
			mutation: domain.MutationUpdate,
			delta:    -2,
		},
		{
			name:     "count may go negative",
			current:  domain.VoteState{},
			dir:      domain.DirectionDown,
			want:     domain.VoteState{Downvoted: true, Count: -1},
			mutation: domain.MutationInsert,
			delta:    -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Next(tt.current, tt.dir)
			assert.Equal(t, tt.current, tr.Before)
			assert.Equal(t, tt.want, tr.After)
			assert.Equal(t, tt.mutation, tr.Mutation)
			assert.Equal(t, tt.delta, tr.Delta)
			assert.Equal(t, tt.dir, tr.Direction)
		})
	}
}

func TestNext_DoubleToggleIsIdentity(t *testing.T) {
	starts := []domain.VoteState{
		{Count: 0},
		{Count: 7},
		{Upvoted: true, Count: 7},
		{Downvoted: true, Count: -2},
	}
	for _, start := range starts {
		for _, dir := range []domain.Direction{domain.DirectionUp, domain.DirectionDown} {
			once := Next(start, dir).After
			twice := Next(once, dir).After

			// a flip followed by the same direction lands on "no vote",
			// so identity only holds from a state without a vote in dir.
			if held, ok := start.Voted(); ok && held != dir {
				continue
			}
			assert.Equal(t, start, twice, "start=%+v dir=%s", start, dir)
		}
	}
}

func TestNext_FlagsMatchLastEffectiveDirection(t *testing.T) {
	sequence := []domain.Direction{
		domain.DirectionUp, domain.DirectionDown, domain.DirectionDown, domain.DirectionUp,
		domain.DirectionUp, domain.DirectionUp, domain.DirectionDown, domain.DirectionUp,
	}

	state := domain.VoteState{Count: 10}
	var held domain.Direction
	for i, dir := range sequence {
		state = Next(state, dir).After

		if held == dir {
			held = ""
		} else {
			held = dir
		}

		assert.False(t, state.Upvoted && state.Downvoted, "step %d: both flags set", i)
		assert.Equal(t, held == domain.DirectionUp, state.Upvoted, "step %d", i)
		assert.Equal(t, held == domain.DirectionDown, state.Downvoted, "step %d", i)

		want := 10
		if held != "" {
			want += held.Delta()
		}
		assert.Equal(t, want, state.Count, "step %d", i)
	}
}

func TestNext_UpThenUpRestoresOriginal(t *testing.T) {
	start := domain.VoteState{Count: 12}

	state := Next(start, domain.DirectionUp).After
	state = Next(state, domain.DirectionUp).After

	assert.Equal(t, domain.VoteState{Upvoted: false, Downvoted: false, Count: 12}, state)
}

func TestNext_UpWhileDownvoted(t *testing.T) {
	tr := Next(domain.VoteState{Downvoted: true, Count: 8}, domain.DirectionUp)

	assert.Equal(t, domain.VoteState{Upvoted: true, Downvoted: false, Count: 10}, tr.After)
}

func TestMutation_String(t *testing.T) {
	assert.Equal(t, "insert", domain.MutationInsert.String())
	assert.Equal(t, "delete", domain.MutationDelete.String())
	assert.Equal(t, "update", domain.MutationUpdate.String())
	assert.Equal(t, "unknown", domain.VoteMutation(42).String())
	assert.Equal(t, "flipped", domain.MutationUpdate.Outcome())
}

func TestTransition_Write(t *testing.T) {
	ref := postRef()
	user := uuid.New()

	w := Next(domain.VoteState{Upvoted: true, Count: 3}, domain.DirectionDown).Write(ref, user)

	assert.Equal(t, domain.VoteWrite{
		Mutation: domain.MutationUpdate,
		Row:      domain.VoteRow{Subject: ref, UserID: user, Direction: domain.DirectionDown},
	}, w)
}
