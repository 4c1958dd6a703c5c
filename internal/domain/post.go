package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post is the voting-relevant projection of a forum post or a startup launch.
// The gateway owns it; sessions hold a possibly stale copy.
type Post struct {
	ID           uuid.UUID   `json:"id"`
	Kind         SubjectKind `json:"kind"`
	Title        string      `json:"title"`
	Category     string      `json:"category,omitempty"`
	AuthorID     uuid.UUID   `json:"author_id"`
	UpvotesCount int         `json:"upvotes_count"`
	IsUpvoted    bool        `json:"is_upvoted"`
	IsDownvoted  bool        `json:"is_downvoted"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Ref returns the subject reference of the post.
func (p Post) Ref() SubjectRef {
	return SubjectRef{Kind: p.Kind, ID: p.ID}
}

// VoteState projects the post onto the current user's vote state.
func (p Post) VoteState() VoteState {
	return VoteState{Upvoted: p.IsUpvoted, Downvoted: p.IsDownvoted, Count: p.UpvotesCount}
}
