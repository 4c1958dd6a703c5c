package feed

import (
	"cmp"
	"slices"

	"github.com/freestartupia/startupia/internal/domain"
)

// Resort returns a new slice ordered by vote count descending, then by
// creation time ascending, then by id. The input is left untouched.
func Resort(posts []domain.Post) []domain.Post {
	sorted := slices.Clone(posts)
	slices.SortFunc(sorted, compare)
	return sorted
}

func compare(a, b domain.Post) int {
	if c := cmp.Compare(b.UpvotesCount, a.UpvotesCount); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}
