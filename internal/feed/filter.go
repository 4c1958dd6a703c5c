package feed

import (
	"strings"

	"github.com/freestartupia/startupia/internal/domain"
)

// Filter narrows the collection shown to the user. Zero fields match everything.
type Filter struct {
	Kind     domain.SubjectKind `json:"kind"`
	Query    string             `json:"q,omitempty"`
	Category string             `json:"category,omitempty"`
}

func (f Filter) normalize() Filter {
	if f.Kind == "" {
		f.Kind = domain.SubjectPost
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// Match reports whether p belongs in the filtered view.
func (f Filter) Match(p domain.Post) bool {
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
