// Package feed keeps a session's cached post collections in deterministic
// order. Every vote event re-sorts both the full collection and the filtered
// view so the list never shows stale ordering.
package feed
