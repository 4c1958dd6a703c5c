// Package app provides the application service layer.
//
// Owns one Session per signed-in user (vote store, reconciler and feed, the
// equivalent of a browser tab), a Registry that expires idle sessions, and the
// realtime fan-out of confirmed counts between sessions. HTTP handlers talk to
// Service; Service depends on domain interfaces, not concrete adapters.
package app
