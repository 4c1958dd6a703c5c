// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (vote.go, post.go, gateway.go, errors.go, etc.)
// with shared types and cross-cutting interfaces. No implementation code beyond small value
// helpers - just contracts. Keeps vote, feed, app and the adapters free of circular imports.
package domain
