// Package vote implements optimistic vote reconciliation.
//
// A Reconciler predicts the outcome of a vote toggle, stores the prediction in a
// StateStore before the gateway answers, and then either confirms it with the
// authoritative count or compensates by restoring the pre-mutation snapshot.
// Toggles on the same subject are serialised by SubjectLocks so each delta is
// computed against a confirmed (or rolled back) predecessor.
package vote
