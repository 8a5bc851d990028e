// Package store persists users and candidates in PostgreSQL.
//
// The user collection is authoritative for vote attribution: displayed
// tallies are always recomputed by counting users whose voted_for matches a
// candidate. The candidates.vote_count column is a denormalized hint only.
package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a create would violate email uniqueness
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrAlreadyVoted is returned when the conditional vote update matched no
	// row, meaning the caller's ballot was already cast
	ErrAlreadyVoted = errors.New("already voted")
)
