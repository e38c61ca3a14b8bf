package store

import "errors"

var (
	// ErrConflict signals a shift definition that cannot coexist with the
	// doctor's current schedule (interval overlap).
	ErrConflict = errors.New("conflict")

	// ErrSlotConflict signals a booking race lost: another active
	// appointment already occupies the slot.
	ErrSlotConflict = errors.New("slot conflict")

	ErrNotFound = errors.New("not found")
)
