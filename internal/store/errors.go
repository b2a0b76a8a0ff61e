package store

import "errors"

var (
	// ErrNotFound reports a patient, doctor, or appointment lookup miss.
	ErrNotFound = errors.New("store: not found")

	// ErrSlotUnavailable reports a booking attempt against an already
	// scheduled (doctor, date, time) slot.
	ErrSlotUnavailable = errors.New("store: slot unavailable")

	// ErrPersistence reports a failed write or backup of the data file.
	ErrPersistence = errors.New("store: persistence failure")
)
