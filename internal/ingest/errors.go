package ingest

import "errors"

var (
	// ErrAlreadyOpen is returned by ReplayOpen when a replay session is
	// already active.
	ErrAlreadyOpen = errors.New("ingest: replay session already open")
	// ErrNotOpen is returned by a replay hook called with no open session.
	ErrNotOpen = errors.New("ingest: no replay session open")
	// ErrInvalidHandle is returned by a replay hook called with a handle
	// that does not match the currently open session.
	ErrInvalidHandle = errors.New("ingest: invalid replay handle")
)
