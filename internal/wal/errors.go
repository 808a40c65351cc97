package wal

import "errors"

var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrCorruptRecord   = errors.New("corrupt record: invalid length or format")
	ErrCRCMismatch     = errors.New("CRC mismatch")
	ErrFileOpen        = errors.New("failed to open WAL file")
	ErrFileWrite       = errors.New("failed to write WAL file")
	ErrFileSync        = errors.New("failed to sync WAL file")
	ErrFileRead        = errors.New("failed to read WAL file")

	// Replay error taxonomy (7. Error handling design).
	ErrInvalidArgument = errors.New("replay: invalid argument")
	ErrOutOfMemory     = errors.New("replay: out of memory")
	ErrCorruption      = errors.New("replay: corruption detected")
	ErrConflict        = errors.New("replay: conflicting record or transaction")
	ErrIngestFailure   = errors.New("replay: ingest apply failed")
	ErrBugAssertion    = errors.New("replay: internal invariant violated")
)

// errIngestFailure wraps a raw ingest-layer error so callers can still
// unwrap to the original cause while categorizing it as ErrIngestFailure.
func errIngestFailure(cause error) error {
	return &wrappedError{msg: ErrIngestFailure.Error() + ": " + cause.Error(), cause: cause, sentinel: ErrIngestFailure}
}

type wrappedError struct {
	msg      string
	cause    error
	sentinel error
}

func (w *wrappedError) Error() string { return w.msg }
func (w *wrappedError) Unwrap() error { return w.cause }
func (w *wrappedError) Is(target error) bool { return target == w.sentinel }
