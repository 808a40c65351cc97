package errors

import (
	"errors"
)

// File I/O errors - used by the WAL writer path.
var (
	// ErrMemoryLimit is returned when memory limit is exceeded
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrPayloadTooLarge is returned when payload exceeds maximum size
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

	// ErrCorruptRecord is returned when a WAL record has invalid framing
	ErrCorruptRecord = errors.New("corrupt record: invalid length or format")

	// ErrCRCMismatch is returned when a CRC32 checksum doesn't match
	ErrCRCMismatch = errors.New("CRC mismatch")

	// ErrFileOpen is returned when a WAL file cannot be opened
	ErrFileOpen = errors.New("failed to open file")

	// ErrFileWrite is returned when a WAL file cannot be written
	ErrFileWrite = errors.New("failed to write file")

	// ErrFileSync is returned when a WAL file cannot be synced
	ErrFileSync = errors.New("failed to sync file")

	// ErrFileRead is returned when a WAL file cannot be read
	ErrFileRead = errors.New("failed to read file")

	// ErrDBNotOpen is returned when operating on a closed database
	ErrDBNotOpen = errors.New("database not open")
)

// Replay error taxonomy (7. Error handling design). Classifier.Classify
// maps each of these, compared by identity (wrapped errors are not
// unwrapped), to a retry category. internal/wal declares its own
// sentinels with the same messages and returns those on the replay path.
var (
	// ErrInvalidArgument signals a caller contract violation (e.g. a nil
	// collaborator handle, a malformed ReplayConfig).
	ErrInvalidArgument = errors.New("replay: invalid argument")

	// ErrOutOfMemory signals a failed allocation from a record or
	// commit-descriptor pool.
	ErrOutOfMemory = errors.New("replay: out of memory")

	// ErrCorruption signals framing/CRC failure that is not a trailing
	// torn write, or any other on-disk inconsistency that cannot be
	// attributed to an in-flight crash.
	ErrCorruption = errors.New("replay: corruption detected")

	// ErrConflict signals a duplicate rid within a generation or a
	// duplicate txid across files.
	ErrConflict = errors.New("replay: conflicting record or transaction")

	// ErrIngestFailure signals the ingest layer rejected an apply call.
	ErrIngestFailure = errors.New("replay: ingest apply failed")

	// ErrBugAssertion signals an internal invariant was violated.
	ErrBugAssertion = errors.New("replay: internal invariant violated")
)
