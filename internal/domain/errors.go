package domain

import "errors"

// Error taxonomy shared by the embedded store, the remote mirror and the
// session manager. Callers match with errors.Is; every producer wraps.
var (
	// ErrStoreUnavailable means the embedded store engine could not be opened.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransactionFailed wraps an engine-level read or write error.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrRemoteUnreachable covers every network or API failure of the remote mirror.
	ErrRemoteUnreachable = errors.New("remote unreachable")
)
