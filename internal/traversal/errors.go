package traversal

import "errors"

var (
	// ErrInvalidPattern reports a glob pattern that failed to compile.
	ErrInvalidPattern = errors.New("invalid glob pattern")
	// ErrRootUnavailable reports a traversal root that is missing, unreadable or not a directory.
	ErrRootUnavailable = errors.New("traversal root unavailable")
	// ErrUserCancelled reports that the user declined to continue after the sensitive file warning.
	ErrUserCancelled = errors.New("operation cancelled by user")
)
