package xclient

import "errors"

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrRateLimited means the platform refused the call for rate reasons
	// even after retries. Fatal for the remaining searches of a run.
	ErrRateLimited = errors.New("platform rate limited")
	// ErrUnauthorized means the credential was rejected. Fatal for the
	// remaining searches of a run.
	ErrUnauthorized = errors.New("platform credential rejected")
	// ErrPostEdited means the target tweet was edited between discovery and
	// reply. Treated as a soft skip, not surfaced as a failure.
	ErrPostEdited = errors.New("target post was edited")
)
