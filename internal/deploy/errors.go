package deploy

import "errors"

// Validation errors are returned synchronously from Invoke, before any
// stream is opened or process started.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingScope  = errors.New("action requires a service scope")
	ErrMissingTarget = errors.New("action requires a selected repository")
)

// Resolution errors are reported as a single error event on the stream,
// before any step runs.
var (
	// ErrMissingCredentialContext indicates the repository's full remote
	// name is unknown, so no authenticated clone URL can be built.
	ErrMissingCredentialContext = errors.New("repository full name not resolved")

	// ErrNotCloned indicates an action that requires an existing working
	// copy was invoked against a directory with no version-control metadata.
	ErrNotCloned = errors.New("no local repository found")
)
