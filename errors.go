package asyncly

import (
	"errors"
	"fmt"
)

// namespace prefixes every sentinel error so a wrapped message always
// identifies which library it came from.
const namespace = "asyncly"

var (
	// ErrUsage reports a programming error in how the runtime was used:
	// attaching a second continuation or error handler to a future,
	// invoking an empty task, resolving a promise twice, or calling
	// GetCurrentExecutor outside a task with no external override.
	ErrUsage = errors.New(namespace + ": usage error")

	// ErrExecutorStopped is returned by Post once an executor has finished
	// shutting down. Timed posts are not rejected up front; the scheduler
	// drops them when their target's Post fails at the deadline.
	ErrExecutorStopped = errors.New(namespace + ": executor stopped")

	// ErrTimeout is the error AddTimeout rejects with when its deadline
	// elapses before the raced future settles.
	ErrTimeout = errors.New(namespace + ": timeout")

	// ErrWeakExpired is returned by the WrapWeak helpers when the weak
	// reference to their object no longer resolves. (An expired executor
	// override in GetCurrentExecutor reports ErrUsage instead.)
	ErrWeakExpired = errors.New(namespace + ": weak reference expired")
)

// taggedError carries a caller-supplied tag alongside a wrapped error,
// mirroring the namespaced-sentinel-plus-wrapper shape used elsewhere in the
// pack for correlating an error back to the operation that produced it.
type taggedError struct {
	err error
	tag string
}

// Tag wraps err so that its error message is prefixed with tag while
// remaining matchable via errors.Is/errors.As against the original error.
// Tag returns nil if err is nil.
func Tag(err error, tag string) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, tag: tag}
}

func (e *taggedError) Error() string { return e.tag + ": " + e.err.Error() }
func (e *taggedError) Unwrap() error { return e.err }

// ErrorTag returns the tag associated with err, if err (or something it
// wraps) was produced by Tag.
func ErrorTag(err error) (string, bool) {
	var te *taggedError
	if errors.As(err, &te) {
		return te.tag, true
	}
	return "", false
}

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}
