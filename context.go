package asyncly

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// currentExecutorStack realizes the "current executor" context as an
// explicit stack keyed by goroutine id, since Go has no real thread-local
// storage. Entries are pushed when a Task begins running and popped (on
// every exit path, including panics) when it ends.
var (
	currentMu    sync.Mutex
	currentStack = map[int64][]Executor{}

	// externalOverride holds the weak executor installed by host code for
	// goroutines the runtime does not itself own, via SetCurrentExecutor.
	externalOverride sync.Map // int64 -> WeakExecutor
)

// goroutineID extracts the calling goroutine's id by parsing the header
// line of its own stack trace. There is no supported API for this in Go;
// it is used here only as a map key to emulate thread-local storage, never
// for control flow that depends on a particular numbering scheme.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	b = bytes.TrimPrefix(b, []byte(prefix))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}

func pushCurrentExecutor(e Executor) {
	id := goroutineID()
	currentMu.Lock()
	currentStack[id] = append(currentStack[id], e)
	currentMu.Unlock()
}

func popCurrentExecutor() {
	id := goroutineID()
	currentMu.Lock()
	s := currentStack[id]
	if n := len(s); n > 0 {
		s = s[:n-1]
		if len(s) == 0 {
			delete(currentStack, id)
		} else {
			currentStack[id] = s
		}
	}
	currentMu.Unlock()
}

// GetCurrentExecutor returns the executor that is currently running a task
// on this goroutine, if any; otherwise it upgrades the weak reference
// installed by [SetCurrentExecutor] for this goroutine, if any; otherwise
// it returns ErrUsage ("no current executor").
func GetCurrentExecutor() (Executor, error) {
	id := goroutineID()

	currentMu.Lock()
	s := currentStack[id]
	var top Executor
	if n := len(s); n > 0 {
		top = s[n-1]
	}
	currentMu.Unlock()

	if top != nil {
		return top, nil
	}

	if v, ok := externalOverride.Load(id); ok {
		if e, ok := v.(WeakExecutor).Resolve(); ok {
			return e, nil
		}
		return nil, usageErrorf("current executor's weak reference has expired")
	}

	return nil, usageErrorf("no current executor for this goroutine")
}

// SetCurrentExecutor installs a weak reference to exec as the current
// executor for goroutines not otherwise owned by the runtime (for example,
// the goroutine that initiates blocking_wait), so that code running there
// can still call Future.then to register continuations.
//
// It applies only to the calling goroutine.
func SetCurrentExecutor(exec WeakExecutor) {
	externalOverride.Store(goroutineID(), exec)
}

// ClearCurrentExecutor removes any override installed by
// [SetCurrentExecutor] for the calling goroutine.
func ClearCurrentExecutor() {
	externalOverride.Delete(goroutineID())
}
