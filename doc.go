// Package asyncly is a general-purpose asynchronous runtime: executors that
// own worker goroutines and run user-supplied tasks, a time-ordered
// scheduler that dispatches tasks at future points in time, a current-
// executor context that lets continuations rediscover their home, and the
// cancellation primitives shared by every component that can be cancelled
// before it runs.
//
// The concrete executor implementations live in [asyncly/executor], the
// scheduler implementation in [asyncly/scheduler], the future/promise
// engine and its combinators in [asyncly/future], and the push-stream layer
// in [asyncly/observable]. This package holds only the types those
// packages must agree on: [Task], [Executor], [Scheduler], [Cancelable],
// [AutoCancelable], the current-executor context, and the Wrap helpers.
//
// Thread affinity is the organizing idea throughout: a [Task] runs with the
// current-executor context pointing at the executor that is running it, so
// code inside the task can capture "here" via [GetCurrentExecutor] and post
// follow-up work back to it later, from any goroutine.
package asyncly
