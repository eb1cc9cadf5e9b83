// Package metrics provides an [asyncly.Executor] decorator that
// instruments any inner executor with four Prometheus metric families —
// processed_tasks_total, currently_enqueued_tasks_total,
// task_execution_duration_ns (histogram), task_queueing_delay_ns
// (histogram) — labelled {executor, type=immediate|timed}.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goto-opensource/asyncly-sub000"
)

const (
	typeImmediate = "immediate"
	typeTimed     = "timed"
)

// registry holds the four metric families for one Registerer, shared by
// every Wrap call against that Registerer so that wrapping several
// executors against the same Registerer does not attempt to register the
// same collector name twice.
type registry struct {
	processed    *prometheus.CounterVec
	enqueued     *prometheus.GaugeVec
	execDuration *prometheus.HistogramVec
	queueDelay   *prometheus.HistogramVec
}

func newRegistry(reg prometheus.Registerer) *registry {
	r := &registry{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "processed_tasks_total",
			Help: "Total number of tasks an instrumented executor has finished running.",
		}, []string{"executor", "type"}),
		enqueued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "currently_enqueued_tasks_total",
			Help: "Number of tasks currently posted to an instrumented executor but not yet started.",
		}, []string{"executor", "type"}),
		execDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "task_execution_duration_ns",
			Help:    "Wall-clock duration of a task's own invocation, in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 14), // ~1us .. ~7s
		}, []string{"executor", "type"}),
		queueDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "task_queueing_delay_ns",
			Help:    "Time between a task being posted and its invocation starting, in nanoseconds.",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 14),
		}, []string{"executor", "type"}),
	}
	r.processed = registerOrGet(reg, r.processed)
	r.enqueued = registerOrGet(reg, r.enqueued)
	r.execDuration = registerOrGet(reg, r.execDuration)
	r.queueDelay = registerOrGet(reg, r.queueDelay)
	return r
}

// registerOrGet registers c against reg, or — if a collector with the same
// fully-qualified name was already registered (e.g. by an earlier Wrap call
// against the same Registerer) — returns that existing collector instead,
// so every Wrap call observing the same Registerer shares one set of
// vectors rather than panicking on duplicate registration.
func registerOrGet[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Executor decorates an inner [asyncly.Executor], recording the four
// metric families above around every Post/PostAt/PostAfter/PostPeriodically
// call. It implements [asyncly.Executor] itself, so it can be layered
// anywhere an Executor is expected (including under a Strand, or wrapping
// one).
type Executor struct {
	inner asyncly.Executor
	name  string
	reg   *registry
}

var _ asyncly.Executor = (*Executor)(nil)

// Wrap instruments inner with Prometheus metrics registered against reg
// (prometheus.DefaultRegisterer if reg is nil), labelled with name as the
// "executor" label value.
func Wrap(inner asyncly.Executor, reg prometheus.Registerer, name string) asyncly.Executor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Executor{inner: inner, name: name, reg: newRegistry(reg)}
}

func (e *Executor) Now() time.Time { return e.inner.Now() }

// instrument wraps t so that, when it is eventually invoked, the decorator
// records queueing delay and execution duration and increments the
// processed counter, then runs t itself with e installed as the current
// executor (MaybeSetExecutor already made e the outermost wrapper, so the
// decorator is transparent to the user's own continuations).
func (e *Executor) instrument(kind string, t *asyncly.Task) *asyncly.Task {
	t.MaybeSetExecutor(e.Weak())
	postedAt := time.Now()
	e.reg.enqueued.WithLabelValues(e.name, kind).Inc()
	return asyncly.NewTask(func() {
		e.reg.enqueued.WithLabelValues(e.name, kind).Dec()
		e.reg.queueDelay.WithLabelValues(e.name, kind).Observe(float64(time.Since(postedAt).Nanoseconds()))

		start := time.Now()
		_ = t.Invoke(e)
		e.reg.execDuration.WithLabelValues(e.name, kind).Observe(float64(time.Since(start).Nanoseconds()))
		e.reg.processed.WithLabelValues(e.name, kind).Inc()
	})
}

// Post forwards an instrumented wrapper of t to the inner executor, typed
// "immediate".
func (e *Executor) Post(t *asyncly.Task) error {
	return e.inner.Post(e.instrument(typeImmediate, t))
}

// PostAt forwards an instrumented wrapper of t to the inner executor's
// scheduler, typed "timed".
func (e *Executor) PostAt(deadline time.Time, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return e.inner.PostAt(deadline, e.instrument(typeTimed, t))
}

// PostAfter forwards an instrumented wrapper of t to the inner executor's
// scheduler, typed "timed".
func (e *Executor) PostAfter(d time.Duration, t *asyncly.Task) (*asyncly.Cancelable, error) {
	return e.inner.PostAfter(d, e.instrument(typeTimed, t))
}

// PostPeriodically instruments each tick of fn individually, typed "timed"
// (the periodic driver reschedules through the same timed path every
// tick).
func (e *Executor) PostPeriodically(period time.Duration, fn func()) (*asyncly.AutoCancelable, error) {
	return e.inner.PostPeriodically(period, func() {
		start := time.Now()

		fn()

		e.reg.execDuration.WithLabelValues(e.name, typeTimed).Observe(float64(time.Since(start).Nanoseconds()))
		e.reg.processed.WithLabelValues(e.name, typeTimed).Inc()
	})
}

func (e *Executor) Scheduler() asyncly.Scheduler { return e.inner.Scheduler() }

func (e *Executor) IsSerializing() bool { return e.inner.IsSerializing() }

func (e *Executor) Weak() asyncly.WeakExecutor { return asyncly.NewWeak(e) }
