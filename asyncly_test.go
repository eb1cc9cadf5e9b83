package asyncly_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goto-opensource/asyncly-sub000"
)

// fakeExecutor is the minimal asyncly.Executor implementation used across
// this package's tests; it runs everything inline on Post and ignores
// timed/periodic posts, since the tests here only exercise Task and the
// current-executor context, not real scheduling.
type fakeExecutor struct{}

func (fakeExecutor) Now() time.Time { return time.Now() }
func (f *fakeExecutor) Post(t *asyncly.Task) error {
	return t.Invoke(f)
}
func (f *fakeExecutor) PostAt(time.Time, *asyncly.Task) (*asyncly.Cancelable, error) {
	return asyncly.NewCancelable(), nil
}
func (f *fakeExecutor) PostAfter(time.Duration, *asyncly.Task) (*asyncly.Cancelable, error) {
	return asyncly.NewCancelable(), nil
}
func (f *fakeExecutor) PostPeriodically(time.Duration, func()) (*asyncly.AutoCancelable, error) {
	return asyncly.NewAutoCancelable(asyncly.NewCancelable()), nil
}
func (f *fakeExecutor) Scheduler() asyncly.Scheduler { return nil }
func (f *fakeExecutor) IsSerializing() bool          { return true }
func (f *fakeExecutor) Weak() asyncly.WeakExecutor   { return asyncly.NewWeak(f) }

func TestTaskInvokeRunsOnce(t *testing.T) {
	var n int
	task := asyncly.NewTask(func() { n++ })
	require.NoError(t, task.Invoke(nil))
	assert.Equal(t, 1, n)

	err := task.Invoke(nil)
	assert.ErrorIs(t, err, asyncly.ErrUsage)
	assert.Equal(t, 1, n)
}

func TestTaskInvokeRecoversPanic(t *testing.T) {
	task := asyncly.NewTask(func() { panic("boom") })
	err := task.Invoke(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTaskMaybeSetExecutorOutermostWins(t *testing.T) {
	a := &fakeExecutor{}
	b := &fakeExecutor{}

	task := asyncly.NewTask(func() {})
	task.MaybeSetExecutor(asyncly.NewWeak(a))
	task.MaybeSetExecutor(asyncly.NewWeak(b))

	exec, ok := task.Executor()
	require.True(t, ok)
	assert.Same(t, asyncly.Executor(a), exec)
}

func TestCurrentExecutorDuringInvoke(t *testing.T) {
	exec := &fakeExecutor{}
	var observed asyncly.Executor

	task := asyncly.NewTask(func() {
		var err error
		observed, err = asyncly.GetCurrentExecutor()
		require.NoError(t, err)
	})

	require.NoError(t, exec.Post(task))
	assert.Same(t, asyncly.Executor(exec), observed)

	_, err := asyncly.GetCurrentExecutor()
	assert.ErrorIs(t, err, asyncly.ErrUsage)
}

func TestSetCurrentExecutorOverride(t *testing.T) {
	exec := &fakeExecutor{}
	asyncly.SetCurrentExecutor(exec.Weak())
	defer asyncly.ClearCurrentExecutor()

	got, err := asyncly.GetCurrentExecutor()
	require.NoError(t, err)
	assert.Same(t, asyncly.Executor(exec), got)
}

func TestCancelableIdempotent(t *testing.T) {
	c := asyncly.NewCancelable()
	assert.False(t, c.Cancelled())
	c.Cancel()
	c.Cancel()
	assert.True(t, c.Cancelled())
}

func TestAutoCancelableCancelsUnderlying(t *testing.T) {
	c := asyncly.NewCancelable()
	ac := asyncly.NewAutoCancelable(c)
	require.NoError(t, ac.Close())
	assert.True(t, c.Cancelled())
}

func TestWrapWeakInvokesWhileAlive(t *testing.T) {
	type obj struct{ v int }
	o := &obj{v: 1}
	fn := asyncly.WrapWeak(o, func(o *obj) { o.v++ })
	require.NoError(t, fn())
	assert.Equal(t, 2, o.v)
}

func TestWrapWeakPostRunsOnExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	type obj struct{ v int }
	o := &obj{}

	post := asyncly.WrapWeakPost(exec, o, func(o *obj) { o.v++ })
	post()
	assert.Equal(t, 1, o.v)

	ignorePost := asyncly.WrapWeakIgnorePost(exec, o, func(o *obj) { o.v += 10 })
	ignorePost()
	assert.Equal(t, 11, o.v)
}
