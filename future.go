package asyncrt

// Future is the contract every asynchronous computation implements.
// Poll drives the future forward: it returns the output and true once
// the future has completed, or the zero value and false if it is not
// yet ready. A future that returns false MUST first arrange, via
// ctx.Waker(), for something to call Wake once progress is possible —
// the scheduler will not re-poll a pending future on its own.
//
// Implementations are expected to be cheap to poll when there is
// nothing to do, and must not block.
type Future[T any] interface {
	Poll(ctx *Context) (T, bool)
}

// FutureFunc adapts a plain poll function to the Future interface, the
// way http.HandlerFunc adapts a function to http.Handler.
type FutureFunc[T any] func(ctx *Context) (T, bool)

// Poll implements Future.
func (f FutureFunc[T]) Poll(ctx *Context) (T, bool) {
	return f(ctx)
}

// Context is the argument passed to Future.Poll. It carries the Waker
// the future must clone and stash if it needs to be woken later; it is
// only valid for the duration of the Poll call it was passed to.
type Context struct {
	waker Waker
	sched *Scheduler
}

// Waker returns the Waker associated with this poll. Clone it before
// storing it anywhere that outlives the call to Poll.
func (c *Context) Waker() Waker {
	return c.waker
}

// scheduler returns the Scheduler driving this poll, used internally by
// futures such as Sleep that need to register with the timer wheel or
// reactor rather than just stashing a Waker.
func (c *Context) scheduler() *Scheduler {
	return c.sched
}

// Ready constructs a completed Poll outcome; a convenience for futures
// written as plain functions rather than the FutureFunc wrapper.
func Ready[T any](v T) (T, bool) {
	return v, true
}

// Pending constructs a not-yet-complete Poll outcome for type T.
func Pending[T any]() (T, bool) {
	var zero T
	return zero, false
}
