package asyncrt

import "unsafe"

// wakerVTable is the type-erasure mechanism for Waker, playing the role
// a compiler-generated vtable plays in languages with first-class async
// state machines: Go has no such codegen, so the three operations a
// waker needs (clone, wake, drop) are carried as plain function
// pointers alongside an opaque data pointer, the same shape as
// `net.Conn`'s internal fd wrapper or a COM vtable.
type wakerVTable struct {
	clone func(data unsafe.Pointer) Waker
	wake  func(data unsafe.Pointer)
	drop  func(data unsafe.Pointer)
}

// Waker is a handle that, when woken, causes the scheduler to re-poll
// the future that produced it. Wakers are small (two pointers), cheap
// to copy by value, and safe to call from any goroutine, including one
// that has nothing to do with the runtime (e.g. an OS thread inside a
// cgo callback, or the reactor's own dispatch path).
//
// The zero Waker is valid and its Wake/Clone/Drop are no-ops; it is
// returned by contexts that have no backing task (e.g. synchronous
// test polls).
type Waker struct {
	data   unsafe.Pointer
	vtable *wakerVTable
}

// Wake consumes the waker, notifying the scheduler that the associated
// task should be polled again, then releases the waker's reference.
// Equivalent to WakeByRef followed by Drop, but some implementations
// can do better by skipping the Clone/Drop pair when the caller already
// owns the only remaining reference.
func (w Waker) Wake() {
	if w.vtable == nil {
		return
	}
	w.vtable.wake(w.data)
	w.vtable.drop(w.data)
}

// WakeByRef notifies the scheduler without consuming the waker, so the
// caller can call Wake/WakeByRef again later using the same value.
func (w Waker) WakeByRef() {
	if w.vtable == nil {
		return
	}
	w.vtable.wake(w.data)
}

// Clone returns an independent Waker referring to the same task. Each
// clone must eventually be consumed by exactly one Wake or Drop; the
// task's refcount tracks outstanding clones so the task is only freed
// once none remain.
func (w Waker) Clone() Waker {
	if w.vtable == nil {
		return w
	}
	return w.vtable.clone(w.data)
}

// Drop releases the waker's reference without waking anything. Futures
// that stash a Waker and later decide they no longer need it (e.g. a
// select-style future whose other branch completed first) must call
// Drop to avoid leaking the task's refcount.
func (w Waker) Drop() {
	if w.vtable == nil {
		return
	}
	w.vtable.drop(w.data)
}

// IsZero reports whether w is the zero Waker (no backing task).
func (w Waker) IsZero() bool {
	return w.vtable == nil
}

var taskWakerVTable = &wakerVTable{
	clone: func(data unsafe.Pointer) Waker {
		t := (*Task)(data)
		t.incRef()
		return Waker{data: data, vtable: taskWakerVTable}
	},
	wake: func(data unsafe.Pointer) {
		(*Task)(data).wake()
	},
	drop: func(data unsafe.Pointer) {
		(*Task)(data).decRef()
	},
}

// taskWaker returns a Waker over t, taking one refcount share which the
// caller is responsible for eventually releasing via Wake or Drop.
func taskWaker(t *Task) Waker {
	t.incRef()
	return Waker{data: unsafe.Pointer(t), vtable: taskWakerVTable}
}
