package asyncrt

import (
	"errors"
	"sync"
	"time"
)

var errReactorNoSuchToken = errors.New("asyncrt: no such reactor token")

// Token is the opaque handle returned by Reactor.Register; I/O wrapper
// types (sockets, pipes — built by users of this package, out of scope
// for the runtime itself per the source/sink boundary) hold onto their
// Token to re-arm interest and to deregister on close.
type Token uint64

const maxTokens = maxFDs

// registration is the reactor's bookkeeping for one live Token: which
// fd it maps to, what it's currently interested in, the sticky
// edge-triggered readiness bits accumulated since the last TakeReady,
// and the waker to notify when those bits change.
type registration struct {
	fd       int
	interest IOEvents
	ready    IOEvents
	waker    Waker
}

// Reactor bridges the OS-native event source (epoll/kqueue/IOCP,
// wrapped as FastPoller) to the Waker/Task world: Turn blocks in the
// native syscall for up to maxWait, and any readiness it observes wakes
// the Waker stashed against that Token's registration, exactly once per
// edge, until the caller (the I/O future) calls TakeReady again and
// re-arms with SetWaker.
type Reactor = reactor

type reactor struct {
	poller FastPoller

	mu    sync.Mutex
	regs  map[Token]*registration
	free  []Token
	next  uint64

	wakeFd      int
	wakeWriteFd int
}

func newReactor() (*reactor, error) {
	r := &reactor{
		regs: make(map[Token]*registration),
	}
	if err := r.poller.Init(); err != nil {
		return nil, err
	}

	wakeFd, wakeWriteFd, err := createWakeFd(0, EFD_CLOEXEC|EFD_NONBLOCK)
	if err != nil {
		_ = r.poller.Close()
		return nil, err
	}
	r.wakeFd = wakeFd
	r.wakeWriteFd = wakeWriteFd

	if wakeFd >= 0 {
		if err := r.poller.RegisterFD(wakeFd, EventRead, func(IOEvents) {
			_ = drainWakeUpPipe(wakeFd)
		}); err != nil {
			_ = closeWakeFd(wakeFd, wakeWriteFd)
			_ = r.poller.Close()
			return nil, err
		}
	}

	return r, nil
}

// allocToken returns a fresh Token, recycling from the freelist before
// growing the counter — the same tombstone-recycling shape as the
// teacher's registry.go ring buffer, here bounding the token space
// instead of chasing weak-pointer GC.
func (r *reactor) allocToken() (Token, error) {
	if n := len(r.free); n > 0 {
		tok := r.free[n-1]
		r.free = r.free[:n-1]
		return tok, nil
	}
	if r.next >= maxTokens {
		return 0, &ReactorError{Kind: ReactorErrorTokenExhausted}
	}
	r.next++
	return Token(r.next), nil
}

// Register starts monitoring fd for interest, returning a Token to
// refer to this registration by.
func (r *reactor) Register(fd int, interest IOEvents) (Token, error) {
	r.mu.Lock()
	tok, err := r.allocToken()
	if err != nil {
		r.mu.Unlock()
		return 0, err
	}
	reg := &registration{fd: fd, interest: interest}
	r.regs[tok] = reg
	r.mu.Unlock()

	if err := r.poller.RegisterFD(fd, interest, func(events IOEvents) {
		r.dispatch(tok, events)
	}); err != nil {
		r.mu.Lock()
		delete(r.regs, tok)
		r.free = append(r.free, tok)
		r.mu.Unlock()
		return 0, &ReactorError{Kind: ReactorErrorIO, Cause: err}
	}
	if len(r.regs) >= maxTokens {
		return tok, &ReactorError{Kind: ReactorErrorRegistrationFull}
	}
	return tok, nil
}

func (r *reactor) dispatch(tok Token, events IOEvents) {
	r.mu.Lock()
	reg, ok := r.regs[tok]
	if !ok {
		r.mu.Unlock()
		return
	}
	reg.ready |= events
	w := reg.waker
	reg.waker = Waker{}
	r.mu.Unlock()

	if !w.IsZero() {
		w.WakeByRef()
		w.Drop()
	}
}

// Modify changes the interest set for tok.
func (r *reactor) Modify(tok Token, interest IOEvents) error {
	r.mu.Lock()
	reg, ok := r.regs[tok]
	if !ok {
		r.mu.Unlock()
		return &ReactorError{Kind: ReactorErrorIO, Cause: errReactorNoSuchToken}
	}
	reg.interest = interest
	fd := reg.fd
	r.mu.Unlock()
	if err := r.poller.ModifyFD(fd, interest); err != nil {
		return &ReactorError{Kind: ReactorErrorIO, Cause: err}
	}
	return nil
}

// Deregister stops monitoring tok and returns the Token to the
// freelist.
func (r *reactor) Deregister(tok Token) error {
	r.mu.Lock()
	reg, ok := r.regs[tok]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.regs, tok)
	r.free = append(r.free, tok)
	fd := reg.fd
	r.mu.Unlock()
	if err := r.poller.UnregisterFD(fd); err != nil {
		return &ReactorError{Kind: ReactorErrorIO, Cause: err}
	}
	return nil
}

// SetWaker arms tok so w is woken the next time dispatch observes
// readiness on it. Replaces any previously armed waker.
func (r *reactor) SetWaker(tok Token, w Waker) {
	r.mu.Lock()
	reg, ok := r.regs[tok]
	if !ok {
		r.mu.Unlock()
		w.Drop()
		return
	}
	old := reg.waker
	reg.waker = w
	r.mu.Unlock()
	if !old.IsZero() {
		old.Drop()
	}
}

// TakeReady atomically reads and clears the sticky readiness bits
// accumulated for tok since the last call.
func (r *reactor) TakeReady(tok Token) IOEvents {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[tok]
	if !ok {
		return 0
	}
	ready := reg.ready
	reg.ready = 0
	return ready
}

// Turn blocks in the native poll syscall for at most maxWait (noTimeout
// blocks indefinitely), dispatching any readiness observed to the
// wakers armed via SetWaker.
func (r *reactor) Turn(maxWait time.Duration) error {
	timeoutMs := -1
	if maxWait >= 0 {
		timeoutMs = int(maxWait / time.Millisecond)
	}
	_, err := r.poller.PollIO(timeoutMs)
	return err
}

// Wake interrupts an in-progress Turn from any goroutine, used when a
// task becomes runnable while the reactor-owning worker may be blocked
// in the native poll syscall with a long (or infinite) timeout.
func (r *reactor) Wake() {
	if r.wakeWriteFd >= 0 {
		_, _ = writeFD(r.wakeWriteFd, []byte{1})
		return
	}
	_ = r.poller.wakeupIOCP()
}

func (r *reactor) Close() error {
	r.mu.Lock()
	for tok, reg := range r.regs {
		_ = r.poller.UnregisterFD(reg.fd)
		delete(r.regs, tok)
	}
	r.mu.Unlock()
	_ = closeWakeFd(r.wakeFd, r.wakeWriteFd)
	return r.poller.Close()
}
