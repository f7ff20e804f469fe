// Package intr provides a single cancellation token shared by every
// blocking call a controller makes, so that stopping a run unblocks
// whichever socket operation happens to be in flight at that instant.
//
// This mirrors the ctx.Done()-checking wrapper in the teacher's
// SerialDevice.Read and the process-group kill on context cancellation in
// its Run helper: here the same "close whatever is currently blocking"
// idea is generalized to an arbitrary net.Conn or net.Listener, since a
// controller run moves through several distinct sockets over its
// lifetime rather than owning just one for its whole life.
package intr

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned by any Handle-aware blocking call once the
// handle has been interrupted.
var ErrCancelled = errors.New("interrupted")

// Handle is a sticky, idempotent cancellation token. The zero value is
// ready to use.
type Handle struct {
	interrupted atomic.Bool

	mu    sync.Mutex
	armed io.Closer
}

// IsInterrupted reports whether Interrupt has ever been called.
func (h *Handle) IsInterrupted() bool {
	return h.interrupted.Load()
}

// Arm registers c as the socket currently blocking on behalf of the
// caller. It returns ErrCancelled without arming c if the handle was
// already interrupted. The caller must call Disarm when the operation
// using c completes, regardless of outcome.
func (h *Handle) Arm(c io.Closer) error {
	if h.interrupted.Load() {
		return ErrCancelled
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted.Load() {
		return ErrCancelled
	}
	h.armed = c
	return nil
}

// Disarm clears the currently-armed socket, if it is still c.
func (h *Handle) Disarm(c io.Closer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.armed == c {
		h.armed = nil
	}
}

// Interrupt sets the sticky interrupted flag and, if a socket is
// currently armed, closes it to unblock whatever call is waiting on it.
// Interrupt is idempotent and safe to call from any goroutine.
func (h *Handle) Interrupt() {
	h.interrupted.Store(true)
	h.mu.Lock()
	armed := h.armed
	h.armed = nil
	h.mu.Unlock()
	if armed != nil {
		armed.Close()
	}
}

// Guard arms c for the duration of fn and disarms it on return. If the
// handle is already interrupted, fn is not called and ErrCancelled is
// returned.
func Guard(h *Handle, c io.Closer, fn func() error) error {
	if err := h.Arm(c); err != nil {
		return err
	}
	defer h.Disarm(c)
	return fn()
}

// CloserFunc adapts a plain func() into an io.Closer, so a call with no
// socket or listener of its own — a pending net.Dial, say — can still be
// armed against a Handle by giving Interrupt something to invoke to
// abort it. Use NewCloserFunc rather than constructing one directly:
// Disarm identifies the armed closer by interface equality, and a bare
// func value isn't comparable, so CloserFunc is a pointer type.
type CloserFunc struct {
	fn func()
}

// NewCloserFunc wraps fn as an io.Closer.
func NewCloserFunc(fn func()) *CloserFunc {
	return &CloserFunc{fn: fn}
}

// Close invokes fn and returns nil.
func (c *CloserFunc) Close() error {
	c.fn()
	return nil
}
