package intr

import "net"

// Conn wraps a net.Conn so that Read fails fast with ErrCancelled once h
// is interrupted, instead of blocking until the kernel notices the
// underlying socket was closed out from under it. Grounded on the
// teacher's SerialDevice.Read: check the cancellation signal first, only
// read if it hasn't fired.
type Conn struct {
	net.Conn
	h *Handle
}

// WrapConn returns c with its Read calls guarded by h.
func WrapConn(h *Handle, c net.Conn) *Conn {
	return &Conn{Conn: c, h: h}
}

func (c *Conn) Read(p []byte) (int, error) {
	if c.h.IsInterrupted() {
		return 0, ErrCancelled
	}
	return c.Conn.Read(p)
}
