package internal

// ReadyCounter implements the readiness handshake of a composite control: it fires
// exactly once, after the expected number of child signals, or immediately when no
// children are expected. Signals after firing are ignored.
type ReadyCounter struct {
	remaining int
	fired     bool
	onReady   func()
}

// NewReadyCounter creates a counter expecting n child signals.
func NewReadyCounter(n int, onReady func()) *ReadyCounter {
	c := &ReadyCounter{remaining: n, onReady: onReady}
	if n <= 0 {
		c.fire()
	}
	return c
}

// ChildReady records one child signal and reports whether the counter fired on it.
func (c *ReadyCounter) ChildReady() bool {
	if c.fired {
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		return false
	}
	c.fire()
	return true
}

// Fired reports whether the counter has fired.
func (c *ReadyCounter) Fired() bool {
	return c.fired
}

// Remaining returns the number of outstanding child signals.
func (c *ReadyCounter) Remaining() int {
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

func (c *ReadyCounter) fire() {
	c.fired = true
	if c.onReady != nil {
		c.onReady()
	}
}
