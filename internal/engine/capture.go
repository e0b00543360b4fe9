package engine

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// Capture diverts PTY output away from the display into a buffer while a
// consumer (the listing pipeline or a remote sentinel wait) needs it.
// Producer is the output forwarder; at most one consumer waits at a time.
// While capture is active no bytes reach the real display.
type Capture struct {
	mu     sync.Mutex
	cond   *sync.Cond
	active bool
	buf    bytes.Buffer
}

// NewCapture builds an inactive capture buffer.
func NewCapture() *Capture {
	c := &Capture{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Active reports whether output is currently being diverted.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start enables capture mode with an empty buffer.
func (c *Capture) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.buf.Reset()
}

// Append adds forwarded output and wakes any waiting consumer. Chunks
// arriving while capture is inactive are dropped.
func (c *Capture) Append(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.buf.Write(p)
	c.cond.Broadcast()
}

// Stop disables capture mode and returns whatever was collected.
func (c *Capture) Stop() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	out := c.buf.String()
	c.buf.Reset()
	return out
}

// WaitFor blocks until the captured output contains substr or the
// timeout elapses. Capture mode is disabled on return in both cases; the
// collected output is returned either way, with ok=false on timeout.
func (c *Capture) WaitFor(substr string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	// sync.Cond has no timed wait; a timer broadcast bounds the sleep.
	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if strings.Contains(c.buf.String(), substr) {
			c.active = false
			out := c.buf.String()
			c.buf.Reset()
			return out, true
		}
		if time.Now().After(deadline) {
			c.active = false
			c.buf.Reset()
			return "", false
		}
		c.cond.Wait()
	}
}
