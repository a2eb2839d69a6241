package signals

import "sync"

// ConnState is the chat socket's lifecycle state as shown to the user.
type ConnState int

const (
	ConnConnecting ConnState = iota
	ConnConnected
	ConnDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ConnTracker mirrors socket lifecycle events for one chat at a time.
// Switching to another chat re-enters the connecting state.
type ConnTracker struct {
	mu       sync.RWMutex
	chatID   string
	state    ConnState
	onChange func(ConnState)
}

func NewConnTracker(onChange func(ConnState)) *ConnTracker {
	return &ConnTracker{state: ConnDisconnected, onChange: onChange}
}

// Watch targets a chat. A changed chat id always resets to connecting.
func (c *ConnTracker) Watch(chatID string) {
	c.mu.Lock()
	c.chatID = chatID
	c.mu.Unlock()
	c.set(ConnConnecting)
}

func (c *ConnTracker) HandleOpen()  { c.set(ConnConnected) }
func (c *ConnTracker) HandleClose() { c.set(ConnDisconnected) }
func (c *ConnTracker) HandleError() { c.set(ConnDisconnected) }

func (c *ConnTracker) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *ConnTracker) ChatID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatID
}

func (c *ConnTracker) set(state ConnState) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if changed && c.onChange != nil {
		c.onChange(state)
	}
}
