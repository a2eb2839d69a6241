package signals

import "testing"

func TestConnTrackerLifecycle(t *testing.T) {
	c := NewConnTracker(nil)
	if c.State() != ConnDisconnected {
		t.Fatalf("initial state = %v, want disconnected", c.State())
	}

	c.Watch("cht_1")
	if c.State() != ConnConnecting {
		t.Fatalf("state after Watch = %v, want connecting", c.State())
	}
	if c.ChatID() != "cht_1" {
		t.Fatalf("ChatID() = %q, want cht_1", c.ChatID())
	}

	c.HandleOpen()
	if c.State() != ConnConnected {
		t.Fatalf("state after open = %v, want connected", c.State())
	}

	c.HandleClose()
	if c.State() != ConnDisconnected {
		t.Fatalf("state after close = %v, want disconnected", c.State())
	}
}

func TestConnTrackerChatSwitchReentersConnecting(t *testing.T) {
	c := NewConnTracker(nil)
	c.Watch("cht_1")
	c.HandleOpen()

	c.Watch("cht_2")
	if c.State() != ConnConnecting {
		t.Fatalf("state after chat switch = %v, want connecting", c.State())
	}
	if c.ChatID() != "cht_2" {
		t.Fatalf("ChatID() = %q, want cht_2", c.ChatID())
	}
}

func TestConnTrackerErrorDisconnects(t *testing.T) {
	var states []ConnState
	c := NewConnTracker(func(s ConnState) { states = append(states, s) })

	c.Watch("cht_1")
	c.HandleOpen()
	c.HandleError()

	want := []ConnState{ConnConnecting, ConnConnected, ConnDisconnected}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", states, want)
		}
	}
}

func TestConnStateString(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{ConnConnecting, "connecting"},
		{ConnConnected, "connected"},
		{ConnDisconnected, "disconnected"},
		{ConnState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("String(%d) = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
