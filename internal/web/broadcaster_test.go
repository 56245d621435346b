package web

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
	return Message{}
}

func decodeLog(t *testing.T, m Message) StatusEvent {
	t.Helper()
	if m.Event != EventLog {
		t.Fatalf("event = %q, want %q", m.Event, EventLog)
	}
	var evt StatusEvent
	if err := json.Unmarshal([]byte(m.Data), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return evt
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("info", "hello")

	evt := decodeLog(t, receive(t, ch))
	if evt.Msg != "hello" {
		t.Errorf("msg = %q, want \"hello\"", evt.Msg)
	}
	if evt.Level != "info" {
		t.Errorf("level = %q, want \"info\"", evt.Level)
	}
	if evt.Time == "" {
		t.Error("event should have a timestamp")
	}
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.BroadcastMsg("multi")

	for i, ch := range []<-chan Message{ch1, ch2} {
		if evt := decodeLog(t, receive(t, ch)); evt.Msg != "multi" {
			t.Errorf("subscriber %d: msg = %q, want \"multi\"", i, evt.Msg)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Broadcasting after unsubscribe should not panic
	b.Broadcast("info", "after unsub")
	b.BroadcastState(map[string]string{"screen": "welcome"})
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 64; i++ {
		b.Broadcast("info", "fill")
	}
	b.Broadcast("info", "overflow")

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != 64 {
		t.Errorf("expected 64 buffered messages, got %d", count)
	}
}

func TestBroadcaster_StateEvent(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.BroadcastState(map[string]string{"screen": "capture"})

	m := receive(t, ch)
	if m.Event != EventState {
		t.Fatalf("event = %q, want %q", m.Event, EventState)
	}
	if m.Data != `{"screen":"capture"}` {
		t.Errorf("data = %s", m.Data)
	}
}

func TestBroadcaster_LateSubscriberGetsLastState(t *testing.T) {
	b := NewStatusBroadcaster()
	b.BroadcastState(map[string]string{"screen": "welcome"})
	b.BroadcastState(map[string]string{"screen": "frame_select"})
	b.Broadcast("info", "not replayed")

	ch, unsub := b.Subscribe()
	defer unsub()

	m := receive(t, ch)
	if m.Event != EventState || m.Data != `{"screen":"frame_select"}` {
		t.Errorf("first message = %+v, want last state", m)
	}
	if len(ch) != 0 {
		t.Errorf("%d extra messages replayed", len(ch))
	}
}

func TestBroadcastWriter_Write(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	n, err := w.Write([]byte("  trimmed message  \n"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len("  trimmed message  \n") {
		t.Errorf("n = %d, want %d", n, len("  trimmed message  \n"))
	}
	if evt := decodeLog(t, receive(t, ch)); evt.Msg != "trimmed message" {
		t.Errorf("msg = %q, want \"trimmed message\"", evt.Msg)
	}
}

func TestBroadcastWriter_Levels(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"[photobooth] [INFO] Screen: welcome -> frame_select", "info"},
		{"[photobooth] [WARN] No frames found", "warn"},
		{"[photobooth] [ERROR] open camera: busy", "error"},
		{"[photobooth] [FATAL] config: missing", "error"},
		{"plain line", "info"},
	}
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()
	w := BroadcastWriter(b)

	for _, tc := range cases {
		w.Write([]byte(tc.line + "\n"))
		if evt := decodeLog(t, receive(t, ch)); evt.Level != tc.want {
			t.Errorf("%q: level = %q, want %q", tc.line, evt.Level, tc.want)
		}
	}
}

func TestBroadcastWriter_EmptyWriteIgnored(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	w.Write([]byte("   \n"))

	select {
	case <-ch:
		t.Error("expected no message for whitespace-only write")
	case <-time.After(50 * time.Millisecond):
		// expected: no message
	}
}
