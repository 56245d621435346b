package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// SSE event names.
const (
	EventLog   = "log"
	EventState = "state"
)

// StatusEvent represents a single log line for SSE.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// Message is one SSE frame: an event name and its JSON data.
type Message struct {
	Event string
	Data  string
}

// StatusBroadcaster distributes log lines and session states to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan Message]struct{}
	last    *Message // latest state, replayed to new subscribers
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan Message]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
// If a state was already broadcast, it is the first message received.
func (b *StatusBroadcaster) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 64)
	b.mu.Lock()
	if b.last != nil {
		ch <- *b.last
	}
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a log line to all subscribed clients as a "log" event.
// Data is JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	evt := StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	b.send(Message{Event: EventLog, Data: string(data)}, false)
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastState sends v, encoded as JSON, as a "state" event and keeps it
// for clients that subscribe later.
func (b *StatusBroadcaster) BroadcastState(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.send(Message{Event: EventState, Data: string(data)}, true)
}

func (b *StatusBroadcaster) send(m Message, keep bool) {
	if keep {
		b.mu.Lock()
		b.last = &m
		b.mu.Unlock()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- m:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.Broadcast(levelOf(msg), msg)
	}
	return len(p), nil
}

// levelOf reads the level from a debug line tag such as "[WARN]".
func levelOf(line string) string {
	switch {
	case strings.Contains(line, "[ERROR]"), strings.Contains(line, "[FATAL]"):
		return "error"
	case strings.Contains(line, "[WARN]"):
		return "warn"
	}
	return "info"
}
