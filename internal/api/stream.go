package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"doc-risk-eval/internal/analysis"
	"doc-risk-eval/internal/analyzer"
)

// StateEvent describes websocket payloads emitted while documents are analyzed.
type StateEvent struct {
	Type      string            `json:"type"`
	RequestID string            `json:"request_id"`
	State     analyzer.Snapshot `json:"state"`
	Timestamp time.Time         `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// StateNotifier keeps track of active websocket clients and broadcasts state events.
type StateNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *StateEvent
}

// NewStateNotifier constructs a notifier instance.
func NewStateNotifier() *StateNotifier {
	return &StateNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the last event to it.
func (n *StateNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastEvent
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *StateNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *StateNotifier) Broadcast(event StateEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.lastEvent = &snapshot

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastEvent returns a copy of the most recent event.
func (n *StateNotifier) LastEvent() *StateEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	event := *n.lastEvent
	return &event
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// streamView mirrors a run's state and broadcasts it after every update.
type streamView struct {
	notifier  *StateNotifier
	requestID string
	state     *analyzer.State
}

func newStreamView(n *StateNotifier, requestID string) *streamView {
	return &streamView{notifier: n, requestID: requestID, state: analyzer.NewState()}
}

func (v *streamView) publish(eventType string) {
	v.notifier.Broadcast(StateEvent{
		Type:      eventType,
		RequestID: v.requestID,
		State:     v.state.Snapshot(),
	})
}

func (v *streamView) SetScore(text string) {
	v.state.SetScore(text)
	eventType := "score"
	if text == analyzer.LoadingText {
		eventType = "started"
	}
	v.publish(eventType)
}

func (v *streamView) SetIndicator(offset string) {
	v.state.SetIndicator(offset)
	v.publish("indicator")
}

func (v *streamView) ShowClauses(entries []analysis.Entry) {
	v.state.ShowClauses(entries)
	v.publish("clauses")
}

func (v *streamView) HideClauses() {
	v.state.HideClauses()
	v.publish("clauses")
}

func (v *streamView) ShowError(msg analyzer.Message) {
	v.state.ShowError(msg)
	v.publish("failed")
}

func (v *streamView) ClearError() {
	v.state.ClearError()
	v.publish("error_cleared")
}

func (v *streamView) ShowFilename(name string) {
	v.state.ShowFilename(name)
	v.publish("completed")
}

func (v *streamView) HideFilename() {
	v.state.HideFilename()
	v.publish("filename")
}
