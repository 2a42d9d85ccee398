package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Topic naming convention for live updates
const (
	TopicNewPolls = "polls/new"
)

// TopicPollResults is the results topic for a poll
func TopicPollResults(pollID string) string {
	return "polls/" + pollID + "/results"
}

// TopicPollStatus is the lifecycle topic for a poll
func TopicPollStatus(pollID string) string {
	return "polls/" + pollID + "/status"
}

// Hub is a topic-keyed publish/subscribe registry over live sessions.
// Sessions subscribe to topic strings; broadcasts fan out to every open
// session in the topic's set. All maps are guarded by mu; broadcast
// tolerates sessions disconnecting mid-iteration by pruning as it goes.
type Hub struct {
	log      logger.Logger
	mu       sync.RWMutex
	sessions map[*Session]bool
	topics   map[string]map[*Session]bool
}

// Session is a middleman between one websocket connection and the hub
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

// New creates a new Hub
func New(log logger.Logger) *Hub {
	return &Hub{
		log:      log,
		sessions: make(map[*Session]bool),
		topics:   make(map[string]map[*Session]bool),
	}
}

// controlMessage covers every non-topic outbound frame
type controlMessage struct {
	Type              string `json:"type"`
	Topic             string `json:"topic,omitempty"`
	ActiveSubscribers int    `json:"active_subscribers,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Subscribe adds a session to a topic's set and returns the subscriber count
// after the addition. Re-subscribing is idempotent.
func (h *Hub) Subscribe(s *Session, topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Session]bool)
		h.topics[topic] = set
	}
	set[s] = true
	h.log.Debug("session subscribed", "topic", topic, "subscribers", len(set))
	return len(set)
}

// Unsubscribe removes a session from a topic's set
func (h *Hub) Unsubscribe(s *Session, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.topics[topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// SubscriberCount returns the current size of a topic's set
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// register adds a new session to the hub
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = true
	n := len(h.sessions)
	h.mu.Unlock()
	h.log.Debug("session connected", "total_sessions", n)
}

// disconnect removes a session from the hub and from every topic set it
// belongs to, and closes its send channel.
func (h *Hub) disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	for topic, set := range h.topics {
		delete(set, s)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	s.closed = true
	close(s.send)
	h.log.Debug("session disconnected", "total_sessions", len(h.sessions))
}

// Broadcast marshals payload into a topic envelope and pushes it to every
// open session subscribed to the topic. Sessions whose send buffer is full
// or that have closed are pruned from the set. A topic with no subscribers
// is a logged no-op.
func (h *Hub) Broadcast(topic string, msgType string, payload interface{}) {
	frame, err := json.Marshal(models.TopicMessage{
		Type:      msgType,
		Topic:     topic,
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.log.Error("failed to marshal broadcast payload", "topic", topic, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.topics[topic]
	if len(set) == 0 {
		h.log.Debug("broadcast to empty topic", "topic", topic)
		return
	}
	for s := range set {
		if s.closed {
			delete(set, s)
			continue
		}
		select {
		case s.send <- frame:
		default:
			// Slow consumer; drop it from the topic
			delete(set, s)
			h.log.Warn("dropped slow subscriber", "topic", topic)
		}
	}
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

// BroadcastPollResults implements services.Broadcaster
func (h *Hub) BroadcastPollResults(pollID string, stats *services.PollStatistics) {
	h.Broadcast(TopicPollResults(pollID), "poll_results", stats)
}

// BroadcastNewPoll implements services.Broadcaster
func (h *Hub) BroadcastNewPoll(poll *models.Poll) {
	h.Broadcast(TopicNewPolls, "new_poll", poll)
}

// BroadcastPollStatus implements services.Broadcaster
func (h *Hub) BroadcastPollStatus(pollID string, status models.PollStatus) {
	h.Broadcast(TopicPollStatus(pollID), "poll_status", map[string]interface{}{
		"poll_id": pollID,
		"status":  string(status),
	})
}

var _ services.Broadcaster = (*Hub)(nil)

// sendControl queues a control frame on the session, dropping it if the
// session is saturated.
func (s *Session) sendControl(msg controlMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- frame:
	default:
	}
}

// handleMessage dispatches one inbound client frame
func (s *Session) handleMessage(raw []byte) {
	var msg models.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendControl(controlMessage{Type: "error", Message: "malformed message"})
		return
	}

	switch msg.Action {
	case "subscribe":
		if msg.Topic == "" {
			s.hub.log.Debug("subscribe with empty topic ignored")
			return
		}
		count := s.hub.Subscribe(s, msg.Topic)
		s.sendControl(controlMessage{
			Type:              "subscription_confirmed",
			Topic:             msg.Topic,
			ActiveSubscribers: count,
		})
	case "unsubscribe":
		if msg.Topic == "" {
			s.hub.log.Debug("unsubscribe with empty topic ignored")
			return
		}
		s.hub.Unsubscribe(s, msg.Topic)
		s.sendControl(controlMessage{Type: "unsubscription_confirmed", Topic: msg.Topic})
	case "ping":
		s.sendControl(controlMessage{Type: "pong"})
	default:
		s.sendControl(controlMessage{Type: "error", Message: "unknown action: " + msg.Action})
	}
}

// readPump pumps messages from the websocket connection to the hub
func (s *Session) readPump() {
	defer func() {
		s.hub.disconnect(s)
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.Debug("websocket error", "error", err)
			}
			break
		}
		s.handleMessage(message)
	}
}

// writePump pumps queued frames to the websocket connection
func (s *Session) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade error", "error", err)
		return
	}

	session := &Session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register(session)
	session.sendControl(controlMessage{Type: "connection_established"})

	go session.writePump()
	go session.readPump()
}
