package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains meeting_id -> set of connections plus a set of monitor
// connections (integration clients observing supervisor-level events).
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish.
type Hub struct {
	// meetingID -> map[clientID]*Client
	meetings map[string]map[string]*Client
	monitors map[string]*Client
	subs     map[string]func() // cancel Redis subscription per meeting
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishMeetingEvent(meetingID, event string, payload []byte) error
}

// RedisSubscriber subscribes to meeting channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeMeeting(meetingID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		meetings: make(map[string]map[string]*Client),
		monitors: make(map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client. Meeting clients join their meeting room (starting a
// Redis subscription for the first one); clients without a meeting id become
// monitors.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if c.MeetingID == "" {
		h.monitors[c.ID] = c
		h.mu.Unlock()
		h.logger.Debug("monitor client connected", zap.String("client_id", c.ID))
		return
	}
	if h.meetings[c.MeetingID] == nil {
		h.meetings[c.MeetingID] = make(map[string]*Client)
		if h.redisSub != nil {
			meetingID := c.MeetingID
			cancel, err := h.redisSub.SubscribeMeeting(meetingID, func(event string, payload []byte) {
				h.BroadcastToMeeting(meetingID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[meetingID] = cancel
			}
		}
	}
	h.meetings[c.MeetingID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined meeting", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID))
}

// Unregister removes a client. Cancels the Redis subscription when the last
// client of a meeting leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if c.MeetingID == "" {
		delete(h.monitors, c.ID)
		h.mu.Unlock()
		return
	}
	if m, ok := h.meetings[c.MeetingID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.meetings, c.MeetingID)
			if cancel, ok := h.subs[c.MeetingID]; ok {
				cancel()
				delete(h.subs, c.MeetingID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left meeting", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID))
}

// BroadcastToMeeting sends a message to all clients in a meeting (local only).
func (h *Hub) BroadcastToMeeting(meetingID, event string, payload interface{}) {
	msg := makeWSMessage(event, payload)

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.meetings[meetingID]))
	for _, c := range h.meetings[meetingID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToMeetingAndPublish sends to local clients and publishes to Redis for other instances.
func (h *Hub) BroadcastToMeetingAndPublish(meetingID, event string, payload interface{}) {
	h.BroadcastToMeeting(meetingID, event, payload)
	if h.redis != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = h.redis.PublishMeetingEvent(meetingID, event, data)
	}
}

// BroadcastToMonitors sends a message to every monitor client.
func (h *Hub) BroadcastToMonitors(event string, payload interface{}) {
	msg := makeWSMessage(event, payload)

	h.mu.RLock()
	monitors := make([]*Client, 0, len(h.monitors))
	for _, c := range h.monitors {
		monitors = append(monitors, c)
	}
	h.mu.RUnlock()

	for _, c := range monitors {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// DisconnectMeeting closes every connection of a meeting. Used when the
// supervisor orders all users of a destroyed meeting disconnected.
func (h *Hub) DisconnectMeeting(meetingID string) {
	h.mu.Lock()
	clients := h.meetings[meetingID]
	delete(h.meetings, meetingID)
	if cancel, ok := h.subs[meetingID]; ok {
		cancel()
		delete(h.subs, meetingID)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	if len(clients) > 0 {
		h.logger.Info("disconnected all meeting clients", zap.String("meeting_id", meetingID), zap.Int("count", len(clients)))
	}
}

// ClientCount returns the number of connected clients in a meeting.
func (h *Hub) ClientCount(meetingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meetings[meetingID])
}

func makeWSMessage(event string, payload interface{}) WSMessage {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	return WSMessage{Event: event, Data: data}
}
