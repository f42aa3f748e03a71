package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/messages"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Dispatcher accepts decoded inbound messages for routing.
type Dispatcher interface {
	Submit(msg messages.Message)
}

// TokenValidator resolves a join token to its meeting/user binding.
type TokenValidator interface {
	ValidateJoinToken(token, meetingID, userID string) bool
}

// Client represents a single WebSocket connection: either a participant bound
// to one meeting, or a monitor (voice gateway / integration client) that may
// submit supervisor-level messages.
type Client struct {
	ID        string
	MeetingID string // empty for monitors
	UserID    string
	hub       *Hub
	dispatch  Dispatcher
	conn      *websocket.Conn
	send      chan WSMessage
	closeOnce sync.Once
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. Meeting
// clients must present a join token bound to their meeting and user; monitor
// connections carry no meeting id.
func ServeWs(hub *Hub, dispatch Dispatcher, tokens TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetingID := c.Query("meeting_id")
		userID := c.Query("user_id")
		token := c.Query("token")
		if meetingID != "" {
			if token == "" || userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and token required"})
				return
			}
			if !tokens.ValidateJoinToken(token, meetingID, userID) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			MeetingID: meetingID,
			UserID:    userID,
			hub:       hub,
			dispatch:  dispatch,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// Close terminates the connection; the read loop handles unregistration.
func (c *Client) Close() {
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if m, ok := c.decode(msg); ok {
			c.dispatch.Submit(m)
		}
	}
}

// decode turns a wire envelope into a typed message. This is the boundary the
// supervisor assumes: everything past here is already typed and validated.
func (c *Client) decode(msg WSMessage) (messages.Message, bool) {
	switch msg.Event {
	case "create_meeting":
		var p struct {
			MeetingID          string `json:"meeting_id"`
			ExternalID         string `json:"external_id"`
			Name               string `json:"name"`
			Record             bool   `json:"record"`
			VoiceBridge        string `json:"voice_bridge"`
			DurationMinutes    int    `json:"duration_minutes"`
			AutoStartRecording bool   `json:"auto_start_recording"`
			ModeratorPass      string `json:"moderator_pass"`
			ViewerPass         string `json:"viewer_pass"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.MeetingID == "" {
			return nil, false
		}
		return messages.CreateMeeting{
			MeetingID:          p.MeetingID,
			ExternalID:         p.ExternalID,
			Name:               p.Name,
			Record:             p.Record,
			VoiceBridge:        p.VoiceBridge,
			DurationMinutes:    p.DurationMinutes,
			AutoStartRecording: p.AutoStartRecording,
			ModeratorPass:      p.ModeratorPass,
			ViewerPass:         p.ViewerPass,
			CreateTime:         time.Now(),
		}, true
	case "destroy_meeting":
		var p struct {
			MeetingID string `json:"meeting_id"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.MeetingID == "" {
			return nil, false
		}
		return messages.DestroyMeeting{MeetingID: p.MeetingID}, true
	case "keep_alive":
		var p struct {
			AliveID string `json:"alive_id"`
		}
		if json.Unmarshal(msg.Data, &p) != nil {
			return nil, false
		}
		return messages.KeepAlive{AliveID: p.AliveID}, true
	case "get_all_meetings":
		return messages.GetAllMeetings{}, true
	case "validate_auth_token":
		var p struct {
			MeetingID     string `json:"meeting_id"`
			UserID        string `json:"user_id"`
			Token         string `json:"token"`
			CorrelationID string `json:"correlation_id"`
			SessionID     string `json:"session_id"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.MeetingID == "" {
			return nil, false
		}
		return messages.ValidateAuthToken{
			MeetingID:     p.MeetingID,
			UserID:        p.UserID,
			Token:         p.Token,
			CorrelationID: p.CorrelationID,
			SessionID:     p.SessionID,
		}, true
	case "user_joined_voice":
		var p struct {
			VoiceConf    string `json:"voice_conf"`
			VoiceUserID  string `json:"voice_user_id"`
			UserID       string `json:"user_id"`
			CallerName   string `json:"caller_name"`
			CallerNumber string `json:"caller_number"`
			Muted        bool   `json:"muted"`
			Talking      bool   `json:"talking"`
			Locked       bool   `json:"locked"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.UserJoinedVoiceConf{
			VoiceConf:    p.VoiceConf,
			VoiceUserID:  p.VoiceUserID,
			UserID:       p.UserID,
			CallerName:   p.CallerName,
			CallerNumber: p.CallerNumber,
			Muted:        p.Muted,
			Talking:      p.Talking,
			Locked:       p.Locked,
		}, true
	case "user_left_voice":
		var p struct {
			VoiceConf   string `json:"voice_conf"`
			VoiceUserID string `json:"voice_user_id"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.UserLeftVoiceConf{VoiceConf: p.VoiceConf, VoiceUserID: p.VoiceUserID}, true
	case "user_locked_voice":
		var p struct {
			VoiceConf   string `json:"voice_conf"`
			VoiceUserID string `json:"voice_user_id"`
			Locked      bool   `json:"locked"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.UserLockedInVoiceConf{VoiceConf: p.VoiceConf, VoiceUserID: p.VoiceUserID, Locked: p.Locked}, true
	case "user_muted_voice":
		var p struct {
			VoiceConf   string `json:"voice_conf"`
			VoiceUserID string `json:"voice_user_id"`
			Muted       bool   `json:"muted"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.UserMutedInVoiceConf{VoiceConf: p.VoiceConf, VoiceUserID: p.VoiceUserID, Muted: p.Muted}, true
	case "user_talking_voice":
		var p struct {
			VoiceConf   string `json:"voice_conf"`
			VoiceUserID string `json:"voice_user_id"`
			Talking     bool   `json:"talking"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.UserTalkingInVoiceConf{VoiceConf: p.VoiceConf, VoiceUserID: p.VoiceUserID, Talking: p.Talking}, true
	case "voice_recording_started":
		var p struct {
			VoiceConf string `json:"voice_conf"`
			Filename  string `json:"filename"`
			Timestamp string `json:"timestamp"`
			Record    bool   `json:"record"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		return messages.VoiceRecordingStarted{VoiceConf: p.VoiceConf, Filename: p.Filename, Timestamp: p.Timestamp, Record: p.Record}, true
	case "voice_connected_global_audio", "voice_disconnected_global_audio":
		var p struct {
			VoiceConf string `json:"voice_conf"`
			UserID    string `json:"user_id"`
			Name      string `json:"name"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.VoiceConf == "" {
			return nil, false
		}
		if msg.Event == "voice_connected_global_audio" {
			return messages.VoiceConnectedToGlobalAudio{VoiceConf: p.VoiceConf, UserID: p.UserID, Name: p.Name}, true
		}
		return messages.VoiceDisconnectedFromGlobalAudio{VoiceConf: p.VoiceConf, UserID: p.UserID, Name: p.Name}, true
	case "chat_message":
		if c.MeetingID == "" {
			return nil, false
		}
		var p struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.Text == "" {
			return nil, false
		}
		return messages.SendChatMessage{MeetingID: c.MeetingID, UserID: c.UserID, Text: p.Text}, true
	case "assign_presenter":
		if c.MeetingID == "" {
			return nil, false
		}
		var p struct {
			UserID string `json:"user_id"`
		}
		if json.Unmarshal(msg.Data, &p) != nil || p.UserID == "" {
			return nil, false
		}
		return messages.AssignPresenter{MeetingID: c.MeetingID, UserID: p.UserID, AssignedBy: c.UserID}, true
	default:
		c.logger.Debug("unknown ws event", zap.String("event", msg.Event))
		return nil, false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
