package realtime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/messages"
)

// Gateway is the outbound delivery collaborator: it maps typed outbound
// notifications onto hub broadcasts. Meeting-scoped notifications go to the
// meeting room (and Redis) plus monitors; supervisor-level ones go to
// monitors only. Best-effort, never blocks the caller.
type Gateway struct {
	hub    *Hub
	logger *zap.Logger
}

// NewGateway creates the outbound gateway over a hub.
func NewGateway(hub *Hub, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{hub: hub, logger: logger}
}

// Send delivers one outbound notification.
func (g *Gateway) Send(msg messages.Message) {
	event, meetingID, ok := classify(msg)
	if !ok {
		g.logger.Warn("gateway dropping unknown outbound message", zap.String("type", fmt.Sprintf("%T", msg)))
		return
	}

	if meetingID != "" {
		g.hub.BroadcastToMeetingAndPublish(meetingID, event, msg)
	}
	g.hub.BroadcastToMonitors(event, msg)

	// The disconnect order also tears down the transport connections.
	if d, isDisconnect := msg.(messages.DisconnectAllUsers); isDisconnect {
		g.hub.DisconnectMeeting(d.MeetingID)
	}
}

func classify(msg messages.Message) (event, meetingID string, ok bool) {
	switch m := msg.(type) {
	case messages.KeepAliveReply:
		return "keep_alive_reply", "", true
	case messages.MeetingCreated:
		return "meeting_created", m.MeetingID, true
	case messages.EndAndKickAll:
		return "end_and_kick_all", m.MeetingID, true
	case messages.DisconnectAllUsers:
		return "disconnect_all_users", m.MeetingID, true
	case messages.MeetingDestroyed:
		return "meeting_destroyed", m.MeetingID, true
	case messages.GetAllMeetingsReply:
		return "get_all_meetings_reply", "", true
	case messages.ValidateAuthTokenReply:
		return "validate_auth_token_reply", m.MeetingID, true
	case messages.ValidateAuthTokenTimedOut:
		return "validate_auth_token_timed_out", m.MeetingID, true
	case messages.GetUsersReply:
		return "get_users_reply", m.MeetingID, true
	case messages.GetPresentationInfoReply:
		return "get_presentation_info_reply", m.MeetingID, true
	case messages.GetChatHistoryReply:
		return "get_chat_history_reply", m.MeetingID, true
	case messages.GetLockSettingsReply:
		return "get_lock_settings_reply", m.MeetingID, true
	case messages.ChatMessagePosted:
		return "chat_message", m.MeetingID, true
	case messages.PresenterAssigned:
		return "presenter_assigned", m.MeetingID, true
	default:
		return "", "", false
	}
}
