package messages

import (
	"time"

	"github.com/conclave-live/backend/internal/models"
)

// KeepAliveReply echoes a keep-alive probe id.
type KeepAliveReply struct {
	AliveID string `json:"alive_id"`
}

// MeetingCreated announces a newly created meeting to downstream consumers.
type MeetingCreated struct {
	MeetingID       string    `json:"meeting_id"`
	ExternalID      string    `json:"external_id"`
	Name            string    `json:"name"`
	Record          bool      `json:"record"`
	VoiceBridge     string    `json:"voice_bridge"`
	DurationMinutes int       `json:"duration_minutes"`
	ModeratorPass   string    `json:"moderator_pass"`
	ViewerPass      string    `json:"viewer_pass"`
	CreateTime      time.Time `json:"create_time"`
	CreateDate      string    `json:"create_date"`
}

// EndAndKickAll tells clients the meeting is ending and everyone is removed.
// Emitted first during teardown, before the registry can resolve the id again.
type EndAndKickAll struct {
	MeetingID string `json:"meeting_id"`
	Record    bool   `json:"record"`
}

// DisconnectAllUsers tells the transport layer to drop every connection of
// the meeting. Emitted second during teardown.
type DisconnectAllUsers struct {
	MeetingID string `json:"meeting_id"`
}

// MeetingDestroyed is the authoritative end-of-meeting signal, always last.
type MeetingDestroyed struct {
	MeetingID string `json:"meeting_id"`
}

// GetAllMeetingsReply carries the lightweight info of every active meeting.
type GetAllMeetingsReply struct {
	Meetings []models.MeetingInfo `json:"meetings"`
}

// ValidateAuthTokenReply is the session actor's verdict on a join token.
type ValidateAuthTokenReply struct {
	MeetingID     string `json:"meeting_id"`
	UserID        string `json:"user_id"`
	Token         string `json:"token"`
	Valid         bool   `json:"valid"`
	CorrelationID string `json:"correlation_id"`
	SessionID     string `json:"session_id"`
}

// ValidateAuthTokenTimedOut is the compensating negative reply emitted when a
// session actor fails to answer the validation exchange within the bound.
type ValidateAuthTokenTimedOut struct {
	MeetingID     string `json:"meeting_id"`
	UserID        string `json:"user_id"`
	Token         string `json:"token"`
	Valid         bool   `json:"valid"`
	CorrelationID string `json:"correlation_id"`
	SessionID     string `json:"session_id"`
}

// GetUsersReply carries one meeting's participant list.
type GetUsersReply struct {
	MeetingID string               `json:"meeting_id"`
	Users     []models.Participant `json:"users"`
}

// GetPresentationInfoReply carries one meeting's presentation state.
type GetPresentationInfoReply struct {
	MeetingID    string `json:"meeting_id"`
	PresenterID  string `json:"presenter_id"`
	CurrentSlide int    `json:"current_slide"`
}

// GetChatHistoryReply carries one meeting's retained chat history.
type GetChatHistoryReply struct {
	MeetingID string             `json:"meeting_id"`
	History   []models.ChatEntry `json:"history"`
}

// GetLockSettingsReply carries one meeting's lock settings.
type GetLockSettingsReply struct {
	MeetingID string              `json:"meeting_id"`
	Settings  models.LockSettings `json:"settings"`
}

// ChatMessagePosted fans a newly posted chat message out to clients.
type ChatMessagePosted struct {
	MeetingID string    `json:"meeting_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// PresenterAssigned announces a presenter change.
type PresenterAssigned struct {
	MeetingID  string `json:"meeting_id"`
	UserID     string `json:"user_id"`
	AssignedBy string `json:"assigned_by"`
}

func (KeepAliveReply) isMessage()            {}
func (MeetingCreated) isMessage()            {}
func (EndAndKickAll) isMessage()             {}
func (DisconnectAllUsers) isMessage()        {}
func (MeetingDestroyed) isMessage()          {}
func (GetAllMeetingsReply) isMessage()       {}
func (ValidateAuthTokenReply) isMessage()    {}
func (ValidateAuthTokenTimedOut) isMessage() {}
func (GetUsersReply) isMessage()             {}
func (GetPresentationInfoReply) isMessage()  {}
func (GetChatHistoryReply) isMessage()       {}
func (GetLockSettingsReply) isMessage()      {}
func (ChatMessagePosted) isMessage()         {}
func (PresenterAssigned) isMessage()         {}
