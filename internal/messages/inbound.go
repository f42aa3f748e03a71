// Package messages defines the typed message set exchanged between the
// supervisor, session actors and the outbound gateway. Inbound messages are
// assumed decoded and validated before they reach the supervisor.
package messages

import "time"

// Message is the closed set of routable messages. The supervisor matches
// concrete types; anything outside the set falls to a logged no-op.
type Message interface {
	isMessage()
}

// MeetingMessage is any inbound message addressed by meeting id.
type MeetingMessage interface {
	Message
	Meeting() string
}

// VoiceConfMessage is any inbound message keyed by voice bridge id instead of
// meeting id. The supervisor resolves the target via the bridge lookup.
type VoiceConfMessage interface {
	Message
	VoiceBridge() string
}

// CreateMeeting requests creation of a new meeting. Duplicate ids are no-ops.
type CreateMeeting struct {
	MeetingID          string
	ExternalID         string
	Name               string
	Record             bool
	VoiceBridge        string
	DurationMinutes    int
	AutoStartRecording bool
	ModeratorPass      string
	ViewerPass         string
	CreateTime         time.Time
}

// DestroyMeeting requests teardown of an active meeting.
type DestroyMeeting struct {
	MeetingID string
}

// KeepAlive is the monitoring probe; the supervisor echoes the id back
// immediately without touching the registry.
type KeepAlive struct {
	AliveID string
}

// GetAllMeetings asks for the lightweight info of every active meeting and
// fans out per-meeting detail requests through the normal dispatch path.
type GetAllMeetings struct{}

// ValidateAuthToken asks the target session to validate a join token. This is
// the one message forwarded with a bounded request/response exchange so a hung
// session surfaces as a timed-out reply instead of a silent hang.
type ValidateAuthToken struct {
	MeetingID     string
	UserID        string
	Token         string
	CorrelationID string
	SessionID     string
}

// UserJoinedVoiceConf reports a caller joining the voice conference.
type UserJoinedVoiceConf struct {
	VoiceConf    string
	VoiceUserID  string
	UserID       string
	CallerName   string
	CallerNumber string
	Muted        bool
	Talking      bool
	Locked       bool
}

// UserLeftVoiceConf reports a caller leaving the voice conference.
type UserLeftVoiceConf struct {
	VoiceConf   string
	VoiceUserID string
}

// UserLockedInVoiceConf reports a caller's lock state change.
type UserLockedInVoiceConf struct {
	VoiceConf   string
	VoiceUserID string
	Locked      bool
}

// UserMutedInVoiceConf reports a caller's mute state change.
type UserMutedInVoiceConf struct {
	VoiceConf   string
	VoiceUserID string
	Muted       bool
}

// UserTalkingInVoiceConf reports a caller's talking state change.
type UserTalkingInVoiceConf struct {
	VoiceConf   string
	VoiceUserID string
	Talking     bool
}

// VoiceRecordingStarted reports that the voice conference started recording
// to the given file.
type VoiceRecordingStarted struct {
	VoiceConf string
	Filename  string
	Timestamp string
	Record    bool
}

// VoiceConnectedToGlobalAudio reports a listen-only user attaching to the
// shared audio stream. Forward only, never recorded.
type VoiceConnectedToGlobalAudio struct {
	VoiceConf string
	UserID    string
	Name      string
}

// VoiceDisconnectedFromGlobalAudio reports a listen-only user detaching from
// the shared audio stream. Forward only, never recorded.
type VoiceDisconnectedFromGlobalAudio struct {
	VoiceConf string
	UserID    string
	Name      string
}

// InitializeMeeting tells a freshly created session actor whether it should
// mark itself as recorded. Sent by the supervisor right after creation.
type InitializeMeeting struct {
	MeetingID string
	Record    bool
}

// StartMeetingTimer arms the session's scheduled-duration timer.
type StartMeetingTimer struct {
	MeetingID       string
	DurationMinutes int
}

// GetUsers requests the participant list of one meeting.
type GetUsers struct {
	MeetingID   string
	RequesterID string
}

// GetPresentationInfo requests the presentation state of one meeting.
type GetPresentationInfo struct {
	MeetingID   string
	RequesterID string
}

// GetChatHistory requests the retained chat history of one meeting.
type GetChatHistory struct {
	MeetingID   string
	RequesterID string
}

// GetLockSettings requests the lock settings of one meeting.
type GetLockSettings struct {
	MeetingID   string
	RequesterID string
}

// SendChatMessage appends a chat message to one meeting.
type SendChatMessage struct {
	MeetingID string
	UserID    string
	Text      string
}

// AssignPresenter hands the presenter role to a user in one meeting.
type AssignPresenter struct {
	MeetingID  string
	UserID     string
	AssignedBy string
}

func (CreateMeeting) isMessage()                    {}
func (DestroyMeeting) isMessage()                   {}
func (KeepAlive) isMessage()                        {}
func (GetAllMeetings) isMessage()                   {}
func (ValidateAuthToken) isMessage()                {}
func (UserJoinedVoiceConf) isMessage()              {}
func (UserLeftVoiceConf) isMessage()                {}
func (UserLockedInVoiceConf) isMessage()            {}
func (UserMutedInVoiceConf) isMessage()             {}
func (UserTalkingInVoiceConf) isMessage()           {}
func (VoiceRecordingStarted) isMessage()            {}
func (VoiceConnectedToGlobalAudio) isMessage()      {}
func (VoiceDisconnectedFromGlobalAudio) isMessage() {}
func (InitializeMeeting) isMessage()                {}
func (StartMeetingTimer) isMessage()                {}
func (GetUsers) isMessage()                         {}
func (GetPresentationInfo) isMessage()              {}
func (GetChatHistory) isMessage()                   {}
func (GetLockSettings) isMessage()                  {}
func (SendChatMessage) isMessage()                  {}
func (AssignPresenter) isMessage()                  {}

func (m ValidateAuthToken) Meeting() string   { return m.MeetingID }
func (m InitializeMeeting) Meeting() string   { return m.MeetingID }
func (m StartMeetingTimer) Meeting() string   { return m.MeetingID }
func (m GetUsers) Meeting() string            { return m.MeetingID }
func (m GetPresentationInfo) Meeting() string { return m.MeetingID }
func (m GetChatHistory) Meeting() string      { return m.MeetingID }
func (m GetLockSettings) Meeting() string     { return m.MeetingID }
func (m SendChatMessage) Meeting() string     { return m.MeetingID }
func (m AssignPresenter) Meeting() string     { return m.MeetingID }

func (m UserJoinedVoiceConf) VoiceBridge() string              { return m.VoiceConf }
func (m UserLeftVoiceConf) VoiceBridge() string                { return m.VoiceConf }
func (m UserLockedInVoiceConf) VoiceBridge() string            { return m.VoiceConf }
func (m UserMutedInVoiceConf) VoiceBridge() string             { return m.VoiceConf }
func (m UserTalkingInVoiceConf) VoiceBridge() string           { return m.VoiceConf }
func (m VoiceRecordingStarted) VoiceBridge() string            { return m.VoiceConf }
func (m VoiceConnectedToGlobalAudio) VoiceBridge() string      { return m.VoiceConf }
func (m VoiceDisconnectedFromGlobalAudio) VoiceBridge() string { return m.VoiceConf }
