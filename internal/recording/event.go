// Package recording turns voice-conference messages into canonical recordable
// events and hands them to the durable journal.
package recording

// Event is a canonical, persistable representation of one voice-conference
// occurrence. Every event carries the meeting id of the matched meeting (not
// the voice bridge id from the wire) and a capture timestamp in unix millis.
type Event interface {
	Kind() string
}

// UserJoinedEvent records a caller joining the voice conference.
type UserJoinedEvent struct {
	MeetingID   string `json:"meeting_id"`
	Timestamp   int64  `json:"timestamp"`
	VoiceUserID string `json:"voice_user_id"`
	UserID      string `json:"user_id"`
	CallerName  string `json:"caller_name"`
	Muted       bool   `json:"muted"`
	Talking     bool   `json:"talking"`
	Locked      bool   `json:"locked"`
}

// UserLeftEvent records a caller leaving the voice conference.
type UserLeftEvent struct {
	MeetingID   string `json:"meeting_id"`
	Timestamp   int64  `json:"timestamp"`
	VoiceUserID string `json:"voice_user_id"`
}

// UserLockedEvent records a lock state change.
type UserLockedEvent struct {
	MeetingID   string `json:"meeting_id"`
	Timestamp   int64  `json:"timestamp"`
	VoiceUserID string `json:"voice_user_id"`
	Locked      bool   `json:"locked"`
}

// UserMutedEvent records a mute state change.
type UserMutedEvent struct {
	MeetingID   string `json:"meeting_id"`
	Timestamp   int64  `json:"timestamp"`
	VoiceUserID string `json:"voice_user_id"`
	Muted       bool   `json:"muted"`
}

// UserTalkingEvent records a talking state change.
type UserTalkingEvent struct {
	MeetingID   string `json:"meeting_id"`
	Timestamp   int64  `json:"timestamp"`
	VoiceUserID string `json:"voice_user_id"`
	Talking     bool   `json:"talking"`
}

// RecordingStartedEvent records that the conference started recording.
type RecordingStartedEvent struct {
	MeetingID     string `json:"meeting_id"`
	Timestamp     int64  `json:"timestamp"`
	Filename      string `json:"filename"`
	FileTimestamp string `json:"file_timestamp"`
	Record        bool   `json:"record"`
}

func (UserJoinedEvent) Kind() string       { return "user_joined_voice" }
func (UserLeftEvent) Kind() string         { return "user_left_voice" }
func (UserLockedEvent) Kind() string       { return "user_locked_voice" }
func (UserMutedEvent) Kind() string        { return "user_muted_voice" }
func (UserTalkingEvent) Kind() string      { return "user_talking_voice" }
func (RecordingStartedEvent) Kind() string { return "recording_started" }
