package models

import "time"

// Meeting is the supervisor's record of one active meeting: identity and
// routing metadata only, distinct from the session actor's internal state.
type Meeting struct {
	ID                 string    `json:"id"`
	ExternalID         string    `json:"external_id"`
	Name               string    `json:"name"`
	Record             bool      `json:"record"`
	VoiceBridge        string    `json:"voice_bridge"`
	DurationMinutes    int       `json:"duration_minutes"`
	AutoStartRecording bool      `json:"auto_start_recording"`
	ModeratorPassHash  string    `json:"-"`
	ViewerPassHash     string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	CreateDate         string    `json:"create_date"`
}

// MeetingInfo is the lightweight listing entry returned by the bulk query.
type MeetingInfo struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	VoiceBridge string `json:"voice_bridge"`
	Record      bool   `json:"record"`
}

// Participant is one voice-conference participant as tracked by a session actor.
type Participant struct {
	VoiceUserID string    `json:"voice_user_id"`
	UserID      string    `json:"user_id"`
	CallerName  string    `json:"caller_name"`
	Muted       bool      `json:"muted"`
	Talking     bool      `json:"talking"`
	Locked      bool      `json:"locked"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ChatEntry is one chat message retained by a session actor.
type ChatEntry struct {
	UserID string    `json:"user_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// LockSettings holds the per-meeting participant restrictions.
type LockSettings struct {
	DisableMic         bool `json:"disable_mic"`
	DisableCam         bool `json:"disable_cam"`
	DisableChat        bool `json:"disable_chat"`
	LockedLayout       bool `json:"locked_layout"`
	LockOnJoin         bool `json:"lock_on_join"`
	LockSettingsLocked bool `json:"lock_settings_locked"`
}
