package recording

import (
	"time"

	"github.com/conclave-live/backend/internal/messages"
)

// EventFor maps a recordable voice message to its canonical event, injecting
// the meeting id resolved by the supervisor. The wire message only knows the
// voice bridge, so the meeting id always comes from the caller.
// Returns ok=false for message kinds that never produce a recording event.
func EventFor(meetingID string, msg messages.Message) (Event, bool) {
	now := time.Now().UnixMilli()
	switch m := msg.(type) {
	case messages.UserJoinedVoiceConf:
		return UserJoinedEvent{
			MeetingID:   meetingID,
			Timestamp:   now,
			VoiceUserID: m.VoiceUserID,
			UserID:      m.UserID,
			CallerName:  m.CallerName,
			Muted:       m.Muted,
			Talking:     m.Talking,
			Locked:      m.Locked,
		}, true
	case messages.UserLeftVoiceConf:
		return UserLeftEvent{
			MeetingID:   meetingID,
			Timestamp:   now,
			VoiceUserID: m.VoiceUserID,
		}, true
	case messages.UserLockedInVoiceConf:
		return UserLockedEvent{
			MeetingID:   meetingID,
			Timestamp:   now,
			VoiceUserID: m.VoiceUserID,
			Locked:      m.Locked,
		}, true
	case messages.UserMutedInVoiceConf:
		return UserMutedEvent{
			MeetingID:   meetingID,
			Timestamp:   now,
			VoiceUserID: m.VoiceUserID,
			Muted:       m.Muted,
		}, true
	case messages.UserTalkingInVoiceConf:
		return UserTalkingEvent{
			MeetingID:   meetingID,
			Timestamp:   now,
			VoiceUserID: m.VoiceUserID,
			Talking:     m.Talking,
		}, true
	case messages.VoiceRecordingStarted:
		return RecordingStartedEvent{
			MeetingID:     meetingID,
			Timestamp:     now,
			Filename:      m.Filename,
			FileTimestamp: m.Timestamp,
			Record:        m.Record,
		}, true
	default:
		return nil, false
	}
}
