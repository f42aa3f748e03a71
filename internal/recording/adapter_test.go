package recording

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-live/backend/internal/messages"
)

func TestEventFor_RecordableKinds(t *testing.T) {
	tests := []struct {
		name string
		msg  messages.Message
		kind string
	}{
		{
			name: "user joined",
			msg:  messages.UserJoinedVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", CallerName: "alice", Muted: true},
			kind: "user_joined_voice",
		},
		{
			name: "user left",
			msg:  messages.UserLeftVoiceConf{VoiceConf: "70001", VoiceUserID: "v1"},
			kind: "user_left_voice",
		},
		{
			name: "user locked",
			msg:  messages.UserLockedInVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", Locked: true},
			kind: "user_locked_voice",
		},
		{
			name: "user muted",
			msg:  messages.UserMutedInVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", Muted: true},
			kind: "user_muted_voice",
		},
		{
			name: "user talking",
			msg:  messages.UserTalkingInVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", Talking: true},
			kind: "user_talking_voice",
		},
		{
			name: "recording started",
			msg:  messages.VoiceRecordingStarted{VoiceConf: "70001", Filename: "conf.wav", Record: true},
			kind: "recording_started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := EventFor("m1", tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ev.Kind())
		})
	}
}

func TestEventFor_InjectsMeetingID(t *testing.T) {
	ev, ok := EventFor("m1", messages.UserJoinedVoiceConf{VoiceConf: "70001", VoiceUserID: "v1"})
	require.True(t, ok)

	joined, ok := ev.(UserJoinedEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", joined.MeetingID, "event carries the matched meeting id, not the bridge")
	assert.Positive(t, joined.Timestamp)
}

func TestEventFor_RecordingStartedFields(t *testing.T) {
	ev, ok := EventFor("m1", messages.VoiceRecordingStarted{
		VoiceConf: "70001",
		Filename:  "conf-70001.wav",
		Timestamp: "1693500000",
		Record:    true,
	})
	require.True(t, ok)

	started, ok := ev.(RecordingStartedEvent)
	require.True(t, ok)
	assert.Equal(t, "conf-70001.wav", started.Filename)
	assert.Equal(t, "1693500000", started.FileTimestamp)
	assert.True(t, started.Record)
}

func TestEventFor_NonRecordableKinds(t *testing.T) {
	nonRecordable := []messages.Message{
		messages.VoiceConnectedToGlobalAudio{VoiceConf: "70001", UserID: "u1"},
		messages.VoiceDisconnectedFromGlobalAudio{VoiceConf: "70001", UserID: "u1"},
		messages.SendChatMessage{MeetingID: "m1", UserID: "u1", Text: "hi"},
		messages.KeepAlive{AliveID: "1"},
	}
	for _, msg := range nonRecordable {
		ev, ok := EventFor("m1", msg)
		assert.False(t, ok, "%T must not produce a recording event", msg)
		assert.Nil(t, ev)
	}
}
