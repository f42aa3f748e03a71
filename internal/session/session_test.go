package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
)

// chanGateway hands every outbound message to the test goroutine.
type chanGateway struct {
	out chan messages.Message
}

func newChanGateway() *chanGateway {
	return &chanGateway{out: make(chan messages.Message, 64)}
}

func (g *chanGateway) Send(msg messages.Message) { g.out <- msg }

func (g *chanGateway) next(t *testing.T) messages.Message {
	t.Helper()
	select {
	case msg := <-g.out:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no outbound message within a second")
		return nil
	}
}

type stubValidator struct {
	valid bool
}

func (v *stubValidator) ValidateJoinToken(token, meetingID, userID string) bool {
	return v.valid
}

func newTestSession(t *testing.T, gw Gateway, tokens TokenValidator, maxChat int) *Session {
	t.Helper()
	s := New(models.Meeting{ID: "m1", VoiceBridge: "70001"}, gw, tokens, maxChat, nil, nil)
	t.Cleanup(s.Stop)
	return s
}

func TestSession_ParticipantLifecycle(t *testing.T) {
	gw := newChanGateway()
	s := newTestSession(t, gw, nil, 0)

	s.Deliver(messages.UserJoinedVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", CallerName: "alice"})
	s.Deliver(messages.UserMutedInVoiceConf{VoiceConf: "70001", VoiceUserID: "v1", Muted: true})
	s.Deliver(messages.GetUsers{MeetingID: "m1"})

	reply, ok := gw.next(t).(messages.GetUsersReply)
	require.True(t, ok)
	require.Len(t, reply.Users, 1)
	assert.Equal(t, "alice", reply.Users[0].CallerName)
	assert.True(t, reply.Users[0].Muted)

	s.Deliver(messages.UserLeftVoiceConf{VoiceConf: "70001", VoiceUserID: "v1"})
	s.Deliver(messages.GetUsers{MeetingID: "m1"})

	reply, ok = gw.next(t).(messages.GetUsersReply)
	require.True(t, ok)
	assert.Empty(t, reply.Users)
}

func TestSession_ChatHistoryCapped(t *testing.T) {
	gw := newChanGateway()
	s := newTestSession(t, gw, nil, 3)

	texts := []string{"one", "two", "three", "four", "five"}
	for _, txt := range texts {
		s.Deliver(messages.SendChatMessage{MeetingID: "m1", UserID: "u1", Text: txt})
		posted, ok := gw.next(t).(messages.ChatMessagePosted)
		require.True(t, ok)
		assert.Equal(t, txt, posted.Text)
	}

	s.Deliver(messages.GetChatHistory{MeetingID: "m1"})
	reply, ok := gw.next(t).(messages.GetChatHistoryReply)
	require.True(t, ok)
	require.Len(t, reply.History, 3, "history keeps only the newest entries")
	assert.Equal(t, "three", reply.History[0].Text)
	assert.Equal(t, "five", reply.History[2].Text)
}

func TestSession_PresenterAssignment(t *testing.T) {
	gw := newChanGateway()
	s := newTestSession(t, gw, nil, 0)

	s.Deliver(messages.AssignPresenter{MeetingID: "m1", UserID: "u7", AssignedBy: "mod"})
	assigned, ok := gw.next(t).(messages.PresenterAssigned)
	require.True(t, ok)
	assert.Equal(t, "u7", assigned.UserID)

	s.Deliver(messages.GetPresentationInfo{MeetingID: "m1"})
	info, ok := gw.next(t).(messages.GetPresentationInfoReply)
	require.True(t, ok)
	assert.Equal(t, "u7", info.PresenterID)
}

func TestSession_ValidateAuthToken(t *testing.T) {
	gw := newChanGateway()
	s := newTestSession(t, gw, &stubValidator{valid: true}, 0)

	replyCh := s.Ask(messages.ValidateAuthToken{
		MeetingID: "m1", UserID: "u1", Token: "tok", CorrelationID: "c1",
	})

	select {
	case msg := <-replyCh:
		reply, ok := msg.(messages.ValidateAuthTokenReply)
		require.True(t, ok)
		assert.True(t, reply.Valid)
		assert.Equal(t, "c1", reply.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("no probe reply within a second")
	}

	// The same verdict also goes out on the normal path.
	out, ok := gw.next(t).(messages.ValidateAuthTokenReply)
	require.True(t, ok)
	assert.True(t, out.Valid)
}

func TestSession_ValidateAuthTokenInvalid(t *testing.T) {
	gw := newChanGateway()
	s := newTestSession(t, gw, &stubValidator{valid: false}, 0)

	replyCh := s.Ask(messages.ValidateAuthToken{MeetingID: "m1", UserID: "u1", Token: "bad"})

	select {
	case msg := <-replyCh:
		reply, ok := msg.(messages.ValidateAuthTokenReply)
		require.True(t, ok)
		assert.False(t, reply.Valid)
	case <-time.After(time.Second):
		t.Fatal("no probe reply within a second")
	}
}

func TestSession_StopIdempotent(t *testing.T) {
	gw := newChanGateway()
	s := New(models.Meeting{ID: "m1"}, gw, nil, 0, nil, nil)

	s.Stop()
	s.Stop()
}
