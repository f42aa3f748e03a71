package meeting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
	"github.com/conclave-live/backend/internal/recording"
)

// stubHandler records delivered and asked messages. An optional answer
// function decides whether Ask gets a reply.
type stubHandler struct {
	mu        sync.Mutex
	delivered []messages.Message
	asked     []messages.Message
	stopped   bool
	answer    func(msg messages.Message) (messages.Message, bool)
}

func (h *stubHandler) Deliver(msg messages.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delivered = append(h.delivered, msg)
}

func (h *stubHandler) Ask(msg messages.Message) <-chan messages.Message {
	h.mu.Lock()
	h.asked = append(h.asked, msg)
	answer := h.answer
	h.mu.Unlock()

	ch := make(chan messages.Message, 1)
	if answer != nil {
		if reply, ok := answer(msg); ok {
			ch <- reply
		}
	}
	return ch
}

func (h *stubHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
}

func (h *stubHandler) deliveredMsgs() []messages.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]messages.Message, len(h.delivered))
	copy(out, h.delivered)
	return out
}

func (h *stubHandler) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// stubGateway records sent messages; onSend (if set) observes each send.
type stubGateway struct {
	mu     sync.Mutex
	sent   []messages.Message
	onSend func(msg messages.Message)
}

func (g *stubGateway) Send(msg messages.Message) {
	g.mu.Lock()
	g.sent = append(g.sent, msg)
	onSend := g.onSend
	g.mu.Unlock()
	if onSend != nil {
		onSend(msg)
	}
}

func (g *stubGateway) sentMsgs() []messages.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]messages.Message, len(g.sent))
	copy(out, g.sent)
	return out
}

func (g *stubGateway) countOf(match func(messages.Message) bool) int {
	n := 0
	for _, m := range g.sentMsgs() {
		if match(m) {
			n++
		}
	}
	return n
}

type recordedEvent struct {
	meetingID string
	event     recording.Event
}

type stubRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *stubRecorder) Record(meetingID string, ev recording.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{meetingID: meetingID, event: ev})
}

func (r *stubRecorder) recorded() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

type testFixture struct {
	supervisor *Supervisor
	registry   *Registry
	gateway    *stubGateway
	recorder   *stubRecorder

	mu       sync.Mutex
	handlers map[string]*stubHandler
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		registry: NewRegistry(),
		gateway:  &stubGateway{},
		recorder: &stubRecorder{},
		handlers: map[string]*stubHandler{},
	}
	factory := func(m models.Meeting) Handler {
		h := &stubHandler{}
		f.mu.Lock()
		f.handlers[m.ID] = h
		f.mu.Unlock()
		return h
	}
	f.supervisor = NewSupervisor(f.registry, f.gateway, f.recorder, factory, nil)
	return f
}

func (f *testFixture) handler(meetingID string) *stubHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[meetingID]
}

func createMsg(id, bridge string) messages.CreateMeeting {
	return messages.CreateMeeting{
		MeetingID:     id,
		Name:          "standup",
		VoiceBridge:   bridge,
		ModeratorPass: "mp",
		ViewerPass:    "vp",
	}
}

func TestSupervisor_CreateMeeting(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(createMsg("m1", "70001"))

	rm := f.registry.Get("m1")
	require.NotNil(t, rm)
	assert.Equal(t, "70001", rm.VoiceBridge)
	assert.NotEmpty(t, rm.ModeratorPassHash)
	assert.NotEqual(t, "mp", rm.ModeratorPassHash, "password must be stored hashed")

	// Created announcement carries the plaintext passwords from the request.
	sent := f.gateway.sentMsgs()
	require.Len(t, sent, 1)
	created, ok := sent[0].(messages.MeetingCreated)
	require.True(t, ok)
	assert.Equal(t, "m1", created.MeetingID)
	assert.Equal(t, "mp", created.ModeratorPass)
	assert.Equal(t, "vp", created.ViewerPass)

	// Session initialization: record flag before the timer.
	h := f.handler("m1")
	require.NotNil(t, h)
	delivered := h.deliveredMsgs()
	require.Len(t, delivered, 2)
	assert.IsType(t, messages.InitializeMeeting{}, delivered[0])
	assert.IsType(t, messages.StartMeetingTimer{}, delivered[1])
}

func TestSupervisor_CreateDuplicateIgnored(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(createMsg("m1", "70001"))
	f.supervisor.dispatch(createMsg("m1", "70009"))

	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, "70001", f.registry.Get("m1").VoiceBridge)
	created := f.gateway.countOf(func(m messages.Message) bool {
		_, ok := m.(messages.MeetingCreated)
		return ok
	})
	assert.Equal(t, 1, created, "duplicate create must not announce again")
}

func TestSupervisor_CreateVoiceBridgeCollisionRejected(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(createMsg("m1", "70001"))
	f.supervisor.dispatch(createMsg("m2", "70001"))

	assert.Equal(t, 1, f.registry.Len())
	assert.Nil(t, f.registry.Get("m2"))
}

func TestSupervisor_DestroyOrdering(t *testing.T) {
	f := newFixture(t)
	f.supervisor.dispatch(createMsg("m1", "70001"))
	f.gateway.mu.Lock()
	f.gateway.sent = nil
	f.gateway.mu.Unlock()

	// The id must stop resolving before any teardown notification goes out.
	f.gateway.onSend = func(msg messages.Message) {
		assert.Nil(t, f.registry.Get("m1"), "registry entry must be gone before %T is sent", msg)
	}

	f.supervisor.dispatch(messages.DestroyMeeting{MeetingID: "m1"})

	sent := f.gateway.sentMsgs()
	require.Len(t, sent, 3)
	assert.IsType(t, messages.EndAndKickAll{}, sent[0])
	assert.IsType(t, messages.DisconnectAllUsers{}, sent[1])
	assert.IsType(t, messages.MeetingDestroyed{}, sent[2])
	assert.True(t, f.handler("m1").isStopped())
}

func TestSupervisor_DestroyUnknownIgnored(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(messages.DestroyMeeting{MeetingID: "ghost"})

	assert.Empty(t, f.gateway.sentMsgs())
}

func TestSupervisor_KeepAliveEcho(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(messages.KeepAlive{AliveID: "ka-42"})

	sent := f.gateway.sentMsgs()
	require.Len(t, sent, 1)
	reply, ok := sent[0].(messages.KeepAliveReply)
	require.True(t, ok)
	assert.Equal(t, "ka-42", reply.AliveID)
}

func TestSupervisor_VoiceRoutingRecordsEvent(t *testing.T) {
	f := newFixture(t)
	f.supervisor.dispatch(createMsg("m1", "70001"))

	f.supervisor.dispatch(messages.UserJoinedVoiceConf{
		VoiceConf:   "70001",
		VoiceUserID: "v9",
		CallerName:  "alice",
	})

	h := f.handler("m1")
	delivered := h.deliveredMsgs()
	require.Len(t, delivered, 3, "init, timer, then the voice message")
	joined, ok := delivered[2].(messages.UserJoinedVoiceConf)
	require.True(t, ok)
	assert.Equal(t, "v9", joined.VoiceUserID)

	events := f.recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "m1", events[0].meetingID)
	ev, ok := events[0].event.(recording.UserJoinedEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", ev.MeetingID, "event carries the meeting id, not the bridge")
	assert.Equal(t, "alice", ev.CallerName)
}

func TestSupervisor_UnmatchedVoiceBridgeDropped(t *testing.T) {
	f := newFixture(t)
	f.supervisor.dispatch(createMsg("m1", "70001"))

	f.supervisor.dispatch(messages.UserLeftVoiceConf{VoiceConf: "99999", VoiceUserID: "v1"})

	assert.Len(t, f.handler("m1").deliveredMsgs(), 2, "only init and timer")
	assert.Empty(t, f.recorder.recorded())
}

func TestSupervisor_GlobalAudioForwardOnly(t *testing.T) {
	f := newFixture(t)
	f.supervisor.dispatch(createMsg("m1", "70001"))

	f.supervisor.dispatch(messages.VoiceConnectedToGlobalAudio{VoiceConf: "70001", UserID: "u1"})
	f.supervisor.dispatch(messages.VoiceDisconnectedFromGlobalAudio{VoiceConf: "70001", UserID: "u1"})

	h := f.handler("m1")
	delivered := h.deliveredMsgs()
	require.Len(t, delivered, 4)
	assert.IsType(t, messages.VoiceConnectedToGlobalAudio{}, delivered[2])
	assert.IsType(t, messages.VoiceDisconnectedFromGlobalAudio{}, delivered[3])
	assert.Empty(t, f.recorder.recorded(), "global audio attach/detach is never recorded")
}

func TestSupervisor_ValidateAuthTokenUnknownMeeting(t *testing.T) {
	f := newFixture(t)

	f.supervisor.dispatch(messages.ValidateAuthToken{
		MeetingID: "ghost", UserID: "u1", Token: "tok", CorrelationID: "c1",
	})

	sent := f.gateway.sentMsgs()
	require.Len(t, sent, 1)
	reply, ok := sent[0].(messages.ValidateAuthTokenReply)
	require.True(t, ok)
	assert.False(t, reply.Valid)
	assert.Equal(t, "c1", reply.CorrelationID)
}

func TestSupervisor_ValidateAuthTokenTimesOut(t *testing.T) {
	f := newFixture(t)
	f.supervisor.SetAskTimeout(20 * time.Millisecond)
	f.supervisor.dispatch(createMsg("m1", "70001"))
	// Handler never answers the ask.

	f.supervisor.dispatch(messages.ValidateAuthToken{
		MeetingID: "m1", UserID: "u1", Token: "tok", CorrelationID: "c1", SessionID: "s1",
	})

	require.Eventually(t, func() bool {
		return f.gateway.countOf(func(m messages.Message) bool {
			_, ok := m.(messages.ValidateAuthTokenTimedOut)
			return ok
		}) == 1
	}, time.Second, 5*time.Millisecond)

	for _, m := range f.gateway.sentMsgs() {
		if to, ok := m.(messages.ValidateAuthTokenTimedOut); ok {
			assert.False(t, to.Valid)
			assert.Equal(t, "c1", to.CorrelationID)
			assert.Equal(t, "s1", to.SessionID)
		}
	}

	// Exactly one compensating reply, even well past the bound.
	time.Sleep(60 * time.Millisecond)
	timedOut := f.gateway.countOf(func(m messages.Message) bool {
		_, ok := m.(messages.ValidateAuthTokenTimedOut)
		return ok
	})
	assert.Equal(t, 1, timedOut)
}

func TestSupervisor_ValidateAuthTokenAnsweredInTime(t *testing.T) {
	f := newFixture(t)
	f.supervisor.SetAskTimeout(20 * time.Millisecond)
	f.supervisor.dispatch(createMsg("m1", "70001"))
	f.handler("m1").answer = func(msg messages.Message) (messages.Message, bool) {
		m := msg.(messages.ValidateAuthToken)
		return messages.ValidateAuthTokenReply{MeetingID: m.MeetingID, UserID: m.UserID, Valid: true}, true
	}

	f.supervisor.dispatch(messages.ValidateAuthToken{MeetingID: "m1", UserID: "u1", Token: "tok"})

	time.Sleep(60 * time.Millisecond)
	timedOut := f.gateway.countOf(func(m messages.Message) bool {
		_, ok := m.(messages.ValidateAuthTokenTimedOut)
		return ok
	})
	assert.Zero(t, timedOut, "an answered probe must not emit the compensating reply")
}

func TestSupervisor_GetAllMeetings(t *testing.T) {
	f := newFixture(t)
	f.supervisor.dispatch(createMsg("m1", "70001"))
	f.supervisor.dispatch(createMsg("m2", "70002"))

	f.supervisor.dispatch(messages.GetAllMeetings{})

	var reply messages.GetAllMeetingsReply
	found := false
	for _, m := range f.gateway.sentMsgs() {
		if r, ok := m.(messages.GetAllMeetingsReply); ok {
			reply = r
			found = true
		}
	}
	require.True(t, found)
	assert.Len(t, reply.Meetings, 2)

	// Four detail requests per meeting go back through the mailbox.
	assert.Equal(t, 8, len(f.supervisor.mailbox))
}

func TestSupervisor_SubmitDropsWhenFull(t *testing.T) {
	f := newFixture(t)
	f.supervisor.SetMailboxSize(1)

	f.supervisor.Submit(messages.KeepAlive{AliveID: "1"})
	f.supervisor.Submit(messages.KeepAlive{AliveID: "2"})

	assert.Equal(t, 1, len(f.supervisor.mailbox))
}

func TestSupervisor_RunStopsSessionsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	go f.supervisor.Run(ctx)

	f.supervisor.Submit(createMsg("m1", "70001"))
	require.Eventually(t, func() bool { return f.registry.Get("m1") != nil }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-f.supervisor.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.Zero(t, f.registry.Len())
	assert.True(t, f.handler("m1").isStopped())
}
