package meeting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
	"github.com/conclave-live/backend/internal/recording"
	"github.com/conclave-live/backend/pkg/utils"
)

const (
	// DefaultAskTimeout bounds the auth-validation exchange toward a session.
	DefaultAskTimeout = 5 * time.Second
	// DefaultMailboxSize is the supervisor mailbox capacity.
	DefaultMailboxSize = 1024
)

// Gateway delivers outbound notifications toward connected clients. Assumed
// non-blocking and best-effort from the supervisor's viewpoint.
type Gateway interface {
	Send(msg messages.Message)
}

// Recorder accepts recordable events for durable persistence. Must not block
// the caller past the point of handoff.
type Recorder interface {
	Record(meetingID string, ev recording.Event)
}

// HandlerFactory builds the session actor for a newly created meeting.
type HandlerFactory func(m models.Meeting) Handler

// LifecycleLog persists meeting create/destroy transitions. Best-effort: the
// supervisor never blocks its loop on it and ignores failures beyond logging.
type LifecycleLog interface {
	LogCreated(ctx context.Context, m models.Meeting) error
	LogDestroyed(ctx context.Context, meetingID string) error
}

// Archiver schedules the journal of a destroyed recorded meeting for upload.
type Archiver interface {
	EnqueueJournalArchive(ctx context.Context, meetingID string) error
}

// Supervisor owns the registry of active meetings and routes every inbound
// message. A single goroutine drains the mailbox, so lifecycle mutation and
// routing never race; the only asynchronous exchange is the bounded
// auth-validation ask toward a session actor.
type Supervisor struct {
	registry   *Registry
	gateway    Gateway
	recorder   Recorder
	factory    HandlerFactory
	logger     *zap.Logger
	askTimeout time.Duration

	lifecycleLog LifecycleLog
	archiver     Archiver

	mailbox chan messages.Message
	done    chan struct{}
}

// NewSupervisor creates a supervisor. Run must be called to start dispatch.
func NewSupervisor(registry *Registry, gateway Gateway, recorder Recorder, factory HandlerFactory, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		registry:   registry,
		gateway:    gateway,
		recorder:   recorder,
		factory:    factory,
		logger:     logger,
		askTimeout: DefaultAskTimeout,
		mailbox:    make(chan messages.Message, DefaultMailboxSize),
		done:       make(chan struct{}),
	}
}

// SetAskTimeout overrides the bounded wait of the liveness probe.
func (s *Supervisor) SetAskTimeout(d time.Duration) { s.askTimeout = d }

// SetMailboxSize resizes the mailbox. Only valid before Run.
func (s *Supervisor) SetMailboxSize(n int) {
	if n > 0 {
		s.mailbox = make(chan messages.Message, n)
	}
}

// SetLifecycleLog attaches the create/destroy persistence collaborator.
func (s *Supervisor) SetLifecycleLog(l LifecycleLog) { s.lifecycleLog = l }

// SetArchiver attaches the journal archive scheduler.
func (s *Supervisor) SetArchiver(a Archiver) { s.archiver = a }

// Registry exposes the registry for read-only consumers (HTTP handlers).
func (s *Supervisor) Registry() *Registry { return s.registry }

// Submit enqueues an inbound message for dispatch. Never blocks: when the
// mailbox is full the message is dropped and logged.
func (s *Supervisor) Submit(msg messages.Message) {
	select {
	case s.mailbox <- msg:
	default:
		s.logger.Warn("supervisor mailbox full, dropping message", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Run drains the mailbox until ctx is cancelled, then stops every session
// actor. Messages already queued when ctx ends are discarded.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case msg := <-s.mailbox:
			s.dispatch(msg)
		}
	}
}

// Done is closed once Run has returned.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

func (s *Supervisor) stopAll() {
	for _, rm := range s.registry.ListAll() {
		s.registry.Remove(rm.ID)
		rm.handler.Stop()
	}
	s.logger.Info("supervisor stopped")
}

// dispatch classifies one inbound message. First match wins; lifecycle and
// keep-alive never touch the generic path.
func (s *Supervisor) dispatch(msg messages.Message) {
	switch m := msg.(type) {
	case messages.CreateMeeting:
		s.handleCreate(m)
	case messages.DestroyMeeting:
		s.handleDestroy(m)
	case messages.KeepAlive:
		s.gateway.Send(messages.KeepAliveReply{AliveID: m.AliveID})
	case messages.GetAllMeetings:
		s.handleGetAllMeetings()
	case messages.VoiceConnectedToGlobalAudio, messages.VoiceDisconnectedFromGlobalAudio:
		// Bridge-keyed forward without a recording side effect. Unmatched
		// bridges are dropped with no compensating reply.
		vm := msg.(messages.VoiceConfMessage)
		if rm := s.registry.FindByVoiceBridge(vm.VoiceBridge()); rm != nil {
			rm.handler.Deliver(msg)
		}
	case messages.ValidateAuthToken:
		s.handleValidateAuthToken(m)
	default:
		if vm, ok := msg.(messages.VoiceConfMessage); ok {
			s.routeVoice(vm)
			return
		}
		if mm, ok := msg.(messages.MeetingMessage); ok {
			s.routeMeeting(mm)
			return
		}
		s.logger.Warn("unroutable message", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// routeVoice forwards a bridge-keyed message and, for recordable kinds, hands
// the derived event to the recorder. The forward always precedes the event.
func (s *Supervisor) routeVoice(vm messages.VoiceConfMessage) {
	rm := s.registry.FindByVoiceBridge(vm.VoiceBridge())
	if rm == nil {
		s.logger.Debug("no meeting for voice bridge", zap.String("voice_bridge", vm.VoiceBridge()))
		return
	}
	rm.handler.Deliver(vm)
	if ev, ok := recording.EventFor(rm.ID, vm); ok {
		s.recorder.Record(rm.ID, ev)
	}
}

// routeMeeting forwards a meeting-scoped message verbatim. Unknown ids are
// logged and dropped; only auth validation has a not-found reply contract.
func (s *Supervisor) routeMeeting(mm messages.MeetingMessage) {
	rm := s.registry.Get(mm.Meeting())
	if rm == nil {
		s.logger.Info("message for unknown meeting dropped",
			zap.String("meeting_id", mm.Meeting()), zap.String("type", fmt.Sprintf("%T", mm)))
		return
	}
	rm.handler.Deliver(mm)
}

// handleValidateAuthToken forwards through the liveness probe: a bounded ask
// whose continuation runs off the dispatch loop. A session that answers in
// time carries the real verdict on its own reply path; one that does not gets
// exactly one compensating negative reply.
func (s *Supervisor) handleValidateAuthToken(m messages.ValidateAuthToken) {
	rm := s.registry.Get(m.MeetingID)
	if rm == nil {
		s.gateway.Send(messages.ValidateAuthTokenReply{
			MeetingID:     m.MeetingID,
			UserID:        m.UserID,
			Token:         m.Token,
			Valid:         false,
			CorrelationID: m.CorrelationID,
			SessionID:     m.SessionID,
		})
		return
	}

	replyCh := rm.handler.Ask(m)
	timeout := s.askTimeout
	go func() {
		select {
		case <-replyCh:
			// Liveness proven; the session's own reply path carries the verdict.
		case <-time.After(timeout):
			s.logger.Warn("auth validation timed out, session unresponsive",
				zap.String("meeting_id", m.MeetingID), zap.String("user_id", m.UserID))
			s.gateway.Send(messages.ValidateAuthTokenTimedOut{
				MeetingID:     m.MeetingID,
				UserID:        m.UserID,
				Token:         m.Token,
				Valid:         false,
				CorrelationID: m.CorrelationID,
				SessionID:     m.SessionID,
			})
		}
	}()
}

// handleGetAllMeetings replies with the lightweight list and schedules four
// detail requests per meeting back through the normal dispatch path for the
// external integration client.
func (s *Supervisor) handleGetAllMeetings() {
	all := s.registry.ListAll()
	infos := make([]models.MeetingInfo, 0, len(all))
	for _, rm := range all {
		infos = append(infos, models.MeetingInfo{
			ID:          rm.ID,
			ExternalID:  rm.ExternalID,
			Name:        rm.Name,
			VoiceBridge: rm.VoiceBridge,
			Record:      rm.Record,
		})
		s.Submit(messages.GetUsers{MeetingID: rm.ID})
		s.Submit(messages.GetPresentationInfo{MeetingID: rm.ID})
		s.Submit(messages.GetChatHistory{MeetingID: rm.ID})
		s.Submit(messages.GetLockSettings{MeetingID: rm.ID})
	}
	s.gateway.Send(messages.GetAllMeetingsReply{Meetings: infos})
}

func (s *Supervisor) handleCreate(m messages.CreateMeeting) {
	if s.registry.Get(m.MeetingID) != nil {
		s.logger.Info("meeting already exists, ignoring create", zap.String("meeting_id", m.MeetingID))
		return
	}
	if other := s.registry.FindByVoiceBridge(m.VoiceBridge); other != nil {
		s.logger.Warn("voice bridge already in use, rejecting create",
			zap.String("meeting_id", m.MeetingID),
			zap.String("voice_bridge", m.VoiceBridge),
			zap.String("held_by", other.ID))
		return
	}

	createTime := m.CreateTime
	if createTime.IsZero() {
		createTime = time.Now()
	}
	modHash, err := utils.HashPassword(m.ModeratorPass)
	if err != nil {
		s.logger.Error("hash moderator pass", zap.Error(err), zap.String("meeting_id", m.MeetingID))
		return
	}
	viewHash, err := utils.HashPassword(m.ViewerPass)
	if err != nil {
		s.logger.Error("hash viewer pass", zap.Error(err), zap.String("meeting_id", m.MeetingID))
		return
	}

	meeting := models.Meeting{
		ID:                 m.MeetingID,
		ExternalID:         m.ExternalID,
		Name:               m.Name,
		Record:             m.Record,
		VoiceBridge:        m.VoiceBridge,
		DurationMinutes:    m.DurationMinutes,
		AutoStartRecording: m.AutoStartRecording,
		ModeratorPassHash:  modHash,
		ViewerPassHash:     viewHash,
		CreatedAt:          createTime,
		CreateDate:         createTime.Format(time.RFC1123),
	}
	rm := &RunningMeeting{Meeting: meeting, handler: s.factory(meeting)}
	if !s.registry.InsertIfAbsent(rm) {
		rm.handler.Stop()
		s.logger.Info("meeting already exists, ignoring create", zap.String("meeting_id", m.MeetingID))
		return
	}

	if s.lifecycleLog != nil {
		go func() {
			if err := s.lifecycleLog.LogCreated(context.Background(), meeting); err != nil {
				s.logger.Error("log meeting created", zap.Error(err), zap.String("meeting_id", meeting.ID))
			}
		}()
	}

	s.gateway.Send(messages.MeetingCreated{
		MeetingID:       meeting.ID,
		ExternalID:      meeting.ExternalID,
		Name:            meeting.Name,
		Record:          meeting.Record,
		VoiceBridge:     meeting.VoiceBridge,
		DurationMinutes: meeting.DurationMinutes,
		ModeratorPass:   m.ModeratorPass,
		ViewerPass:      m.ViewerPass,
		CreateTime:      meeting.CreatedAt,
		CreateDate:      meeting.CreateDate,
	})

	// Initialization order matters: recording flag before the timer.
	rm.handler.Deliver(messages.InitializeMeeting{MeetingID: meeting.ID, Record: meeting.Record})
	rm.handler.Deliver(messages.StartMeetingTimer{MeetingID: meeting.ID, DurationMinutes: meeting.DurationMinutes})

	s.logger.Info("meeting created",
		zap.String("meeting_id", meeting.ID),
		zap.String("voice_bridge", meeting.VoiceBridge),
		zap.Bool("record", meeting.Record))
}

// handleDestroy removes the meeting from the registry before any teardown
// notification goes out, so the id stops resolving the moment teardown
// begins. The destroyed notification is always last.
func (s *Supervisor) handleDestroy(m messages.DestroyMeeting) {
	rm := s.registry.Remove(m.MeetingID)
	if rm == nil {
		s.logger.Info("destroy for unknown meeting, ignoring", zap.String("meeting_id", m.MeetingID))
		return
	}

	s.gateway.Send(messages.EndAndKickAll{MeetingID: rm.ID, Record: rm.Record})
	s.gateway.Send(messages.DisconnectAllUsers{MeetingID: rm.ID})
	s.gateway.Send(messages.MeetingDestroyed{MeetingID: rm.ID})

	if rm.Record && s.archiver != nil {
		meetingID := rm.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.archiver.EnqueueJournalArchive(ctx, meetingID); err != nil {
				s.logger.Error("enqueue journal archive", zap.Error(err), zap.String("meeting_id", meetingID))
			}
		}()
	}
	if s.lifecycleLog != nil {
		meetingID := rm.ID
		go func() {
			if err := s.lifecycleLog.LogDestroyed(context.Background(), meetingID); err != nil {
				s.logger.Error("log meeting destroyed", zap.Error(err), zap.String("meeting_id", meetingID))
			}
		}()
	}

	rm.handler.Stop()
	s.logger.Info("meeting destroyed", zap.String("meeting_id", rm.ID))
}
