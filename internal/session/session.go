// Package session implements the per-meeting actor: one goroutine with a
// bounded mailbox that owns participant, chat and presentation state for a
// single meeting. The supervisor only ever holds its address.
package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
)

// DefaultMailboxSize is the session mailbox capacity.
const DefaultMailboxSize = 256

// Gateway delivers this session's outbound replies and broadcasts.
type Gateway interface {
	Send(msg messages.Message)
}

// TokenValidator decides whether a join token is valid for a user in a meeting.
type TokenValidator interface {
	ValidateJoinToken(token, meetingID, userID string) bool
}

type envelope struct {
	msg   messages.Message
	reply chan<- messages.Message
}

// Session is one meeting's actor. Create with New, which starts the loop.
type Session struct {
	meeting models.Meeting
	gateway Gateway
	tokens  TokenValidator
	logger  *zap.Logger

	mailbox chan envelope
	quit    chan struct{}
	stop    sync.Once

	// onExpire is invoked (off the loop) when the scheduled duration elapses.
	onExpire func(meetingID string)

	// state below is owned by the loop goroutine
	record       bool
	participants map[string]*models.Participant
	listenOnly   map[string]struct{}
	chat         []models.ChatEntry
	maxChat      int
	presenterID  string
	currentSlide int
	lockSettings models.LockSettings
	expireTimer  *time.Timer
}

// New creates a session actor for the meeting and starts its loop.
// onExpire may be nil; when set it fires once if the meeting outlives its
// scheduled duration.
func New(m models.Meeting, gateway Gateway, tokens TokenValidator, maxChat int, onExpire func(meetingID string), logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxChat <= 0 {
		maxChat = 500
	}
	s := &Session{
		meeting:      m,
		gateway:      gateway,
		tokens:       tokens,
		logger:       logger,
		mailbox:      make(chan envelope, DefaultMailboxSize),
		quit:         make(chan struct{}),
		onExpire:     onExpire,
		record:       m.Record,
		participants: make(map[string]*models.Participant),
		listenOnly:   make(map[string]struct{}),
		maxChat:      maxChat,
	}
	go s.loop()
	return s
}

// Deliver enqueues a message without blocking; on a full mailbox the message
// is dropped and logged, which the supervisor's probe will eventually surface.
func (s *Session) Deliver(msg messages.Message) {
	select {
	case s.mailbox <- envelope{msg: msg}:
	default:
		s.logger.Warn("session mailbox full, dropping message",
			zap.String("meeting_id", s.meeting.ID), zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Ask enqueues a message with a reply channel. The channel receives at most
// one reply; when the mailbox is full the envelope is dropped and the caller's
// bounded wait expires on its own.
func (s *Session) Ask(msg messages.Message) <-chan messages.Message {
	reply := make(chan messages.Message, 1)
	select {
	case s.mailbox <- envelope{msg: msg, reply: reply}:
	default:
		s.logger.Warn("session mailbox full, dropping ask",
			zap.String("meeting_id", s.meeting.ID), zap.String("type", fmt.Sprintf("%T", msg)))
	}
	return reply
}

// Stop terminates the loop. Idempotent.
func (s *Session) Stop() {
	s.stop.Do(func() { close(s.quit) })
}

func (s *Session) loop() {
	defer func() {
		if s.expireTimer != nil {
			s.expireTimer.Stop()
		}
	}()
	for {
		select {
		case <-s.quit:
			return
		case env := <-s.mailbox:
			s.handle(env)
		}
	}
}

func (s *Session) handle(env envelope) {
	switch m := env.msg.(type) {
	case messages.InitializeMeeting:
		s.record = m.Record
	case messages.StartMeetingTimer:
		s.startTimer(m.DurationMinutes)
	case messages.ValidateAuthToken:
		s.handleValidateAuthToken(m, env.reply)
	case messages.UserJoinedVoiceConf:
		s.participants[m.VoiceUserID] = &models.Participant{
			VoiceUserID: m.VoiceUserID,
			UserID:      m.UserID,
			CallerName:  m.CallerName,
			Muted:       m.Muted,
			Talking:     m.Talking,
			Locked:      m.Locked,
			JoinedAt:    time.Now(),
		}
	case messages.UserLeftVoiceConf:
		delete(s.participants, m.VoiceUserID)
	case messages.UserLockedInVoiceConf:
		if p, ok := s.participants[m.VoiceUserID]; ok {
			p.Locked = m.Locked
		}
	case messages.UserMutedInVoiceConf:
		if p, ok := s.participants[m.VoiceUserID]; ok {
			p.Muted = m.Muted
		}
	case messages.UserTalkingInVoiceConf:
		if p, ok := s.participants[m.VoiceUserID]; ok {
			p.Talking = m.Talking
		}
	case messages.VoiceRecordingStarted:
		s.record = true
		s.logger.Info("voice recording started",
			zap.String("meeting_id", s.meeting.ID), zap.String("filename", m.Filename))
	case messages.VoiceConnectedToGlobalAudio:
		s.listenOnly[m.UserID] = struct{}{}
	case messages.VoiceDisconnectedFromGlobalAudio:
		delete(s.listenOnly, m.UserID)
	case messages.GetUsers:
		s.gateway.Send(messages.GetUsersReply{MeetingID: s.meeting.ID, Users: s.snapshotUsers()})
	case messages.GetPresentationInfo:
		s.gateway.Send(messages.GetPresentationInfoReply{
			MeetingID:    s.meeting.ID,
			PresenterID:  s.presenterID,
			CurrentSlide: s.currentSlide,
		})
	case messages.GetChatHistory:
		history := make([]models.ChatEntry, len(s.chat))
		copy(history, s.chat)
		s.gateway.Send(messages.GetChatHistoryReply{MeetingID: s.meeting.ID, History: history})
	case messages.GetLockSettings:
		s.gateway.Send(messages.GetLockSettingsReply{MeetingID: s.meeting.ID, Settings: s.lockSettings})
	case messages.SendChatMessage:
		entry := models.ChatEntry{UserID: m.UserID, Text: m.Text, SentAt: time.Now()}
		s.chat = append(s.chat, entry)
		if len(s.chat) > s.maxChat {
			s.chat = s.chat[len(s.chat)-s.maxChat:]
		}
		s.gateway.Send(messages.ChatMessagePosted{
			MeetingID: s.meeting.ID,
			UserID:    entry.UserID,
			Text:      entry.Text,
			SentAt:    entry.SentAt,
		})
	case messages.AssignPresenter:
		s.presenterID = m.UserID
		s.gateway.Send(messages.PresenterAssigned{MeetingID: s.meeting.ID, UserID: m.UserID, AssignedBy: m.AssignedBy})
	default:
		s.logger.Debug("session ignoring message",
			zap.String("meeting_id", s.meeting.ID), zap.String("type", fmt.Sprintf("%T", env.msg)))
	}
}

// handleValidateAuthToken answers the probe envelope first, then sends the
// real verdict on the normal outbound path.
func (s *Session) handleValidateAuthToken(m messages.ValidateAuthToken, reply chan<- messages.Message) {
	valid := false
	if s.tokens != nil {
		valid = s.tokens.ValidateJoinToken(m.Token, m.MeetingID, m.UserID)
	}
	out := messages.ValidateAuthTokenReply{
		MeetingID:     m.MeetingID,
		UserID:        m.UserID,
		Token:         m.Token,
		Valid:         valid,
		CorrelationID: m.CorrelationID,
		SessionID:     m.SessionID,
	}
	if reply != nil {
		reply <- out
	}
	s.gateway.Send(out)
}

func (s *Session) startTimer(minutes int) {
	if minutes <= 0 {
		return
	}
	if s.expireTimer != nil {
		s.expireTimer.Stop()
	}
	meetingID := s.meeting.ID
	s.expireTimer = time.AfterFunc(time.Duration(minutes)*time.Minute, func() {
		s.logger.Info("meeting duration elapsed", zap.String("meeting_id", meetingID))
		if s.onExpire != nil {
			s.onExpire(meetingID)
		}
	})
}

func (s *Session) snapshotUsers() []models.Participant {
	users := make([]models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		users = append(users, *p)
	}
	return users
}
