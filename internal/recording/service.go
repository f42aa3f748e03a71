package recording

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service is the recording collaborator: it journals every recordable event
// and keeps metadata rows for recording-started events. Each event is handed
// off exactly once, synchronously with the router's dispatch; failures are
// logged and never propagate back into the dispatch loop.
type Service struct {
	journal *Journal
	repo    *Repository
	logger  *zap.Logger
}

// NewService creates the recording collaborator.
func NewService(journal *Journal, repo *Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{journal: journal, repo: repo, logger: logger}
}

// Record journals the event for the meeting. Recording-started events also get
// a metadata row; the database write is best-effort and off the dispatch path.
func (s *Service) Record(meetingID string, ev Event) {
	if err := s.journal.Append(meetingID, ev); err != nil {
		s.logger.Error("journal append failed", zap.Error(err),
			zap.String("meeting_id", meetingID), zap.String("kind", ev.Kind()))
	}

	if started, ok := ev.(RecordingStartedEvent); ok && s.repo != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
			defer cancel()
			if _, err := s.repo.InsertStarted(ctx, meetingID, started.Filename, time.UnixMilli(started.Timestamp)); err != nil {
				s.logger.Error("insert recording row failed", zap.Error(err), zap.String("meeting_id", meetingID))
			}
		}()
	}
}
