package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/recording"
	"github.com/conclave-live/backend/pkg/queue"
	"github.com/conclave-live/backend/pkg/storage"
)

// JournalArchiver processes journal archive jobs: read the meeting's event
// journal from Redis, upload it to S3 as JSON, update the recording row, then
// drop the journal.
type JournalArchiver struct {
	journal *recording.Journal
	recRepo *recording.Repository
	s3      *storage.S3
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewJournalArchiver creates a journal archive processor.
func NewJournalArchiver(journal *recording.Journal, recRepo *recording.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *JournalArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalArchiver{journal: journal, recRepo: recRepo, s3: s3, queue: q, logger: logger}
}

// Process executes one journal archive job.
func (p *JournalArchiver) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeJournalArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.JournalArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entries, err := p.journal.ReadAll(ctx, payload.MeetingID)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		p.logger.Info("empty journal, nothing to archive", zap.String("meeting_id", payload.MeetingID))
		return nil
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	key := storage.JournalKey(payload.MeetingID, job.ID)

	s3URL, err := p.s3.Upload(ctx, p.s3.JournalsBucket(), key, "application/json", bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.recRepo.MarkArchived(ctx, payload.MeetingID, s3URL, key); err != nil {
		p.logger.Error("mark recording archived failed", zap.Error(err), zap.String("meeting_id", payload.MeetingID))
		return fmt.Errorf("update db: %w", err)
	}

	if err := p.journal.Delete(ctx, payload.MeetingID); err != nil {
		p.logger.Warn("journal delete failed", zap.Error(err), zap.String("meeting_id", payload.MeetingID))
	}

	p.logger.Info("journal archived",
		zap.String("meeting_id", payload.MeetingID),
		zap.Int("events", len(entries)),
		zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *JournalArchiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("journal archiver stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
