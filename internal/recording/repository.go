package recording

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conclave-live/backend/internal/models"
)

// Repository handles recording metadata rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recording metadata repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertStarted records that recording began for a meeting.
func (r *Repository) InsertStarted(ctx context.Context, meetingID, filename string, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recordings (id, meeting_id, filename, started_at, status, created_at)
		 VALUES ($1, $2, $3, $4, 'started', NOW())`,
		id, meetingID, filename, startedAt)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// MarkArchived updates the latest recording of a meeting with its archive location.
func (r *Repository) MarkArchived(ctx context.Context, meetingID, archiveURL, archiveKey string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE recordings r SET status = 'archived', archive_url = $2, archive_key = $3, archived_at = NOW()
		 FROM (SELECT id FROM recordings WHERE meeting_id = $1 ORDER BY started_at DESC LIMIT 1) AS sub
		 WHERE r.id = sub.id`,
		meetingID, archiveURL, archiveKey)
	return err
}

// ListByMeeting returns all recording rows for a meeting, newest first.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID string) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, filename, started_at, status, COALESCE(archive_url, ''), COALESCE(archive_key, ''), archived_at, created_at
		 FROM recordings WHERE meeting_id = $1 ORDER BY started_at DESC`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.MeetingID, &rec.Filename, &rec.StartedAt, &rec.Status,
			&rec.ArchiveURL, &rec.ArchiveKey, &rec.ArchivedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
