package meetinglog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conclave-live/backend/internal/models"
)

// LifecycleRow is one row for GET /meetings/:id/history.
type LifecycleRow struct {
	MeetingID   string     `json:"meeting_id"`
	ExternalID  string     `json:"external_id"`
	Name        string     `json:"name"`
	VoiceBridge string     `json:"voice_bridge"`
	Record      bool       `json:"record"`
	CreatedAt   time.Time  `json:"created_at"`
	DestroyedAt *time.Time `json:"destroyed_at,omitempty"`
}

// Repository handles meeting_lifecycle_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lifecycle log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogCreated inserts a row when a meeting is created.
func (r *Repository) LogCreated(ctx context.Context, m models.Meeting) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO meeting_lifecycle_logs (meeting_id, external_id, name, voice_bridge, record, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		m.ID, m.ExternalID, m.Name, m.VoiceBridge, m.Record)
	return err
}

// LogDestroyed closes the most recent open row for this meeting id.
func (r *Repository) LogDestroyed(ctx context.Context, meetingID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meeting_lifecycle_logs l SET destroyed_at = NOW()
		 FROM (SELECT id FROM meeting_lifecycle_logs WHERE meeting_id = $1 AND destroyed_at IS NULL ORDER BY created_at DESC LIMIT 1) AS sub
		 WHERE l.id = sub.id`,
		meetingID)
	return err
}

// ListByMeeting returns all lifecycle rows for a meeting id, newest first.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID string) ([]LifecycleRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT meeting_id, external_id, name, voice_bridge, record, created_at, destroyed_at
		 FROM meeting_lifecycle_logs WHERE meeting_id = $1 ORDER BY created_at DESC`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []LifecycleRow
	for rows.Next() {
		var row LifecycleRow
		if err := rows.Scan(&row.MeetingID, &row.ExternalID, &row.Name, &row.VoiceBridge, &row.Record, &row.CreatedAt, &row.DestroyedAt); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
