package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	journalKeyPrefix = "recording:journal:"
	appendTimeout    = 5 * time.Second
)

// journalEntry is the wire form of one journalled event.
type journalEntry struct {
	Kind      string          `json:"kind"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal persists recordable events to a per-meeting Redis list. Append-only
// from the adapter's perspective; the archive worker drains and deletes.
type Journal struct {
	client *redis.Client
	logger *zap.Logger
}

// NewJournal creates a Redis-backed event journal.
func NewJournal(client *redis.Client, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{client: client, logger: logger}
}

func journalKey(meetingID string) string { return journalKeyPrefix + meetingID }

// Append pushes one event onto the meeting's journal list.
func (j *Journal) Append(meetingID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	raw, err := json.Marshal(journalEntry{Kind: ev.Kind(), Timestamp: time.Now().UnixMilli(), Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := j.client.RPush(ctx, journalKey(meetingID), raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// ReadAll returns the raw journal entries of a meeting in append order.
func (j *Journal) ReadAll(ctx context.Context, meetingID string) ([]json.RawMessage, error) {
	vals, err := j.client.LRange(ctx, journalKey(meetingID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// Delete removes a meeting's journal after it has been archived.
func (j *Journal) Delete(ctx context.Context, meetingID string) error {
	if err := j.client.Del(ctx, journalKey(meetingID)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}
