package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/models"
)

type stubArchiveStore struct {
	presigned []string
	err       error
}

func (s *stubArchiveStore) GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	url := "https://" + bucket + ".example.com/" + key + "?signed"
	s.presigned = append(s.presigned, key)
	return url, nil
}

func (s *stubArchiveStore) JournalsBucket() string       { return "journals-bucket" }
func (s *stubArchiveStore) PresignExpire() time.Duration { return 15 * time.Minute }

func TestPresignArchives(t *testing.T) {
	store := &stubArchiveStore{}
	rows := []models.Recording{
		{MeetingID: "m1", ArchiveKey: "journals/m1/j1.json", ArchiveURL: "https://stored"},
		{MeetingID: "m1", Status: "started"}, // no archive yet
	}

	out := presignArchives(context.Background(), store, rows, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "https://journals-bucket.example.com/journals/m1/j1.json?signed", out[0].ArchiveURL)
	assert.Empty(t, out[1].ArchiveURL, "rows without an archive key are untouched")
	assert.Equal(t, []string{"journals/m1/j1.json"}, store.presigned)
}

func TestPresignArchives_NoStore(t *testing.T) {
	rows := []models.Recording{{MeetingID: "m1", ArchiveKey: "k", ArchiveURL: "https://stored"}}

	out := presignArchives(context.Background(), nil, rows, nil)

	assert.Equal(t, "https://stored", out[0].ArchiveURL)
}

func TestPresignArchives_FailureKeepsStoredURL(t *testing.T) {
	store := &stubArchiveStore{err: errors.New("presign failed")}
	rows := []models.Recording{{MeetingID: "m1", ArchiveKey: "k", ArchiveURL: "https://stored"}}

	out := presignArchives(context.Background(), store, rows, zap.NewNop())

	assert.Equal(t, "https://stored", out[0].ArchiveURL)
}
