// Package api exposes the operations REST surface: meeting lifecycle, join
// tokens and recording/lifecycle queries. Lifecycle requests go through the
// same supervisor dispatch path as every other inbound message.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/conclave-live/backend/internal/auth"
	"github.com/conclave-live/backend/internal/meeting"
	"github.com/conclave-live/backend/internal/meetinglog"
	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
	"github.com/conclave-live/backend/internal/recording"
	"github.com/conclave-live/backend/pkg/response"
	"github.com/conclave-live/backend/pkg/utils"
)

// Dispatcher accepts decoded inbound messages for routing.
type Dispatcher interface {
	Submit(msg messages.Message)
}

// ArchiveStore issues pre-signed download URLs for archived journals.
type ArchiveStore interface {
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	JournalsBucket() string
	PresignExpire() time.Duration
}

// Handler serves the meeting REST endpoints.
type Handler struct {
	dispatch Dispatcher
	registry *meeting.Registry
	tokens   *auth.TokenService
	logRepo  *meetinglog.Repository
	recRepo  *recording.Repository
	archives ArchiveStore // optional; nil when S3 is not configured
	logger   *zap.Logger
}

// NewHandler creates the API handler. archives may be nil.
func NewHandler(dispatch Dispatcher, registry *meeting.Registry, tokens *auth.TokenService, logRepo *meetinglog.Repository, recRepo *recording.Repository, archives ArchiveStore, logger *zap.Logger) *Handler {
	return &Handler{
		dispatch: dispatch,
		registry: registry,
		tokens:   tokens,
		logRepo:  logRepo,
		recRepo:  recRepo,
		archives: archives,
		logger:   logger,
	}
}

// CreateMeetingRequest is the POST /meetings body.
type CreateMeetingRequest struct {
	MeetingID          string `json:"meeting_id" binding:"required"`
	ExternalID         string `json:"external_id"`
	Name               string `json:"name" binding:"required"`
	Record             bool   `json:"record"`
	VoiceBridge        string `json:"voice_bridge" binding:"required"`
	DurationMinutes    int    `json:"duration_minutes"`
	AutoStartRecording bool   `json:"auto_start_recording"`
	ModeratorPass      string `json:"moderator_pass" binding:"required"`
	ViewerPass         string `json:"viewer_pass" binding:"required"`
}

// Create submits a create-meeting request. Creation is asynchronous; a
// duplicate id is a supervisor-side no-op, so this always accepts.
func (h *Handler) Create(c *gin.Context) {
	var req CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.dispatch.Submit(messages.CreateMeeting{
		MeetingID:          req.MeetingID,
		ExternalID:         req.ExternalID,
		Name:               req.Name,
		Record:             req.Record,
		VoiceBridge:        req.VoiceBridge,
		DurationMinutes:    req.DurationMinutes,
		AutoStartRecording: req.AutoStartRecording,
		ModeratorPass:      req.ModeratorPass,
		ViewerPass:         req.ViewerPass,
		CreateTime:         time.Now(),
	})
	response.OK(c, gin.H{"meeting_id": req.MeetingID, "submitted": true})
}

// Destroy submits a destroy-meeting request. Unknown ids are supervisor-side
// no-ops, so this always accepts.
func (h *Handler) Destroy(c *gin.Context) {
	meetingID := c.Param("id")
	h.dispatch.Submit(messages.DestroyMeeting{MeetingID: meetingID})
	response.OK(c, gin.H{"meeting_id": meetingID, "submitted": true})
}

// List returns the lightweight info of every active meeting.
func (h *Handler) List(c *gin.Context) {
	all := h.registry.ListAll()
	infos := make([]models.MeetingInfo, 0, len(all))
	for _, rm := range all {
		infos = append(infos, models.MeetingInfo{
			ID:          rm.ID,
			ExternalID:  rm.ExternalID,
			Name:        rm.Name,
			VoiceBridge: rm.VoiceBridge,
			Record:      rm.Record,
		})
	}
	response.OK(c, infos)
}

// GetByID returns one active meeting.
func (h *Handler) GetByID(c *gin.Context) {
	rm := h.registry.Get(c.Param("id"))
	if rm == nil {
		response.NotFound(c, "meeting not found")
		return
	}
	response.OK(c, rm.Meeting)
}

// JoinRequest is the POST /meetings/:id/join body.
type JoinRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Join checks the meeting password and issues a join token bound to the
// meeting and user. Moderator password grants the moderator role.
func (h *Handler) Join(c *gin.Context) {
	meetingID := c.Param("id")
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rm := h.registry.Get(meetingID)
	if rm == nil {
		response.NotFound(c, "meeting not found")
		return
	}

	role := ""
	switch {
	case utils.CheckPassword(req.Password, rm.ModeratorPassHash):
		role = "moderator"
	case utils.CheckPassword(req.Password, rm.ViewerPassHash):
		role = "viewer"
	default:
		response.Unauthorized(c, "wrong password")
		return
	}

	token, err := h.tokens.Generate(meetingID, req.UserID, role)
	if err != nil {
		h.logger.Error("generate join token", zap.Error(err), zap.String("meeting_id", meetingID))
		response.Internal(c, "could not issue token")
		return
	}
	response.OK(c, gin.H{"token": token, "role": role})
}

// History returns the persisted lifecycle rows for a meeting id.
func (h *Handler) History(c *gin.Context) {
	rows, err := h.logRepo.ListByMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("list lifecycle rows", zap.Error(err))
		response.Internal(c, "could not load history")
		return
	}
	response.OK(c, rows)
}

// Recordings returns the recording rows for a meeting id. Archived rows get a
// pre-signed download URL when an archive store is configured.
func (h *Handler) Recordings(c *gin.Context) {
	rows, err := h.recRepo.ListByMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("list recordings", zap.Error(err))
		response.Internal(c, "could not load recordings")
		return
	}
	response.OK(c, presignArchives(c.Request.Context(), h.archives, rows, h.logger))
}

// presignArchives swaps each archived row's URL for a pre-signed one. Rows
// without an archive key, and presign failures, keep the stored URL.
func presignArchives(ctx context.Context, archives ArchiveStore, rows []models.Recording, logger *zap.Logger) []models.Recording {
	if archives == nil {
		return rows
	}
	for i, rec := range rows {
		if rec.ArchiveKey == "" {
			continue
		}
		url, err := archives.GeneratePresignedDownloadURL(ctx, archives.JournalsBucket(), rec.ArchiveKey, archives.PresignExpire())
		if err != nil {
			logger.Warn("presign archive download", zap.Error(err), zap.String("archive_key", rec.ArchiveKey))
			continue
		}
		rows[i].ArchiveURL = url
	}
	return rows
}
