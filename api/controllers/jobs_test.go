package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjurecontent/backend/api/middleware"
	"github.com/conjurecontent/backend/internal/jobstore"
	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

type stubJobService struct {
	jobstore.Service

	createInput jobstore.CreateJobInput
	createErr   error
	jobs        []models.Job
	listErr     error
}

func (s *stubJobService) CreateJob(_ context.Context, input jobstore.CreateJobInput) (*jobstore.JobDetail, error) {
	s.createInput = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &jobstore.JobDetail{
		Job: models.Job{
			ID:                uuid.New(),
			OwnerID:           input.OwnerID,
			Category:          input.Category,
			Status:            enums.JobStatusActive,
			PlatformSessionID: input.PlatformSessionID,
			RunsPerCycle:      input.RunsPerCycle,
			CreatedAt:         time.Now(),
		},
		Preset: models.MediaPreset{
			BackgroundVideoPath: input.Preset.BackgroundVideoPath,
			BackgroundAudioPath: input.Preset.BackgroundAudioPath,
			Voice:               input.Preset.Voice,
			VoiceSpeed:          input.Preset.VoiceSpeed,
		},
	}, nil
}

func (s *stubJobService) ListJobs(context.Context, uuid.UUID) ([]models.Job, error) {
	return s.jobs, s.listErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target string, body []byte, ownerID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.WithOwnerID(req.Context(), ownerID))
}

func validCreateBody(sessionID uuid.UUID) []byte {
	body, _ := json.Marshal(map[string]any{
		"category":            "narrative-story",
		"description":         "nightly story",
		"platform_session_id": sessionID.String(),
		"runs_per_cycle":      2,
		"preset": map[string]any{
			"background_video_path": "/assets/bg.mp4",
			"background_audio_path": "/assets/bg.mp3",
			"voice":                 "onyx",
			"voice_speed":           1.1,
			"narration_gain":        1.0,
			"background_gain":       0.3,
		},
	})
	return body
}

func TestCreateJobSuccess(t *testing.T) {
	svc := &stubJobService{}
	ownerID := uuid.New()
	sessionID := uuid.New()

	rec := httptest.NewRecorder()
	CreateJob(svc, testLogger())(rec, authedRequest(http.MethodPost, "/api/v1/jobs", validCreateBody(sessionID), ownerID))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ownerID, svc.createInput.OwnerID)
	assert.Equal(t, enums.JobCategoryNarrativeStory, svc.createInput.Category)
	assert.Equal(t, sessionID, svc.createInput.PlatformSessionID)
	assert.Equal(t, 2, svc.createInput.RunsPerCycle)
	assert.InDelta(t, 1.1, svc.createInput.Preset.VoiceSpeed, 1e-9)

	var envelope struct {
		Data jobDetailResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "narrative-story", envelope.Data.Category)
	assert.Equal(t, "active", envelope.Data.Status)
}

func TestCreateJobRejectsUnknownCategory(t *testing.T) {
	svc := &stubJobService{}
	body, _ := json.Marshal(map[string]any{
		"category":            "breaking-news",
		"platform_session_id": uuid.NewString(),
		"runs_per_cycle":      1,
		"preset": map[string]any{
			"background_video_path": "/assets/bg.mp4",
			"background_audio_path": "/assets/bg.mp3",
			"voice":                 "onyx",
			"voice_speed":           1.0,
		},
	})

	rec := httptest.NewRecorder()
	CreateJob(svc, testLogger())(rec, authedRequest(http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeUnsupportedCategory))
}

func TestCreateJobRejectsMissingFields(t *testing.T) {
	svc := &stubJobService{}
	body, _ := json.Marshal(map[string]any{"category": "narrative-story"})

	rec := httptest.NewRecorder()
	CreateJob(svc, testLogger())(rec, authedRequest(http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeValidation))
}

func TestCreateJobRequiresAuth(t *testing.T) {
	svc := &stubJobService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(validCreateBody(uuid.New())))
	CreateJob(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListJobsReturnsOwnerJobs(t *testing.T) {
	svc := &stubJobService{jobs: []models.Job{
		{ID: uuid.New(), Category: enums.JobCategoryNarrativeStory, Status: enums.JobStatusActive},
		{ID: uuid.New(), Category: enums.JobCategoryReflectiveCommentary, Status: enums.JobStatusInactive},
	}}

	rec := httptest.NewRecorder()
	ListJobs(svc, testLogger())(rec, authedRequest(http.MethodGet, "/api/v1/jobs", nil, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []jobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "reflective-commentary", envelope.Data[1].Category)
}
