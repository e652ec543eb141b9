package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/conjurecontent/backend/api/middleware"
	"github.com/conjurecontent/backend/api/responses"
	"github.com/conjurecontent/backend/api/validators"
	"github.com/conjurecontent/backend/internal/jobstore"
	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

type createJobRequest struct {
	Category          string                 `json:"category" validate:"required"`
	Description       string                 `json:"description" validate:"max=2000"`
	PlatformSessionID string                 `json:"platform_session_id" validate:"required,uuid"`
	RunsPerCycle      int                    `json:"runs_per_cycle" validate:"required,min=1,max=10"`
	Preset            createJobPresetRequest `json:"preset" validate:"required"`
}

type createJobPresetRequest struct {
	BackgroundVideoPath string  `json:"background_video_path" validate:"required"`
	BackgroundAudioPath string  `json:"background_audio_path" validate:"required"`
	Voice               string  `json:"voice" validate:"required"`
	VoiceSpeed          float64 `json:"voice_speed" validate:"required,gt=0"`
	NarrationGain       float64 `json:"narration_gain" validate:"min=0"`
	BackgroundGain      float64 `json:"background_gain" validate:"min=0"`
	TextStyle           string  `json:"text_style"`
	ExtraContext        string  `json:"extra_context" validate:"max=4000"`
}

type jobResponse struct {
	ID                uuid.UUID  `json:"id"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	Description       string     `json:"description"`
	PlatformSessionID uuid.UUID  `json:"platform_session_id"`
	RunsPerCycle      int        `json:"runs_per_cycle"`
	LastAssessedAt    *time.Time `json:"last_assessed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

type jobDetailResponse struct {
	jobResponse
	Preset presetResponse `json:"preset"`
}

type presetResponse struct {
	BackgroundVideoPath string  `json:"background_video_path"`
	BackgroundAudioPath string  `json:"background_audio_path"`
	Voice               string  `json:"voice"`
	VoiceSpeed          float64 `json:"voice_speed"`
	NarrationGain       float64 `json:"narration_gain"`
	BackgroundGain      float64 `json:"background_gain"`
	TextStyle           string  `json:"text_style"`
	ExtraContext        string  `json:"extra_context"`
}

func toJobResponse(job models.Job) jobResponse {
	return jobResponse{
		ID:                job.ID,
		Category:          job.Category.String(),
		Status:            job.Status.String(),
		Description:       job.Description,
		PlatformSessionID: job.PlatformSessionID,
		RunsPerCycle:      job.RunsPerCycle,
		LastAssessedAt:    job.LastAssessedAt,
		CreatedAt:         job.CreatedAt,
	}
}

func toJobDetailResponse(detail *jobstore.JobDetail) jobDetailResponse {
	return jobDetailResponse{
		jobResponse: toJobResponse(detail.Job),
		Preset: presetResponse{
			BackgroundVideoPath: detail.Preset.BackgroundVideoPath,
			BackgroundAudioPath: detail.Preset.BackgroundAudioPath,
			Voice:               detail.Preset.Voice,
			VoiceSpeed:          detail.Preset.VoiceSpeed,
			NarrationGain:       detail.Preset.NarrationGain,
			BackgroundGain:      detail.Preset.BackgroundGain,
			TextStyle:           detail.Preset.TextStyle,
			ExtraContext:        detail.Preset.ExtraContext,
		},
	}
}

// CreateJob registers a recurring automation job and its media preset.
func CreateJob(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var req createJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseJobCategory(req.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnsupportedCategory, "unknown job category"))
			return
		}
		sessionID, err := uuid.Parse(req.PlatformSessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform session id"))
			return
		}

		detail, err := svc.CreateJob(r.Context(), jobstore.CreateJobInput{
			OwnerID:           ownerID,
			Category:          category,
			Description:       req.Description,
			PlatformSessionID: sessionID,
			RunsPerCycle:      req.RunsPerCycle,
			Preset: jobstore.PresetInput{
				BackgroundVideoPath: req.Preset.BackgroundVideoPath,
				BackgroundAudioPath: req.Preset.BackgroundAudioPath,
				Voice:               req.Preset.Voice,
				VoiceSpeed:          req.Preset.VoiceSpeed,
				NarrationGain:       req.Preset.NarrationGain,
				BackgroundGain:      req.Preset.BackgroundGain,
				TextStyle:           req.Preset.TextStyle,
				ExtraContext:        req.Preset.ExtraContext,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toJobDetailResponse(detail))
	}
}

// ListJobs returns the caller's non-deleted jobs.
func ListJobs(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		jobs, err := svc.ListJobs(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]jobResponse, 0, len(jobs))
		for _, job := range jobs {
			out = append(out, toJobResponse(job))
		}
		responses.WriteSuccess(w, out)
	}
}

// GetJob returns one job with its preset.
func GetJob(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		detail, err := svc.GetJob(r.Context(), ownerID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toJobDetailResponse(detail))
	}
}

// DeleteJob soft-deletes a job so the scheduler never dispatches it again.
func DeleteJob(svc jobstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.OwnerIDFromContext(r.Context())
		if ownerID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		if err := svc.DeleteJob(r.Context(), ownerID, jobID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
