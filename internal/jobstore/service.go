package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the job store service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateJob(ctx context.Context, input CreateJobInput) (*JobDetail, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedCategory, "unknown job category")
	}
	if input.RunsPerCycle < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "runs per cycle must be at least 1")
	}
	if input.Preset.BackgroundVideoPath == "" || input.Preset.BackgroundAudioPath == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "background media paths required")
	}
	if input.Preset.VoiceSpeed <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voice speed must be positive")
	}
	if input.Preset.NarrationGain < 0 || input.Preset.BackgroundGain < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gains must be non-negative")
	}

	session, err := s.repo.FindPlatformSession(ctx, input.PlatformSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform session")
	}
	if session.OwnerID != input.OwnerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "platform session does not belong to user")
	}
	if session.Status != enums.SessionStatusLinked {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "platform session is not linked")
	}

	var detail JobDetail
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := repo.CreateJob(ctx, &models.Job{
			OwnerID:           input.OwnerID,
			Category:          input.Category,
			Status:            enums.JobStatusActive,
			Description:       input.Description,
			PlatformSessionID: input.PlatformSessionID,
			RunsPerCycle:      input.RunsPerCycle,
		})
		if err != nil {
			return err
		}
		preset, err := repo.CreateMediaPreset(ctx, &models.MediaPreset{
			JobID:               job.ID,
			BackgroundVideoPath: input.Preset.BackgroundVideoPath,
			BackgroundAudioPath: input.Preset.BackgroundAudioPath,
			Voice:               input.Preset.Voice,
			VoiceSpeed:          input.Preset.VoiceSpeed,
			NarrationGain:       input.Preset.NarrationGain,
			BackgroundGain:      input.Preset.BackgroundGain,
			TextStyle:           input.Preset.TextStyle,
			ExtraContext:        input.Preset.ExtraContext,
		})
		if err != nil {
			return err
		}
		detail = JobDetail{Job: *job, Preset: *preset}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
	}
	return &detail, nil
}

func (s *service) GetJob(ctx context.Context, ownerID, jobID uuid.UUID) (*JobDetail, error) {
	job, err := s.loadOwnedJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	preset, err := s.repo.FindMediaPresetByJob(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media preset")
	}
	return &JobDetail{Job: *job, Preset: *preset}, nil
}

func (s *service) ListJobs(ctx context.Context, ownerID uuid.UUID) ([]models.Job, error) {
	jobs, err := s.repo.ListJobsByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return jobs, nil
}

func (s *service) DeleteJob(ctx context.Context, ownerID, jobID uuid.UUID) error {
	job, err := s.loadOwnedJob(ctx, ownerID, jobID)
	if err != nil {
		return err
	}
	err = s.repo.UpdateJob(ctx, job.ID, map[string]any{"status": enums.JobStatusDeleted})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job")
	}
	return nil
}

func (s *service) LinkSession(ctx context.Context, input LinkSessionInput) (*models.PlatformSession, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AccessToken == "" || input.ExternalUserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token and external user id required")
	}

	_, err := s.repo.FindLinkedSession(ctx, input.OwnerID, input.ExternalUserID)
	switch {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "account is already linked")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing session")
	}

	session, err := s.repo.CreatePlatformSession(ctx, &models.PlatformSession{
		OwnerID:        input.OwnerID,
		AccessToken:    input.AccessToken,
		RefreshToken:   input.RefreshToken,
		ExpiresAt:      input.ExpiresAt,
		ExternalUserID: input.ExternalUserID,
		Username:       input.Username,
		AvatarURL:      input.AvatarURL,
		Status:         enums.SessionStatusLinked,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create platform session")
	}
	return session, nil
}

func (s *service) ListSessions(ctx context.Context, ownerID uuid.UUID) ([]models.PlatformSession, error) {
	sessions, err := s.repo.ListSessionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list platform sessions")
	}
	return sessions, nil
}

// UnlinkSession revokes a session and soft-deletes every active job bound to
// it, in one transaction.
func (s *service) UnlinkSession(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	session, err := s.repo.FindPlatformSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "platform session not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform session")
	}
	if session.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "platform session does not belong to user")
	}
	if session.Status == enums.SessionStatusUnlinked {
		return pkgerrors.New(pkgerrors.CodeConflict, "platform session is already unlinked")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdatePlatformSession(ctx, session.ID, map[string]any{
			"status": enums.SessionStatusUnlinked,
		}); err != nil {
			return err
		}
		_, err := repo.SoftDeleteActiveJobsBySession(ctx, session.ID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink platform session")
	}
	return nil
}

// ListDue returns active jobs whose last assessment happened before the
// start of now's UTC day, or never.
func (s *service) ListDue(ctx context.Context, now time.Time) ([]models.Job, error) {
	jobs, err := s.repo.ListDueJobs(ctx, startOfDay(now))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due jobs")
	}
	return jobs, nil
}

func (s *service) MarkAssessed(ctx context.Context, jobID uuid.UUID, at time.Time) error {
	if err := s.repo.MarkAssessed(ctx, jobID, at); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark job assessed")
	}
	return nil
}

// ExecutionContext loads the preset and the credential session a job run
// needs. An unlinked session fails the run before any media work starts.
func (s *service) ExecutionContext(ctx context.Context, job models.Job) (*models.MediaPreset, *models.PlatformSession, error) {
	preset, err := s.repo.FindMediaPresetByJob(ctx, job.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "media preset not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media preset")
	}
	session, err := s.repo.FindPlatformSession(ctx, job.PlatformSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform session not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform session")
	}
	if session.Status != enums.SessionStatusLinked {
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "platform session is not linked")
	}
	return preset, session, nil
}

func (s *service) loadOwnedJob(ctx context.Context, ownerID, jobID uuid.UUID) (*models.Job, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job")
	}
	if job.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "job does not belong to user")
	}
	if job.Status == enums.JobStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	return job, nil
}

func startOfDay(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
