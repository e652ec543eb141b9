package jobstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a job store repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) CreateMediaPreset(ctx context.Context, preset *models.MediaPreset) (*models.MediaPreset, error) {
	if err := r.db.WithContext(ctx).Create(preset).Error; err != nil {
		return nil, err
	}
	return preset, nil
}

func (r *repository) FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status <> ?", ownerID, enums.JobStatusDeleted).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListDueJobs returns active jobs not yet assessed on the day that starts at
// cutoff. A NULL last_assessed_at means the job has never run.
func (r *repository) ListDueJobs(ctx context.Context, cutoff time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.JobStatusActive).
		Where("last_assessed_at IS NULL OR last_assessed_at < ?", cutoff).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) MarkAssessed(ctx context.Context, jobID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Update("last_assessed_at", at).Error
}

func (r *repository) UpdateJob(ctx context.Context, jobID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

func (r *repository) FindMediaPresetByJob(ctx context.Context, jobID uuid.UUID) (*models.MediaPreset, error) {
	var preset models.MediaPreset
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&preset).Error
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

func (r *repository) CreatePlatformSession(ctx context.Context, session *models.PlatformSession) (*models.PlatformSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindPlatformSession(ctx context.Context, id uuid.UUID) (*models.PlatformSession, error) {
	var session models.PlatformSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindLinkedSession(ctx context.Context, ownerID uuid.UUID, externalUserID string) (*models.PlatformSession, error) {
	var session models.PlatformSession
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND external_user_id = ? AND status = ?",
			ownerID, externalUserID, enums.SessionStatusLinked).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) ListSessionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.PlatformSession, error) {
	var sessions []models.PlatformSession
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) UpdatePlatformSession(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SoftDeleteActiveJobsBySession flips every active job on the session to
// deleted and reports how many rows changed.
func (r *repository) SoftDeleteActiveJobsBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("platform_session_id = ? AND status = ?", sessionID, enums.JobStatusActive).
		Update("status", enums.JobStatusDeleted)
	return result.RowsAffected, result.Error
}
