package jobstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conjurecontent/backend/pkg/db/models"
)

// Repository defines persistence operations for jobs, media presets, and
// platform sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateJob(ctx context.Context, job *models.Job) (*models.Job, error)
	CreateMediaPreset(ctx context.Context, preset *models.MediaPreset) (*models.MediaPreset, error)
	FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Job, error)
	ListDueJobs(ctx context.Context, cutoff time.Time) ([]models.Job, error)
	MarkAssessed(ctx context.Context, jobID uuid.UUID, at time.Time) error
	UpdateJob(ctx context.Context, jobID uuid.UUID, updates map[string]any) error
	FindMediaPresetByJob(ctx context.Context, jobID uuid.UUID) (*models.MediaPreset, error)
	CreatePlatformSession(ctx context.Context, session *models.PlatformSession) (*models.PlatformSession, error)
	FindPlatformSession(ctx context.Context, id uuid.UUID) (*models.PlatformSession, error)
	FindLinkedSession(ctx context.Context, ownerID uuid.UUID, externalUserID string) (*models.PlatformSession, error)
	ListSessionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.PlatformSession, error)
	UpdatePlatformSession(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteActiveJobsBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

// Service defines job and session operations above the repository: owner
// scoping, validation, and the transactional create/unlink flows.
type Service interface {
	CreateJob(ctx context.Context, input CreateJobInput) (*JobDetail, error)
	GetJob(ctx context.Context, ownerID, jobID uuid.UUID) (*JobDetail, error)
	ListJobs(ctx context.Context, ownerID uuid.UUID) ([]models.Job, error)
	DeleteJob(ctx context.Context, ownerID, jobID uuid.UUID) error
	LinkSession(ctx context.Context, input LinkSessionInput) (*models.PlatformSession, error)
	ListSessions(ctx context.Context, ownerID uuid.UUID) ([]models.PlatformSession, error)
	UnlinkSession(ctx context.Context, ownerID, sessionID uuid.UUID) error
	ListDue(ctx context.Context, now time.Time) ([]models.Job, error)
	MarkAssessed(ctx context.Context, jobID uuid.UUID, at time.Time) error
	ExecutionContext(ctx context.Context, job models.Job) (*models.MediaPreset, *models.PlatformSession, error)
}
