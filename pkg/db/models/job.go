package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/conjurecontent/backend/pkg/enums"
)

// Job is a recurring content-automation task. Rows are soft-deleted by
// flipping Status to deleted; execution history may reference them forever.
type Job struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID           uuid.UUID         `gorm:"column:owner_id;type:uuid;not null;index"`
	Category          enums.JobCategory `gorm:"column:category;type:job_category;not null"`
	Status            enums.JobStatus   `gorm:"column:status;type:job_status;not null;default:'active'"`
	Description       string            `gorm:"column:description;not null;default:''"`
	PlatformSessionID uuid.UUID         `gorm:"column:platform_session_id;type:uuid;not null;index"`
	RunsPerCycle      int               `gorm:"column:runs_per_cycle;not null;default:1"`
	LastAssessedAt    *time.Time        `gorm:"column:last_assessed_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
