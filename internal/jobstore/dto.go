package jobstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/enums"
)

// CreateJobInput carries everything needed to create a job and its preset in
// one transaction.
type CreateJobInput struct {
	OwnerID           uuid.UUID
	Category          enums.JobCategory
	Description       string
	PlatformSessionID uuid.UUID
	RunsPerCycle      int
	Preset            PresetInput
}

// PresetInput is the media preset portion of a job creation request.
type PresetInput struct {
	BackgroundVideoPath string
	BackgroundAudioPath string
	Voice               string
	VoiceSpeed          float64
	NarrationGain       float64
	BackgroundGain      float64
	TextStyle           string
	ExtraContext        string
}

// LinkSessionInput carries the credential set returned by the platform's
// account-link flow.
type LinkSessionInput struct {
	OwnerID        uuid.UUID
	AccessToken    string
	RefreshToken   string
	ExpiresAt      time.Time
	ExternalUserID string
	Username       string
	AvatarURL      string
}

// JobDetail pairs a job with its media preset.
type JobDetail struct {
	Job    models.Job
	Preset models.MediaPreset
}
