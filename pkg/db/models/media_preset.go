package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaPreset holds the generation parameters bound one-to-one to a Job.
// It is created in the same transaction as its Job.
type MediaPreset struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID               uuid.UUID `gorm:"column:job_id;type:uuid;not null;unique"`
	BackgroundVideoPath string    `gorm:"column:background_video_path;not null"`
	BackgroundAudioPath string    `gorm:"column:background_audio_path;not null"`
	Voice               string    `gorm:"column:voice;not null"`
	// VoiceSpeed is a positive playback multiplier; gains are non-negative
	// multipliers where 1.0 is unity.
	VoiceSpeed     float64   `gorm:"column:voice_speed;not null;default:1.0"`
	NarrationGain  float64   `gorm:"column:narration_gain;not null;default:1.0"`
	BackgroundGain float64   `gorm:"column:background_gain;not null;default:0.3"`
	TextStyle      string    `gorm:"column:text_style;not null;default:''"`
	ExtraContext   string    `gorm:"column:extra_context;not null;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
