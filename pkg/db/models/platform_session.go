package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/conjurecontent/backend/pkg/enums"
)

// PlatformSession stores a linked external-account credential set. At most
// one linked row may exist per (owner, external account); unlinking cascades
// a soft delete to every active job referencing the session.
type PlatformSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	AccessToken    string              `gorm:"column:access_token;not null"`
	RefreshToken   string              `gorm:"column:refresh_token;not null"`
	ExpiresAt      time.Time           `gorm:"column:expires_at;not null"`
	ExternalUserID string              `gorm:"column:external_user_id;not null"`
	Username       string              `gorm:"column:username;not null;default:''"`
	AvatarURL      string              `gorm:"column:avatar_url;not null;default:''"`
	Status         enums.SessionStatus `gorm:"column:status;type:session_status;not null;default:'linked'"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
