package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Token records an issued refresh token. Rotation deletes the row, so a
// refresh token is good for exactly one exchange.
type Token struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID `json:"user_id" gorm:"index;not null"`
	JTI          uuid.UUID `json:"jti" gorm:"uniqueIndex"`
	RefreshToken string    `json:"refresh_token" gorm:"type:text"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
