package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscriber struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Source    string    `gorm:"type:varchar(50);not null" json:"source"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

type NewsletterRequest struct {
	Email string `json:"email"`
}
