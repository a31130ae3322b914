package model

import "time"

type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Image     *string   `gorm:"size:512" json:"image"` // nil = no upload
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
