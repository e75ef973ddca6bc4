package models

import "time"

type Certificate struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"not null;index;size:255"`
	TrainingID   uint      `json:"training_id" gorm:"not null;index"`
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;uniqueIndex"`
	Number       string    `json:"number" gorm:"not null;uniqueIndex;size:64"`
	FileURL      string    `json:"file_url" gorm:"type:text;not null"`
	IssuedAt     time.Time `json:"issued_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Training   *Training   `json:"training,omitempty" gorm:"foreignKey:TrainingID"`
	Enrollment *Enrollment `json:"enrollment,omitempty" gorm:"foreignKey:EnrollmentID"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// AllModels lists every persisted model, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Training{},
		&Chapter{},
		&Quiz{},
		&Question{},
		&Answer{},
		&Enrollment{},
		&ChapterProgress{},
		&QuizAttempt{},
		&Certificate{},
	}
}
