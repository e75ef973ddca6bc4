package models

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentRegistered EnrollmentStatus = "REGISTERED"
	EnrollmentConfirmed  EnrollmentStatus = "CONFIRMED"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
)

type Enrollment struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	UserID     string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_training"`
	TrainingID uint             `json:"training_id" gorm:"not null;uniqueIndex:idx_user_training;index"`
	Status     EnrollmentStatus `json:"status" gorm:"not null;size:20;default:REGISTERED;index"`

	Score       *int       `json:"score"`
	CompletedAt *time.Time `json:"completed_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`

	// Trainer-recorded attendance (PRESENTIEL / DISTANCIEL)
	Attendance           bool       `json:"attendance" gorm:"default:false"`
	AttendanceRecordedBy *string    `json:"attendance_recorded_by" gorm:"size:255"`
	AttendanceRecordedAt *time.Time `json:"attendance_recorded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Training *Training `json:"training,omitempty" gorm:"foreignKey:TrainingID"`
}

func (e *Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentCompleted
}

// ChapterProgress is a completion fact for one chapter by one user.
type ChapterProgress struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_chapter;index:idx_user_training_progress"`
	TrainingID  uint      `json:"training_id" gorm:"not null;index:idx_user_training_progress"`
	ChapterID   uint      `json:"chapter_id" gorm:"not null;uniqueIndex:idx_user_chapter"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (ChapterProgress) TableName() string {
	return "chapter_progress"
}
