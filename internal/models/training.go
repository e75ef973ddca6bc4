package models

import (
	"time"

	"gorm.io/gorm"
)

type TrainingType string

const (
	TrainingVideo      TrainingType = "VIDEO"
	TrainingPresentiel TrainingType = "PRESENTIEL"
	TrainingDistanciel TrainingType = "DISTANCIEL"
)

// IsScheduled reports whether the training happens at a fixed date,
// in person or remotely, and completes through trainer attendance.
func (t TrainingType) IsScheduled() bool {
	return t == TrainingPresentiel || t == TrainingDistanciel
}

type Training struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200;index"`
	Description *string      `json:"description" gorm:"type:text"`
	Theme       string       `json:"theme" gorm:"size:100;index"`
	Type        TrainingType `json:"type" gorm:"not null;size:20;index"`
	Duration    int          `json:"duration" gorm:"not null"` // minutes

	MaxParticipants *int `json:"max_participants"` // nil means unlimited
	Accredited      bool `json:"accredited" gorm:"default:false"`

	// Scheduling (PRESENTIEL / DISTANCIEL only)
	StartDate *time.Time `json:"start_date"`
	Location  *string    `json:"location" gorm:"size:255"`
	Link      *string    `json:"link" gorm:"size:500"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Chapters []Chapter `json:"chapters,omitempty" gorm:"foreignKey:TrainingID"`
	Quiz     *Quiz     `json:"quiz,omitempty" gorm:"foreignKey:TrainingID"`

	// Computed fields (not stored)
	ChapterCount    int `json:"chapter_count" gorm:"-"`
	EnrollmentCount int `json:"enrollment_count" gorm:"-"`
}

// IsFull reports whether count enrollments saturate the capacity.
func (t *Training) IsFull(count int64) bool {
	return t.MaxParticipants != nil && count >= int64(*t.MaxParticipants)
}

type Chapter struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TrainingID uint      `json:"training_id" gorm:"not null;uniqueIndex:idx_training_chapter_order"`
	Title      string    `json:"title" gorm:"not null;size:200"`
	VideoURL   *string   `json:"video_url" gorm:"size:500"`
	Order      int       `json:"order" gorm:"column:sort_order;not null;uniqueIndex:idx_training_chapter_order"`
	Duration   int       `json:"duration"` // seconds
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Training) TableName() string {
	return "trainings"
}

func (Chapter) TableName() string {
	return "chapters"
}
