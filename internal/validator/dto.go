package validator

import (
	"time"

	"github.com/soins-plus/training-service/internal/models"
)

// TrainingCreateRequest represents the request structure for creating trainings
type TrainingCreateRequest struct {
	Title           string              `json:"title" validate:"required,training_title"`
	Description     *string             `json:"description" validate:"omitempty,max=5000"`
	Theme           string              `json:"theme" validate:"omitempty,max=100"`
	Type            models.TrainingType `json:"type" validate:"required,training_type"`
	Duration        int                 `json:"duration" validate:"required,min=1,max=10000"`
	MaxParticipants *int                `json:"max_participants" validate:"omitempty,min=1"`
	Accredited      bool                `json:"accredited"`
	StartDate       *time.Time          `json:"start_date"`
	Location        *string             `json:"location" validate:"omitempty,max=255"`
	Link            *string             `json:"link" validate:"omitempty,url,max=500"`
	Chapters        []ChapterRequest    `json:"chapters" validate:"omitempty,dive"`
	Quiz            *QuizRequest        `json:"quiz"`
}

// TrainingUpdateRequest only touches descriptive and scheduling fields.
// Chapters and quiz are immutable once created.
type TrainingUpdateRequest struct {
	Title           *string    `json:"title" validate:"omitempty,training_title"`
	Description     *string    `json:"description" validate:"omitempty,max=5000"`
	Theme           *string    `json:"theme" validate:"omitempty,max=100"`
	Duration        *int       `json:"duration" validate:"omitempty,min=1,max=10000"`
	MaxParticipants *int       `json:"max_participants" validate:"omitempty,min=1"`
	Accredited      *bool      `json:"accredited"`
	StartDate       *time.Time `json:"start_date"`
	Location        *string    `json:"location" validate:"omitempty,max=255"`
	Link            *string    `json:"link" validate:"omitempty,url,max=500"`
}

type ChapterRequest struct {
	Title    string  `json:"title" validate:"required,max=200"`
	VideoURL *string `json:"video_url" validate:"omitempty,url,max=500"`
	Order    int     `json:"order" validate:"required,min=1"`
	Duration int     `json:"duration" validate:"min=0"`
}

type QuizRequest struct {
	Title        string            `json:"title" validate:"omitempty,max=200"`
	PassingScore int               `json:"passing_score" validate:"passing_score"`
	Questions    []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type QuestionRequest struct {
	Text    string          `json:"text" validate:"required,max=2000"`
	Order   int             `json:"order" validate:"min=0"`
	Answers []AnswerRequest `json:"answers" validate:"required,min=2,dive"`
}

type AnswerRequest struct {
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizSubmissionRequest is the tagged submission shape accepted at the boundary
type QuizSubmissionRequest struct {
	Answers []QuestionAnswerRequest `json:"answers" validate:"required,dive"`
}

type QuestionAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	AnswerIDs  []uint `json:"answer_ids" validate:"omitempty,dive,required"`
}

type AttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

type IssueCertificateRequest struct {
	FileURL string `json:"file_url" validate:"omitempty,url,max=2000"`
}

type ChapterCompleteRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
}
