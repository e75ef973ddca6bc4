package models

import (
	"time"

	"gorm.io/datatypes"
)

type Quiz struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TrainingID   uint      `json:"training_id" gorm:"not null;uniqueIndex"`
	Title        string    `json:"title" gorm:"size:200"`
	PassingScore int       `json:"passing_score" gorm:"not null"` // percentage, 0..100
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

type Question struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	QuizID uint   `json:"quiz_id" gorm:"not null;index"`
	Text   string `json:"text" gorm:"type:text;not null"`
	Order  int    `json:"order" gorm:"column:sort_order;default:0"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct,omitempty" gorm:"default:false"`
}

// QuizAttempt stores one evaluated submission. The most recent attempt of an
// enrollment is the one the completion check looks at.
type QuizAttempt struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	QuizID       uint           `json:"quiz_id" gorm:"not null;index"`
	EnrollmentID uint           `json:"enrollment_id" gorm:"not null;index"`
	UserID       string         `json:"user_id" gorm:"not null;index;size:255"`
	Score        int            `json:"score"`
	Passed       bool           `json:"passed"`
	Answers      datatypes.JSON `json:"answers" gorm:"type:jsonb"` // map[question_id][]answer_id
	SubmittedAt  time.Time      `json:"submitted_at" gorm:"not null;index"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (Question) TableName() string {
	return "quiz_questions"
}

func (Answer) TableName() string {
	return "quiz_answers"
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
