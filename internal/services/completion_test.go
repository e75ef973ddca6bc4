package services

import (
	"testing"
	"time"

	"github.com/soins-plus/training-service/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.EnrollmentStatus
		want     bool
	}{
		{models.EnrollmentRegistered, models.EnrollmentConfirmed, true},
		{models.EnrollmentRegistered, models.EnrollmentCompleted, true},
		{models.EnrollmentConfirmed, models.EnrollmentCompleted, true},
		{models.EnrollmentConfirmed, models.EnrollmentConfirmed, false},
		{models.EnrollmentConfirmed, models.EnrollmentRegistered, false},
		{models.EnrollmentCompleted, models.EnrollmentConfirmed, false},
		{models.EnrollmentCompleted, models.EnrollmentRegistered, false},
		{models.EnrollmentCompleted, models.EnrollmentCompleted, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCompletionFactsSatisfied(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	passed := &models.QuizAttempt{Score: 90, Passed: true}
	failed := &models.QuizAttempt{Score: 40, Passed: false}

	tests := []struct {
		name  string
		facts completionFacts
		want  bool
	}{
		{
			name:  "video all chapters no quiz",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 3, chaptersCompleted: 3},
			want:  true,
		},
		{
			name:  "video missing a chapter",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 3, chaptersCompleted: 2},
			want:  false,
		},
		{
			name:  "video zero chapters",
			facts: completionFacts{trainingType: models.TrainingVideo},
			want:  false,
		},
		{
			name:  "video quiz not attempted",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 2, chaptersCompleted: 2, hasQuiz: true},
			want:  false,
		},
		{
			name:  "video quiz failed",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 2, chaptersCompleted: 2, hasQuiz: true, latestAttempt: failed},
			want:  false,
		},
		{
			name:  "video quiz passed",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 2, chaptersCompleted: 2, hasQuiz: true, latestAttempt: passed},
			want:  true,
		},
		{
			name:  "video quiz passed but chapters missing",
			facts: completionFacts{trainingType: models.TrainingVideo, chaptersTotal: 2, chaptersCompleted: 1, hasQuiz: true, latestAttempt: passed},
			want:  false,
		},
		{
			name:  "presentiel attended after start",
			facts: completionFacts{trainingType: models.TrainingPresentiel, startDate: &past, attendance: true},
			want:  true,
		},
		{
			name:  "distanciel attended at start",
			facts: completionFacts{trainingType: models.TrainingDistanciel, startDate: &now, attendance: true},
			want:  true,
		},
		{
			name:  "attended before start",
			facts: completionFacts{trainingType: models.TrainingPresentiel, startDate: &future, attendance: true},
			want:  false,
		},
		{
			name:  "absent",
			facts: completionFacts{trainingType: models.TrainingPresentiel, startDate: &past},
			want:  false,
		},
		{
			name:  "scheduled without date",
			facts: completionFacts{trainingType: models.TrainingDistanciel, attendance: true},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.facts.satisfied(now); got != tt.want {
				t.Errorf("satisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}
