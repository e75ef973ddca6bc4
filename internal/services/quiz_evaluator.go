package services

import (
	"fmt"
	"slices"

	"github.com/soins-plus/training-service/internal/models"
)

// QuizSubmission maps a question ID to the answer IDs the learner selected.
type QuizSubmission map[uint][]uint

type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Correct    bool `json:"correct"`
}

type QuizResult struct {
	Score         int              `json:"score"`
	Passed        bool             `json:"passed"`
	CorrectCount  int              `json:"correct_count"`
	QuestionCount int              `json:"question_count"`
	PassingScore  int              `json:"passing_score"`
	Questions     []QuestionResult `json:"questions"`
}

// EvaluateQuiz scores a submission. A question counts as correct only when the
// selected answers are exactly the answers flagged correct; unanswered
// questions are wrong. The result depends only on its inputs.
func EvaluateQuiz(quiz *models.Quiz, submission QuizSubmission) (*QuizResult, error) {
	if quiz == nil {
		return nil, ErrQuizNotFound
	}

	byID := make(map[uint]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		byID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	// Check in ascending question order so the reported error is stable
	questionIDs := make([]uint, 0, len(submission))
	for id := range submission {
		questionIDs = append(questionIDs, id)
	}
	slices.Sort(questionIDs)
	for _, qid := range questionIDs {
		question, ok := byID[qid]
		if !ok {
			return nil, fmt.Errorf("%w: question %d is not part of quiz %d", ErrMalformedSubmission, qid, quiz.ID)
		}
		for _, aid := range submission[qid] {
			if !questionHasAnswer(question, aid) {
				return nil, fmt.Errorf("%w: answer %d does not belong to question %d", ErrMalformedSubmission, aid, qid)
			}
		}
	}

	result := &QuizResult{
		QuestionCount: len(quiz.Questions),
		PassingScore:  quiz.PassingScore,
		Questions:     make([]QuestionResult, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		correct := sameAnswerSet(correctAnswerIDs(question), submission[question.ID])
		if correct {
			result.CorrectCount++
		}
		result.Questions = append(result.Questions, QuestionResult{QuestionID: question.ID, Correct: correct})
	}

	result.Score = percentRoundHalfUp(result.CorrectCount, result.QuestionCount)
	// An empty quiz cannot be passed, whatever the threshold
	result.Passed = result.QuestionCount > 0 && result.Score >= quiz.PassingScore

	return result, nil
}

// percentRoundHalfUp returns 100*part/total rounded half up, 0 when total is 0.
func percentRoundHalfUp(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

func questionHasAnswer(question *models.Question, answerID uint) bool {
	for _, a := range question.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

func correctAnswerIDs(question *models.Question) []uint {
	var ids []uint
	for _, a := range question.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// sameAnswerSet compares two ID lists as sets; order and duplicates are ignored.
func sameAnswerSet(expected, selected []uint) bool {
	want := make(map[uint]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	got := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
		got[id] = struct{}{}
	}
	return len(got) == len(want)
}
