package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/validator"
)

func newTrainingService(t *testing.T) (TrainingService, *testServices) {
	t.Helper()
	s := newTestServices(t)
	return NewTrainingService(s.repo, testLogger(), validator.New()), s
}

func videoRequest() *CreateTrainingRequest {
	return &CreateTrainingRequest{
		Title:    "Prévention des escarres",
		Type:     models.TrainingVideo,
		Duration: 45,
		Chapters: []validator.ChapterRequest{
			{Title: "Introduction", Order: 1, Duration: 10},
			{Title: "Repositionnement", Order: 2, Duration: 35},
		},
		Quiz: &validator.QuizRequest{
			Title:        "Évaluation",
			PassingScore: 70,
			Questions: []validator.QuestionRequest{
				{Text: "Fréquence de repositionnement ?", Answers: []validator.AnswerRequest{
					{Text: "Toutes les 2 à 3 heures", IsCorrect: true},
					{Text: "Une fois par jour"},
				}},
			},
		},
	}
}

func TestTrainingService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTrainingService(t)

	training, err := svc.Create(ctx, videoRequest(), "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if training.ID == 0 || len(training.Chapters) != 2 || training.Quiz == nil {
		t.Fatalf("unexpected training %+v", training)
	}
	if training.Quiz.Questions[0].Order != 1 {
		t.Errorf("question order = %d, want 1", training.Quiz.Questions[0].Order)
	}

	tests := []struct {
		name   string
		mutate func(*CreateTrainingRequest)
		field  string
	}{
		{name: "video without chapters", mutate: func(r *CreateTrainingRequest) { r.Chapters = nil }, field: "chapters"},
		{name: "scheduled without date", mutate: func(r *CreateTrainingRequest) {
			r.Type = models.TrainingDistanciel
			r.Chapters = nil
			r.Quiz = nil
		}, field: "start_date"},
		{name: "blank title", mutate: func(r *CreateTrainingRequest) { r.Title = "   " }, field: "Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := videoRequest()
			tt.mutate(req)
			_, err := svc.Create(ctx, req, "admin-1")
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Create() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error on field %q in %v", tt.field, verrs)
			}
		})
	}
}

func TestTrainingService_GetByIDHidesAnswersFromLearners(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTrainingService(t)
	created, err := svc.Create(ctx, videoRequest(), "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	countCorrect := func(training *models.Training) int {
		n := 0
		for _, q := range training.Quiz.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect {
					n++
				}
			}
		}
		return n
	}

	learnerView, err := svc.GetByID(ctx, created.ID, models.RoleUser)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if n := countCorrect(learnerView); n != 0 {
		t.Errorf("learner sees %d correct answers, want 0", n)
	}

	trainerView, err := svc.GetByID(ctx, created.ID, models.RoleTrainer)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if n := countCorrect(trainerView); n != 1 {
		t.Errorf("trainer sees %d correct answers, want 1", n)
	}

	if _, err := svc.GetByID(ctx, 4040, models.RoleUser); !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("GetByID() error = %v, want ErrTrainingNotFound", err)
	}
}

func TestTrainingService_UpdateCapacity(t *testing.T) {
	ctx := context.Background()
	svc, s := newTrainingService(t)
	training := seedScheduledTraining(t, s.repo, models.TrainingPresentiel, time.Now().Add(48*time.Hour))
	for _, user := range []string{"learner-1", "learner-2"} {
		if _, err := s.enrollment.Register(ctx, user, training.ID); err != nil {
			t.Fatalf("Register(%s) error = %v", user, err)
		}
	}

	_, err := svc.Update(ctx, training.ID, &UpdateTrainingRequest{MaxParticipants: intPtr(1)}, "admin-1")
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "max_participants" {
		t.Fatalf("Update() error = %v, want max_participants validation error", err)
	}

	title := "Gestes d'urgence (session 2)"
	updated, err := svc.Update(ctx, training.ID, &UpdateTrainingRequest{MaxParticipants: intPtr(2), Title: &title}, "admin-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if *updated.MaxParticipants != 2 || updated.Title != title {
		t.Errorf("unexpected training %+v", updated)
	}

	if _, err := svc.Update(ctx, 4040, &UpdateTrainingRequest{Title: &title}, "admin-1"); !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("Update() error = %v, want ErrTrainingNotFound", err)
	}
}

func TestTrainingService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, s := newTrainingService(t)
	busy := seedVideoTraining(t, s.repo, videoOptions{chapters: 1})
	idle := seedVideoTraining(t, s.repo, videoOptions{chapters: 1})
	if _, err := s.enrollment.Register(ctx, "learner-1", busy.ID); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var ruleErr *BusinessRuleError
	if err := svc.Delete(ctx, busy.ID, "admin-1"); !errors.As(err, &ruleErr) || ruleErr.Rule != "training_has_enrollments" {
		t.Errorf("Delete() error = %v, want training_has_enrollments", err)
	}

	if err := svc.Delete(ctx, idle.ID, "admin-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetByID(ctx, idle.ID, models.RoleAdmin); !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrTrainingNotFound", err)
	}
	if err := svc.Delete(ctx, 4040, "admin-1"); !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("Delete() error = %v, want ErrTrainingNotFound", err)
	}
}

func TestTrainingService_List(t *testing.T) {
	ctx := context.Background()
	svc, s := newTrainingService(t)
	seedVideoTraining(t, s.repo, videoOptions{chapters: 1})
	seedScheduledTraining(t, s.repo, models.TrainingDistanciel, time.Now().Add(time.Hour))

	video := models.TrainingVideo
	resp, err := svc.List(ctx, repositories.TrainingFilters{Type: &video, Limit: 500})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 || len(resp.Trainings) != 1 {
		t.Errorf("List() = %d/%d trainings, want 1/1", len(resp.Trainings), resp.Total)
	}
	if resp.Limit != maxPageSize {
		t.Errorf("Limit = %d, want %d", resp.Limit, maxPageSize)
	}
}
