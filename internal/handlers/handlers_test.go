package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soins-plus/training-service/internal/models"
	"github.com/soins-plus/training-service/internal/repositories"
	"github.com/soins-plus/training-service/internal/services"
	"github.com/soins-plus/training-service/internal/utils"
	"github.com/soins-plus/training-service/internal/validator"
)

// ===== MOCK SERVICES =====

// Unset methods panic through the nil embedded interface.

type mockTrainingService struct {
	services.TrainingService
	created *services.CreateTrainingRequest
}

func (m *mockTrainingService) Create(ctx context.Context, req *services.CreateTrainingRequest, creatorID string) (*models.Training, error) {
	m.created = req
	return &models.Training{ID: 7, Title: req.Title, Type: req.Type, CreatedBy: creatorID}, nil
}

func (m *mockTrainingService) Delete(ctx context.Context, id uint, userID string) error {
	if id == 99 {
		return services.NewBusinessRuleError("training_has_enrollments", "trainings with enrollments cannot be deleted", nil)
	}
	return nil
}

type mockEnrollmentService struct {
	services.EnrollmentService
	registerErr error

	attendanceCalls []attendanceCall
}

type attendanceCall struct {
	enrollmentID uint
	attended     bool
	trainerID    string
}

func (m *mockEnrollmentService) Register(ctx context.Context, userID string, trainingID uint) (*models.Enrollment, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.Enrollment{ID: 1, UserID: userID, TrainingID: trainingID, Status: models.EnrollmentRegistered}, nil
}

func (m *mockEnrollmentService) RecordAttendance(ctx context.Context, enrollmentID uint, attended bool, trainerID string) (*models.Enrollment, error) {
	m.attendanceCalls = append(m.attendanceCalls, attendanceCall{enrollmentID, attended, trainerID})
	return &models.Enrollment{ID: enrollmentID, Attendance: attended, Status: models.EnrollmentRegistered}, nil
}

func (m *mockEnrollmentService) ListByUser(ctx context.Context, userID string, filters repositories.EnrollmentFilters) (*services.EnrollmentListResponse, error) {
	return &services.EnrollmentListResponse{
		Enrollments: []*models.Enrollment{{ID: 3, UserID: userID}},
		Total:       1,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}, nil
}

type mockProgressService struct {
	services.ProgressService
	lastAt time.Time
}

func (m *mockProgressService) RecordChapterComplete(ctx context.Context, userID string, trainingID, chapterID uint, at time.Time) (*services.ChapterCompletionResponse, error) {
	m.lastAt = at
	if chapterID == 404 {
		return nil, fmt.Errorf("record chapter: %w", services.ErrUnknownChapter)
	}
	return &services.ChapterCompletionResponse{CompletionRatio: 0.5}, nil
}

type mockQuizService struct {
	services.QuizService
	submission services.QuizSubmission
}

func (m *mockQuizService) SubmitQuiz(ctx context.Context, userID string, trainingID uint, submission services.QuizSubmission) (*services.QuizSubmissionResponse, error) {
	m.submission = submission
	return &services.QuizSubmissionResponse{
		Result: &services.QuizResult{Score: 100, Passed: true},
	}, nil
}

type mockCertificateService struct {
	services.CertificateService
}

type mockReportService struct{}

func (mockReportService) TrainingRosterXLSX(ctx context.Context, trainingID uint) ([]byte, error) {
	if trainingID == 404 {
		return nil, services.ErrTrainingNotFound
	}
	return []byte("PK\x03\x04"), nil
}

type mockServiceManager struct {
	services.ServiceManager
	training    *mockTrainingService
	enrollment  *mockEnrollmentService
	progress    *mockProgressService
	quiz        *mockQuizService
	certificate *mockCertificateService
	healthErr   error
}

func newMockServiceManager() *mockServiceManager {
	return &mockServiceManager{
		training:    &mockTrainingService{},
		enrollment:  &mockEnrollmentService{},
		progress:    &mockProgressService{},
		quiz:        &mockQuizService{},
		certificate: &mockCertificateService{},
	}
}

func (m *mockServiceManager) Training() services.TrainingService       { return m.training }
func (m *mockServiceManager) Enrollment() services.EnrollmentService   { return m.enrollment }
func (m *mockServiceManager) Progress() services.ProgressService       { return m.progress }
func (m *mockServiceManager) Quiz() services.QuizService               { return m.quiz }
func (m *mockServiceManager) Certificate() services.CertificateService { return m.certificate }
func (m *mockServiceManager) Report() services.ReportService           { return mockReportService{} }
func (m *mockServiceManager) HealthCheck(ctx context.Context) error     { return m.healthErr }

// ===== HELPERS =====

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newTestRouter mounts the API behind a stub authentication that trusts userID and role
func newTestRouter(sm *mockServiceManager, userID string, role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	hm := newHandlerManager(sm, validator.New(), testLogger(), nil)
	router.GET("/health", hm.Health)

	v1 := router.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		if userID != "" {
			setUser(c, &models.User{ID: userID, Role: role})
		}
		c.Next()
	})
	hm.registerAPIRoutes(v1)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ===== TESTS =====

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", validator.ValidationErrors{{Field: "title", Message: "is required"}}, http.StatusBadRequest},
		{"business rule", services.NewBusinessRuleError("rule", "msg", nil), http.StatusUnprocessableEntity},
		{"permission", services.NewPermissionError("u", 1, "enrollment", "read", "not owner"), http.StatusForbidden},
		{"training not found", services.ErrTrainingNotFound, http.StatusNotFound},
		{"enrollment not found", services.ErrEnrollmentNotFound, http.StatusNotFound},
		{"quiz not found", services.ErrQuizNotFound, http.StatusNotFound},
		{"certificate not found", services.ErrCertificateNotFound, http.StatusNotFound},
		{"already enrolled wrapped", fmt.Errorf("register: %w", services.ErrAlreadyEnrolled), http.StatusConflict},
		{"capacity", services.ErrCapacityExceeded, http.StatusConflict},
		{"certificate issued", services.ErrCertificateAlreadyIssued, http.StatusConflict},
		{"transition", services.ErrInvalidStatusTransition, http.StatusConflict},
		{"completed", services.ErrEnrollmentCompleted, http.StatusConflict},
		{"not enrolled", services.ErrNotEnrolled, http.StatusUnprocessableEntity},
		{"unknown chapter", services.ErrUnknownChapter, http.StatusUnprocessableEntity},
		{"malformed", fmt.Errorf("%w: question 3", services.ErrMalformedSubmission), http.StatusUnprocessableEntity},
		{"not complete", services.ErrEnrollmentNotComplete, http.StatusUnprocessableEntity},
		{"attendance on video", services.ErrAttendanceNotApplicable, http.StatusUnprocessableEntity},
		{"store unavailable", fmt.Errorf("list: %w", services.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	h := NewBaseHandler(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.handleServiceError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	t.Run("conflict asks for a retry", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.handleServiceError(c, fmt.Errorf("register: %w", services.ErrConflict))

		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
		if got := w.Header().Get("Retry-After"); got != conflictRetryAfter {
			t.Errorf("Retry-After = %q, want %q", got, conflictRetryAfter)
		}
	})
}

func TestRoleGates(t *testing.T) {
	body := map[string]interface{}{"title": "Hygiène", "type": "VIDEO", "duration": 30}

	tests := []struct {
		name       string
		role       models.UserRole
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"learner cannot create", models.RoleUser, http.MethodPost, "/api/v1/trainings", body, http.StatusForbidden},
		{"trainer cannot create", models.RoleTrainer, http.MethodPost, "/api/v1/trainings", body, http.StatusForbidden},
		{"admin creates", models.RoleAdmin, http.MethodPost, "/api/v1/trainings", body, http.StatusCreated},
		{"learner cannot record attendance", models.RoleUser, http.MethodPost, "/api/v1/enrollments/5/attendance", map[string]bool{"attended": true}, http.StatusForbidden},
		{"trainer records attendance", models.RoleTrainer, http.MethodPost, "/api/v1/enrollments/5/attendance", map[string]bool{"attended": true}, http.StatusOK},
		{"learner cannot export", models.RoleUser, http.MethodGet, "/api/v1/trainings/1/report.xlsx", nil, http.StatusForbidden},
		{"learner enrolls", models.RoleUser, http.MethodPost, "/api/v1/trainings/1/enroll", nil, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(newMockServiceManager(), "caller-1", tt.role)
			w := doRequest(router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	router := newTestRouter(newMockServiceManager(), "", "")
	w := doRequest(router, http.MethodGet, "/api/v1/enrollments/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestEnrollHandler(t *testing.T) {
	sm := newMockServiceManager()
	router := newTestRouter(sm, "learner-1", models.RoleUser)

	w := doRequest(router, http.MethodPost, "/api/v1/trainings/12/enroll", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var enrollment models.Enrollment
	if err := json.Unmarshal(w.Body.Bytes(), &enrollment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if enrollment.UserID != "learner-1" || enrollment.TrainingID != 12 {
		t.Errorf("unexpected enrollment %+v", enrollment)
	}

	sm.enrollment.registerErr = services.ErrCapacityExceeded
	if w := doRequest(router, http.MethodPost, "/api/v1/trainings/12/enroll", nil); w.Code != http.StatusConflict {
		t.Errorf("full training status = %d, want 409", w.Code)
	}

	if w := doRequest(router, http.MethodPost, "/api/v1/trainings/abc/enroll", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestRecordAttendanceHandler(t *testing.T) {
	sm := newMockServiceManager()
	router := newTestRouter(sm, "trainer-1", models.RoleTrainer)

	w := doRequest(router, http.MethodPost, "/api/v1/enrollments/5/attendance", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing attended status = %d, want 400", w.Code)
	}
	if len(sm.enrollment.attendanceCalls) != 0 {
		t.Fatalf("service called on invalid payload")
	}

	w = doRequest(router, http.MethodPost, "/api/v1/enrollments/5/attendance", map[string]bool{"attended": false})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := attendanceCall{enrollmentID: 5, attended: false, trainerID: "trainer-1"}
	if got := sm.enrollment.attendanceCalls[0]; got != want {
		t.Errorf("RecordAttendance called with %+v, want %+v", got, want)
	}
}

func TestCompleteChapterHandler(t *testing.T) {
	sm := newMockServiceManager()
	router := newTestRouter(sm, "learner-1", models.RoleUser)

	w := doRequest(router, http.MethodPost, "/api/v1/trainings/1/chapters/2/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if time.Since(sm.progress.lastAt) > time.Minute {
		t.Errorf("completion time defaulted to %v", sm.progress.lastAt)
	}

	past := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w = doRequest(router, http.MethodPost, "/api/v1/trainings/1/chapters/2/complete", map[string]time.Time{"completed_at": past})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !sm.progress.lastAt.Equal(past) {
		t.Errorf("completion time = %v, want %v", sm.progress.lastAt, past)
	}

	if w := doRequest(router, http.MethodPost, "/api/v1/trainings/1/chapters/404/complete", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown chapter status = %d, want 422", w.Code)
	}
}

func TestSubmitQuizHandler(t *testing.T) {
	sm := newMockServiceManager()
	router := newTestRouter(sm, "learner-1", models.RoleUser)

	body := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": 10, "answer_ids": []uint{100}},
			{"question_id": 11, "answer_ids": []uint{110, 111}},
		},
	}
	w := doRequest(router, http.MethodPost, "/api/v1/trainings/1/quiz/submit", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	if len(sm.quiz.submission) != 2 || len(sm.quiz.submission[11]) != 2 {
		t.Errorf("submission = %v", sm.quiz.submission)
	}

	duplicate := map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": 10, "answer_ids": []uint{100}},
			{"question_id": 10, "answer_ids": []uint{101}},
		},
	}
	if w := doRequest(router, http.MethodPost, "/api/v1/trainings/1/quiz/submit", duplicate); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate question status = %d, want 422", w.Code)
	}
}

func TestDeleteTrainingWithEnrollments(t *testing.T) {
	router := newTestRouter(newMockServiceManager(), "admin-1", models.RoleAdmin)

	if w := doRequest(router, http.MethodDelete, "/api/v1/trainings/99", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if w := doRequest(router, http.MethodDelete, "/api/v1/trainings/3", nil); w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestDownloadReport(t *testing.T) {
	router := newTestRouter(newMockServiceManager(), "trainer-1", models.RoleTrainer)

	w := doRequest(router, http.MethodGet, "/api/v1/trainings/1/report.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="training-1-roster.xlsx"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if w := doRequest(router, http.MethodGet, "/api/v1/trainings/404/report.xlsx", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown training status = %d, want 404", w.Code)
	}
}

func TestListMyEnrollmentsPaging(t *testing.T) {
	router := newTestRouter(newMockServiceManager(), "learner-1", models.RoleUser)

	w := doRequest(router, http.MethodGet, "/api/v1/enrollments/me?page=3&size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp services.EnrollmentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != 10 || resp.Offset != 20 {
		t.Errorf("limit/offset = %d/%d, want 10/20", resp.Limit, resp.Offset)
	}
}

func TestHealth(t *testing.T) {
	sm := newMockServiceManager()
	router := newTestRouter(sm, "", "")

	if w := doRequest(router, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	sm.healthErr = errors.New("database down")
	if w := doRequest(router, http.MethodGet, "/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
