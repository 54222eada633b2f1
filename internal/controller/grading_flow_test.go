package controller

import (
	"bytes"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/middleware"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret-at-least-32-chars"

type apiResponse struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	assessments := repository.NewAssessmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	catalog := repository.NewCatalogRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	notifier := service.NewNotifier(&config.NotifyConfig{Provider: util.NotifyLog})
	progress := service.NewProgressService(db, catalog, assessments, submissions, progressRepo, repository.NewUserRepository(db), notifier)
	bus := service.NewLocalProgressBus()
	bus.Subscribe(progress.HandleEvent)
	subs := service.NewSubmissionService(db, assessments, submissions, catalog, progressRepo, bus)
	storage := service.NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()})

	quiz := NewQuizController(service.NewQuizService(subs))
	assignment := NewAssignmentController(service.NewAssignmentService(subs, storage))
	submission := NewSubmissionController(subs)
	assessment := NewAssessmentController(service.NewAssessmentService(assessments, catalog))
	catalogCtl := NewCatalogController(service.NewCatalogService(catalog), progress)

	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(cfg))
	api.POST("/series/:id/enroll", catalogCtl.Enroll)
	api.POST("/quizzes/:id/submissions", quiz.Submit)
	api.POST("/assignments/:id/submissions", assignment.Submit)
	api.GET("/submissions/:id", submission.Get)

	teacher := api.Group("/teacher", middleware.RoleMiddleware(model.Teacher))
	teacher.POST("/series", catalogCtl.CreateSeries)
	teacher.POST("/series/:id/courses", catalogCtl.CreateCourse)
	teacher.POST("/assessments", assessment.Create)
	teacher.PATCH("/assessments/:id", assessment.Update)
	teacher.POST("/submissions/:id/grade", assignment.Grade)
	teacher.POST("/submissions/:id/regrade", assignment.Regrade)

	return &testServer{t: t, router: r}
}

func (s *testServer) token(userID uint, role model.UserRole) string {
	tok, err := util.GenerateJWT(userID, role, "user@example.com", testSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, tok string, body interface{}) (int, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// setupCourse 教师创建系列、课程和已发布的测评
func (s *testServer) setupCourse(teacherTok string, assessment gin.H) (uint, model.Assessment) {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/teacher/series", teacherTok, gin.H{"title": "C Programming"})
	require.Equal(s.t, http.StatusCreated, code)
	series := decode[model.Series](s.t, resp.Data)

	code, resp = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/series/%d/courses", series.ID), teacherTok, gin.H{"title": "Pointers"})
	require.Equal(s.t, http.StatusCreated, code)
	course := decode[model.Course](s.t, resp.Data)

	assessment["courseId"] = course.ID
	code, resp = s.do(http.MethodPost, "/api/teacher/assessments", teacherTok, assessment)
	require.Equal(s.t, http.StatusCreated, code, resp.Message)
	a := decode[model.Assessment](s.t, resp.Data)

	code, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/teacher/assessments/%d", a.ID), teacherTok, gin.H{"isPublished": true})
	require.Equal(s.t, http.StatusOK, code)
	return series.ID, a
}

func TestQuizSubmissionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	teacherTok := s.token(1, model.Teacher)
	studentTok := s.token(2, model.Student)

	seriesID, quiz := s.setupCourse(teacherTok, gin.H{
		"kind":  "quiz",
		"title": "Pointers quiz",
		"questions": []gin.H{
			{"content": "Q1", "points": 5, "options": []gin.H{{"content": "A", "isCorrect": true}, {"content": "B"}}},
			{"content": "Q2", "points": 5, "options": []gin.H{{"content": "A"}, {"content": "B", "isCorrect": true}}},
		},
	})
	q1, q2 := quiz.Questions[0], quiz.Questions[1]
	body := gin.H{"answers": []gin.H{
		{"questionId": q1.ID, "optionId": q1.Options[0].ID},
		{"questionId": q2.ID, "optionId": q2.Options[0].ID},
	}}
	path := fmt.Sprintf("/api/quizzes/%d/submissions", quiz.ID)

	code, resp := s.do(http.MethodPost, path, studentTok, body)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, util.KindNotEligible, resp.Kind)

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/series/%d/enroll", seriesID), studentTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodPost, path, studentTok, body)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	result := decode[service.SubmissionResult](t, resp.Data)
	assert.Equal(t, 5, result.TotalGrade)
	assert.Equal(t, 10, result.TotalPossible)
	assert.Equal(t, 50, result.Percentage)

	code, resp = s.do(http.MethodPost, path, studentTok, body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.KindAlreadySubmitted, resp.Kind)

	// 其他学生不能查看该提交
	code, resp = s.do(http.MethodGet, fmt.Sprintf("/api/submissions/%d", result.SubmissionID), s.token(3, model.Student), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, util.KindForbidden, resp.Kind)

	code, _ = s.do(http.MethodGet, fmt.Sprintf("/api/submissions/%d", result.SubmissionID), studentTok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAssignmentGradingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	teacherTok := s.token(1, model.Teacher)
	studentTok := s.token(2, model.Student)

	seriesID, assignment := s.setupCourse(teacherTok, gin.H{
		"kind":      "assignment",
		"title":     "Linked list",
		"questions": []gin.H{{"content": "Implement reverse()", "points": 10}},
	})
	qid := assignment.Questions[0].ID

	code, _ := s.do(http.MethodPost, fmt.Sprintf("/api/series/%d/enroll", seriesID), studentTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := s.do(http.MethodPost, fmt.Sprintf("/api/assignments/%d/submissions", assignment.ID), studentTok,
		gin.H{"answers": []gin.H{{"questionId": qid, "text": "node *reverse(node *head) { ... }"}}})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	submissionID := decode[service.SubmissionResult](t, resp.Data).SubmissionID

	grade := func(action string, marks int) (int, apiResponse) {
		return s.do(http.MethodPost, fmt.Sprintf("/api/teacher/submissions/%d/%s", submissionID, action), teacherTok,
			gin.H{"answers": []gin.H{{"questionId": qid, "marksAwarded": marks}}})
	}

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/api/teacher/submissions/%d/grade", submissionID), studentTok,
		gin.H{"answers": []gin.H{{"questionId": qid, "marksAwarded": 10}}})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = grade("regrade", 5)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, util.KindInvalidState, resp.Kind)

	code, resp = grade("grade", 11)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.KindInvalidMarks, resp.Kind)

	code, resp = grade("grade", 7)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, 7, decode[service.SubmissionResult](t, resp.Data).TotalGrade)

	code, resp = grade("regrade", 9)
	require.Equal(t, http.StatusOK, code, resp.Message)
	result := decode[service.SubmissionResult](t, resp.Data)
	assert.Equal(t, 9, result.TotalGrade)
	assert.Equal(t, 90, result.Percentage)
	assert.Equal(t, model.SubmissionGraded, result.Status)
}
