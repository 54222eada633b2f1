package service

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
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
	return db
}

// recordingNotifier 记录通知调用
type recordingNotifier struct {
	mu              sync.Mutex
	seriesCompleted []uint
	certificates    []string
}

func (n *recordingNotifier) SeriesCompleted(ctx context.Context, user *model.User, series *model.Series) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seriesCompleted = append(n.seriesCompleted, series.ID)
	return nil
}

func (n *recordingNotifier) CertificateIssued(ctx context.Context, user *model.User, series *model.Series, cert *model.Certificate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.certificates = append(n.certificates, cert.CertificateNumber)
	return nil
}

type harness struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	users       *repository.UserRepository
	assessments *repository.AssessmentRepository
	submissions *repository.SubmissionRepository
	catalogRepo *repository.CatalogRepository
	progressRep *repository.ProgressRepository

	notifier     *recordingNotifier
	bus          *LocalProgressBus
	progress     *ProgressService
	submission   *SubmissionService
	quiz         *QuizService
	assignment   *AssignmentService
	authoring    *AssessmentService
	catalog      *CatalogService
	certificates *CertificateService
	storageDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	h := &harness{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		users:       repository.NewUserRepository(db),
		assessments: repository.NewAssessmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		catalogRepo: repository.NewCatalogRepository(db),
		progressRep: repository.NewProgressRepository(db),
		notifier:    &recordingNotifier{},
		storageDir:  t.TempDir(),
	}

	h.progress = NewProgressService(db, h.catalogRepo, h.assessments, h.submissions, h.progressRep, h.users, h.notifier)
	h.bus = NewLocalProgressBus()
	h.bus.Subscribe(h.progress.HandleEvent)

	storage := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: h.storageDir})
	h.submission = NewSubmissionService(db, h.assessments, h.submissions, h.catalogRepo, h.progressRep, h.bus)
	h.quiz = NewQuizService(h.submission)
	h.assignment = NewAssignmentService(h.submission, storage)
	h.authoring = NewAssessmentService(h.assessments, h.catalogRepo)
	h.catalog = NewCatalogService(h.catalogRepo)
	h.certificates = NewCertificateService(repository.NewCertificateRepository(db), h.progress, h.notifier)
	return h
}

func (h *harness) user(name string, role model.UserRole) *model.User {
	h.t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(h.t, h.users.Create(h.ctx, u))
	return u
}

// series 创建一个系列及 n 门课程
func (h *harness) series(n int) (*model.Series, []*model.Course) {
	h.t.Helper()
	s, err := h.catalog.CreateSeries(h.ctx, CreateSeriesRequest{Title: "C Programming"})
	require.NoError(h.t, err)
	courses := make([]*model.Course, 0, n)
	for i := 0; i < n; i++ {
		c, err := h.catalog.CreateCourse(h.ctx, s.ID, CreateCourseRequest{Title: fmt.Sprintf("Course %d", i+1), Position: i})
		require.NoError(h.t, err)
		courses = append(courses, c)
	}
	return s, courses
}

func (h *harness) enroll(userID, seriesID uint) *model.Enrollment {
	h.t.Helper()
	e, err := h.progress.Enroll(h.ctx, userID, seriesID)
	require.NoError(h.t, err)
	return e
}

func (h *harness) lesson(courseID uint, title string) *model.Lesson {
	h.t.Helper()
	l, err := h.catalog.CreateLesson(h.ctx, courseID, CreateLessonRequest{Title: title})
	require.NoError(h.t, err)
	return l
}

// publish 创建并发布测评
func (h *harness) publish(req CreateAssessmentRequest) *model.Assessment {
	h.t.Helper()
	a, err := h.authoring.Create(h.ctx, req)
	require.NoError(h.t, err)
	published := true
	a, err = h.authoring.Update(h.ctx, a.ID, UpdateAssessmentRequest{IsPublished: &published})
	require.NoError(h.t, err)
	full, err := h.authoring.Get(h.ctx, a.ID)
	require.NoError(h.t, err)
	return full
}

// twoQuestionQuiz 第一题 5 分正确选项 A；第二题 5 分正确选项 B、C
func (h *harness) twoQuestionQuiz(courseID uint) *model.Assessment {
	return h.publish(CreateAssessmentRequest{
		Kind:     model.AssessmentQuiz,
		Title:    "Pointers quiz",
		CourseID: courseID,
		Questions: []QuestionRequest{
			{Content: "Q1", Points: 5, Position: 1, Options: []OptionRequest{
				{Content: "A", IsCorrect: true, Position: 1},
				{Content: "B", Position: 2},
			}},
			{Content: "Q2", Points: 5, Position: 2, Options: []OptionRequest{
				{Content: "A", Position: 1},
				{Content: "B", IsCorrect: true, Position: 2},
				{Content: "C", IsCorrect: true, Position: 3},
				{Content: "D", Position: 4},
			}},
		},
	})
}

func (h *harness) newAssignment(courseID uint, points ...int) *model.Assessment {
	req := CreateAssessmentRequest{Kind: model.AssessmentAssignment, Title: "Linked list homework", CourseID: courseID}
	for i, p := range points {
		req.Questions = append(req.Questions, QuestionRequest{Content: fmt.Sprintf("Task %d", i+1), Points: p, Position: i + 1})
	}
	return h.publish(req)
}

func optionByContent(q model.Question, content string) *uint {
	for _, o := range q.Options {
		if o.Content == content {
			id := o.ID
			return &id
		}
	}
	return nil
}

func (h *harness) reloadSubmission(id uint) *model.Submission {
	h.t.Helper()
	s, err := h.submissions.FindByIDWithAnswers(h.ctx, id)
	require.NoError(h.t, err)
	return s
}

func ptr[T any](v T) *T {
	return &v
}
