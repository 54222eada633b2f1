package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// ProgressService 课程进度与系列报名的唯一写入方
type ProgressService struct {
	DB          *gorm.DB
	Catalog     *repository.CatalogRepository
	Assessments *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	Progress    *repository.ProgressRepository
	Users       *repository.UserRepository
	Notifier    Notifier
}

func NewProgressService(
	db *gorm.DB,
	catalog *repository.CatalogRepository,
	assessments *repository.AssessmentRepository,
	submissions *repository.SubmissionRepository,
	progress *repository.ProgressRepository,
	users *repository.UserRepository,
	notifier Notifier,
) *ProgressService {
	if notifier == nil {
		notifier = &LogNotifier{}
	}
	return &ProgressService{
		DB:          db,
		Catalog:     catalog,
		Assessments: assessments,
		Submissions: submissions,
		Progress:    progress,
		Users:       users,
		Notifier:    notifier,
	}
}

// SeriesProgress 系列下每门课程的进度及报名汇总
type SeriesProgress struct {
	Enrollment *model.Enrollment      `json:"enrollment"`
	Courses    []model.CourseProgress `json:"courses"`
}

// HandleEvent 进度事件入口，失败只记录日志
func (s *ProgressService) HandleEvent(ctx context.Context, ev ProgressEvent) {
	ctx, span := tracing.StartSpan(ctx, "progress.HandleEvent",
		attribute.String("reason", string(ev.Reason)),
		attribute.Int64("userId", int64(ev.UserID)),
		attribute.Int64("courseId", int64(ev.CourseID)),
	)

	_, err := s.Recompute(ctx, ev.UserID, ev.CourseID, ev.Force)
	defer tracing.EndSpan(span, err)
	outcome := outcomeUpdated
	switch {
	case err == nil:
	case errors.Is(err, util.ErrNotFound):
		outcome = outcomeSkipped
		logger.Log.Warn("Progress rollup skipped",
			zap.String("eventId", ev.ID), zap.Uint("userId", ev.UserID), zap.Uint("courseId", ev.CourseID), zap.Error(err))
	default:
		outcome = outcomeFailed
		logger.Log.Error("Progress rollup failed",
			zap.String("eventId", ev.ID), zap.Uint("userId", ev.UserID), zap.Uint("courseId", ev.CourseID), zap.Error(err))
	}
	monitoring.RecomputeCounter.WithLabelValues(outcome).Inc()
	s.logEvent(ctx, ev, outcome, err)
}

func (s *ProgressService) logEvent(ctx context.Context, ev ProgressEvent, outcome string, cause error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Failed to marshal progress event", zap.Error(err))
		return
	}
	entry := &model.ProgressEventLog{
		EventID:  ev.ID,
		UserID:   ev.UserID,
		CourseID: ev.CourseID,
		Reason:   string(ev.Reason),
		Payload:  datatypes.JSON(payload),
		Outcome:  outcome,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := s.Progress.CreateEventLog(ctx, entry); err != nil {
		logger.Log.Warn("Failed to write progress event log", zap.String("eventId", ev.ID), zap.Error(err))
	}
}

// Recompute 重新计算 (user, course) 的课程进度并汇总到系列报名
func (s *ProgressService) Recompute(ctx context.Context, userID, courseID uint, force bool) (*model.CourseProgress, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	pct, err := s.coursePercentage(ctx, userID, course)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, course, pct, force)
}

// MarkCourseComplete 管理员直接将课程标记为完成
func (s *ProgressService) MarkCourseComplete(ctx context.Context, userID, courseID uint) (*model.CourseProgress, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	cp, err := s.apply(ctx, userID, course, 100, false)
	ev := NewProgressEvent(userID, courseID, ReasonCourseCompleted)
	outcome := outcomeUpdated
	if err != nil {
		outcome = outcomeFailed
	}
	monitoring.RecomputeCounter.WithLabelValues(outcome).Inc()
	s.logEvent(ctx, ev, outcome, err)
	return cp, err
}

// MarkLessonComplete 记录课时完成并触发所属课程的重算
func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID uint) error {
	lesson, err := s.Catalog.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: lesson %d", util.ErrNotFound, lessonID)
		}
		return storageErr(err)
	}
	course, err := s.findCourse(ctx, lesson.CourseID)
	if err != nil {
		return err
	}
	ok, err := s.Progress.IsEligible(ctx, userID, course.SeriesID)
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: no active enrollment in series %d", util.ErrNotEligible, course.SeriesID)
	}

	created, err := s.Catalog.CreateLessonCompletion(ctx, &model.LessonCompletion{
		UserID:      userID,
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		CompletedAt: time.Now(),
	})
	if err != nil {
		return storageErr(err)
	}
	if created {
		s.HandleEvent(ctx, NewProgressEvent(userID, lesson.CourseID, ReasonLessonCompleted))
	}
	return nil
}

// Enroll 报名系列；已取消的报名重新激活
// SyncUser 缓存令牌中的身份信息供通知使用，失败只记录日志
func (s *ProgressService) SyncUser(ctx context.Context, claims *util.Claims) {
	name, _, _ := strings.Cut(claims.Email, "@")
	u := &model.User{BaseModel: model.BaseModel{ID: claims.UserID}, Name: name, Email: claims.Email, Role: claims.Role}
	if err := s.Users.Upsert(ctx, u); err != nil {
		logger.Log.Warn("Failed to sync user", zap.Uint("userId", claims.UserID), zap.Error(err))
	}
}

func (s *ProgressService) Enroll(ctx context.Context, userID, seriesID uint) (*model.Enrollment, error) {
	if _, err := s.Catalog.FindSeriesByID(ctx, seriesID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: series %d", util.ErrNotFound, seriesID)
		}
		return nil, storageErr(err)
	}

	e, err := s.Progress.FindEnrollment(ctx, seriesID, userID)
	switch {
	case err == nil:
		if e.Status == model.EnrollmentCancelled {
			e.Status = model.EnrollmentActive
			if err := s.Progress.SaveEnrollment(ctx, e); err != nil {
				return nil, storageErr(err)
			}
		}
		return e, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storageErr(err)
	}

	e = &model.Enrollment{
		SeriesID:   seriesID,
		UserID:     userID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := s.Progress.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.Progress.FindEnrollment(ctx, seriesID, userID)
		}
		return nil, storageErr(err)
	}
	return e, nil
}

// IsEligible 学生是否持有可提交测评的报名
func (s *ProgressService) IsEligible(ctx context.Context, userID, seriesID uint) (bool, error) {
	ok, err := s.Progress.IsEligible(ctx, userID, seriesID)
	return ok, storageErr(err)
}

// IsSeriesComplete 证书发放前唯一的检查
func (s *ProgressService) IsSeriesComplete(ctx context.Context, userID, seriesID uint) (bool, error) {
	e, err := s.Progress.FindEnrollment(ctx, seriesID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storageErr(err)
	}
	return e.Status == model.EnrollmentCompleted, nil
}

func (s *ProgressService) GetSeriesProgress(ctx context.Context, userID, seriesID uint) (*SeriesProgress, error) {
	e, err := s.Progress.FindEnrollment(ctx, seriesID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: enrollment for series %d", util.ErrNotFound, seriesID)
		}
		return nil, storageErr(err)
	}
	courses, err := s.Catalog.ListCoursesBySeries(ctx, seriesID)
	if err != nil {
		return nil, storageErr(err)
	}
	rows, err := s.Progress.ListCourseProgressBySeries(ctx, userID, seriesID)
	if err != nil {
		return nil, storageErr(err)
	}
	byCourse := make(map[uint]model.CourseProgress, len(rows))
	for _, r := range rows {
		byCourse[r.CourseID] = r
	}

	result := &SeriesProgress{Enrollment: e, Courses: make([]model.CourseProgress, 0, len(courses))}
	for _, c := range courses {
		cp, ok := byCourse[c.ID]
		if !ok {
			cp = model.CourseProgress{CourseID: c.ID, UserID: userID, SeriesID: seriesID, State: model.ProgressPending}
		}
		result.Courses = append(result.Courses, cp)
	}
	return result, nil
}

// ReconcileAll 对所有 ACTIVE 报名逐门课程重算，返回处理的课程数
func (s *ProgressService) ReconcileAll(ctx context.Context) (int, error) {
	enrollments, err := s.Progress.ListEnrollmentsByStatus(ctx, model.EnrollmentActive)
	if err != nil {
		return 0, storageErr(err)
	}
	processed := 0
	for _, e := range enrollments {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		courses, err := s.Catalog.ListCoursesBySeries(ctx, e.SeriesID)
		if err != nil {
			logger.Log.Error("Reconcile: list courses failed", zap.Uint("seriesId", e.SeriesID), zap.Error(err))
			continue
		}
		for _, c := range courses {
			s.HandleEvent(ctx, NewProgressEvent(e.UserID, c.ID, ReasonReconcile))
			processed++
		}
	}
	return processed, nil
}

func (s *ProgressService) findCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	course, err := s.Catalog.FindCourseByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d", util.ErrNotFound, courseID)
		}
		return nil, storageErr(err)
	}
	return course, nil
}

// coursePercentage 完成项 = 课时 + 已发布测评；测验提交即完成，作业需评分
func (s *ProgressService) coursePercentage(ctx context.Context, userID uint, course *model.Course) (int, error) {
	lessons, err := s.Catalog.CountLessons(ctx, course.ID)
	if err != nil {
		return 0, storageErr(err)
	}
	doneLessons, err := s.Catalog.CountCompletedLessons(ctx, userID, course.ID)
	if err != nil {
		return 0, storageErr(err)
	}
	assessments, err := s.Assessments.ListByCourse(ctx, course.ID, true)
	if err != nil {
		return 0, storageErr(err)
	}
	ids := make([]uint, 0, len(assessments))
	for _, a := range assessments {
		ids = append(ids, a.ID)
	}
	statuses, err := s.Submissions.StatusesForStudent(ctx, userID, ids)
	if err != nil {
		return 0, storageErr(err)
	}

	done := int(doneLessons)
	for _, a := range assessments {
		if assessmentComplete(a.Kind, statuses[a.ID]) {
			done++
		}
	}
	return Percentage(done, int(lessons)+len(assessments)), nil
}

func assessmentComplete(kind model.AssessmentKind, status model.SubmissionStatus) bool {
	if kind == model.AssessmentAssignment {
		return status == model.SubmissionGraded
	}
	return status == model.SubmissionSubmitted || status == model.SubmissionGraded
}

func (s *ProgressService) apply(ctx context.Context, userID uint, course *model.Course, pct int, force bool) (result *model.CourseProgress, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.Recompute", attribute.Int("percentage", pct), attribute.Bool("force", force))
	defer func() { tracing.EndSpan(span, err) }()

	var (
		cp             *model.CourseProgress
		enrollment     *model.Enrollment
		seriesComplete bool
	)
	now := time.Now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress := s.Progress.WithTx(tx)
		catalog := s.Catalog.WithTx(tx)

		// 先锁报名行再锁课程进度行，所有汇总按同一顺序加锁
		e, err := progress.FindEnrollmentForUpdate(ctx, course.SeriesID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: enrollment for user %d in series %d", util.ErrNotFound, userID, course.SeriesID)
			}
			return err
		}

		cp, err = progress.FindOrCreateCourseProgress(ctx, course, userID)
		if err != nil {
			return err
		}
		if applyCourseProgress(cp, pct, force, now) {
			if err := progress.SaveCourseProgress(ctx, cp); err != nil {
				return err
			}
		}

		courses, err := catalog.ListCoursesBySeries(ctx, course.SeriesID)
		if err != nil {
			return err
		}
		rows, err := progress.ListCourseProgressBySeries(ctx, userID, course.SeriesID)
		if err != nil {
			return err
		}
		mean, allCompleted := rollupEnrollment(courses, rows)

		e.ProgressPercentage = mean
		if allCompleted && e.Status == model.EnrollmentActive {
			e.Status = model.EnrollmentCompleted
			e.CompletedAt = &now
			seriesComplete = true
		}
		enrollment = e
		return progress.SaveEnrollment(ctx, e)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	logger.Log.Debug("Progress recomputed",
		zap.Uint("userId", userID),
		zap.Uint("courseId", course.ID),
		zap.Uint("seriesId", course.SeriesID),
		zap.Int("coursePercentage", cp.CompletionPercentage),
		zap.Float64("enrollmentPercentage", enrollment.ProgressPercentage))

	if seriesComplete {
		s.notifySeriesCompleted(ctx, userID, course.SeriesID)
	}
	return cp, nil
}

func (s *ProgressService) notifySeriesCompleted(ctx context.Context, userID, seriesID uint) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("Series completed but user not found for notification", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	if !user.Notifiable() {
		return
	}
	series, err := s.Catalog.FindSeriesByID(ctx, seriesID)
	if err != nil {
		logger.Log.Warn("Series completed but series not found for notification", zap.Uint("seriesId", seriesID), zap.Error(err))
		return
	}
	if err := s.Notifier.SeriesCompleted(ctx, user, series); err != nil {
		logger.Log.Warn("Failed to send series completion notification",
			zap.Uint("userId", userID), zap.Uint("seriesId", seriesID), zap.Error(err))
	}
}

// applyCourseProgress 应用新的完成百分比，返回是否有变化。
// COMPLETED 为终态；非 force 时百分比只增不减。
func applyCourseProgress(cp *model.CourseProgress, pct int, force bool, now time.Time) bool {
	if cp.State == model.ProgressCompleted {
		return false
	}
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	if !force && pct < cp.CompletionPercentage {
		pct = cp.CompletionPercentage
	}

	before := *cp
	cp.CompletionPercentage = pct
	if pct > 0 && cp.StartedAt == nil {
		cp.StartedAt = &now
	}
	switch {
	case pct == 100:
		cp.State = model.ProgressCompleted
		cp.IsCompleted = true
		cp.CompletedAt = &now
	case pct > 0:
		cp.State = model.ProgressInProgress
	case cp.StartedAt == nil:
		cp.State = model.ProgressPending
	}

	return before.CompletionPercentage != cp.CompletionPercentage ||
		before.State != cp.State ||
		before.StartedAt != cp.StartedAt
}

// rollupEnrollment 系列下所有课程完成百分比的算术平均，缺少记录的课程按 0 计
func rollupEnrollment(courses []model.Course, rows []model.CourseProgress) (float64, bool) {
	if len(courses) == 0 {
		return 0, false
	}
	byCourse := make(map[uint]model.CourseProgress, len(rows))
	for _, r := range rows {
		byCourse[r.CourseID] = r
	}

	sum := 0
	allCompleted := true
	for _, c := range courses {
		cp, ok := byCourse[c.ID]
		if !ok {
			allCompleted = false
			continue
		}
		sum += cp.CompletionPercentage
		if cp.State != model.ProgressCompleted {
			allCompleted = false
		}
	}
	mean := float64(sum) / float64(len(courses))
	return math.Round(mean*100) / 100, allCompleted
}
