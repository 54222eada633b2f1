package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// SubmissionResult 评分操作的统一返回
type SubmissionResult struct {
	SubmissionID  uint                   `json:"submissionId"`
	TotalGrade    int                    `json:"totalGrade"`
	TotalPossible int                    `json:"totalPossible"`
	Percentage    int                    `json:"percentage"`
	Status        model.SubmissionStatus `json:"status"`
	IsLate        bool                   `json:"isLate"`
}

func newSubmissionResult(s *model.Submission) *SubmissionResult {
	return &SubmissionResult{
		SubmissionID:  s.ID,
		TotalGrade:    s.TotalGrade,
		TotalPossible: s.TotalPossible,
		Percentage:    s.Percentage,
		Status:        s.Status,
		IsLate:        s.IsLate,
	}
}

// SubmissionService 提交前置校验与提交查询，测验和作业评分共用
type SubmissionService struct {
	DB          *gorm.DB
	Assessments *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	Catalog     *repository.CatalogRepository
	Progress    *repository.ProgressRepository
	Rules       *GradingRulesResolver
	Events      ProgressPublisher
}

func NewSubmissionService(
	db *gorm.DB,
	assessments *repository.AssessmentRepository,
	submissions *repository.SubmissionRepository,
	catalog *repository.CatalogRepository,
	progress *repository.ProgressRepository,
	events ProgressPublisher,
) *SubmissionService {
	return &SubmissionService{
		DB:          db,
		Assessments: assessments,
		Submissions: submissions,
		Catalog:     catalog,
		Progress:    progress,
		Rules:       NewGradingRulesResolver(assessments),
		Events:      events,
	}
}

// checkSubmittable 依次检查：测评存在且类型匹配、已开放、报名有效、尚未提交
func (s *SubmissionService) checkSubmittable(ctx context.Context, studentID, assessmentID uint, kind model.AssessmentKind) (*model.Assessment, *model.Course, error) {
	a, err := s.Assessments.FindAssessmentByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: %s %d", util.ErrNotFound, kind, assessmentID)
		}
		return nil, nil, storageErr(err)
	}
	if a.Kind != kind {
		return nil, nil, fmt.Errorf("%w: %s %d", util.ErrNotFound, kind, assessmentID)
	}
	if !a.Open() {
		return nil, nil, fmt.Errorf("%w: %s %d is not open for submissions", util.ErrInvalidState, kind, assessmentID)
	}

	course, err := s.Catalog.FindCourseByID(ctx, a.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: course %d", util.ErrNotFound, a.CourseID)
		}
		return nil, nil, storageErr(err)
	}

	ok, err := s.Progress.IsEligible(ctx, studentID, course.SeriesID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: no active enrollment in series %d", util.ErrNotEligible, course.SeriesID)
	}

	exists, err := s.Submissions.Exists(ctx, assessmentID, studentID)
	if err != nil {
		return nil, nil, storageErr(err)
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: %s %d", util.ErrAlreadySubmitted, kind, assessmentID)
	}
	return a, course, nil
}

func (s *SubmissionService) publish(ctx context.Context, ev ProgressEvent) {
	if s.Events != nil {
		s.Events.Publish(ctx, ev)
	}
}

// Get 学生只能查看自己的提交
func (s *SubmissionService) Get(ctx context.Context, viewer *util.Claims, submissionID uint) (*model.Submission, error) {
	sub, err := s.Submissions.FindByIDWithAnswers(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, submissionID)
		}
		return nil, storageErr(err)
	}
	if viewer != nil && !viewer.IsStaff() && sub.StudentID != viewer.UserID {
		return nil, fmt.Errorf("%w: submission %d", util.ErrPermissionDenied, submissionID)
	}
	return sub, nil
}

func (s *SubmissionService) GetMine(ctx context.Context, studentID, assessmentID uint) (*model.Submission, error) {
	sub, err := s.Submissions.FindByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no submission for assessment %d", util.ErrNotFound, assessmentID)
		}
		return nil, storageErr(err)
	}
	return s.Get(ctx, nil, sub.ID)
}

func (s *SubmissionService) List(ctx context.Context, assessmentID uint, status string, page, limit int) ([]model.Submission, int64, error) {
	if _, err := s.Assessments.FindAssessmentByID(ctx, assessmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("%w: assessment %d", util.ErrNotFound, assessmentID)
		}
		return nil, 0, storageErr(err)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, total, err := s.Submissions.ListByAssessment(ctx, assessmentID, strings.ToUpper(status), page, limit)
	return list, total, storageErr(err)
}

// gradingOutcome 指标标签：ok 或错误分类
func gradingOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(util.ErrorKind(err))
}
