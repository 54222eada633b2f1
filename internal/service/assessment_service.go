package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssessmentService 测评与题目的编辑
type AssessmentService struct {
	Repo    *repository.AssessmentRepository
	Catalog *repository.CatalogRepository
}

func NewAssessmentService(repo *repository.AssessmentRepository, catalog *repository.CatalogRepository) *AssessmentService {
	return &AssessmentService{Repo: repo, Catalog: catalog}
}

type OptionRequest struct {
	ID        uint   `json:"id"` // 更新时用于保留原选项
	Content   string `json:"content" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Position  int    `json:"position"`
}

type QuestionRequest struct {
	Content  string          `json:"content" binding:"required"`
	Points   int             `json:"points" binding:"min=0"`
	Position int             `json:"position"`
	Options  []OptionRequest `json:"options" binding:"dive"`
}

type CreateAssessmentRequest struct {
	Kind        model.AssessmentKind `json:"kind" binding:"required,oneof=quiz assignment"`
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	CourseID    uint                 `json:"courseId" binding:"required"`
	DueAt       *time.Time           `json:"dueAt"`
	Questions   []QuestionRequest    `json:"questions" binding:"dive"`
}

type UpdateQuestionRequest struct {
	Content  *string          `json:"content"`
	Points   *int             `json:"points"`
	Position *int             `json:"position"`
	Options  *[]OptionRequest `json:"options"`
}

type UpdateAssessmentRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"dueAt"`
	ClearDueAt  bool       `json:"clearDueAt"`
	IsPublished *bool      `json:"isPublished"`
	IsLocked    *bool      `json:"isLocked"`
}

// 学生视图不包含正确答案
type OptionView struct {
	ID       uint   `json:"id"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type QuestionView struct {
	ID       uint         `json:"id"`
	Content  string       `json:"content"`
	Points   int          `json:"points"`
	Position int          `json:"position"`
	Options  []OptionView `json:"options,omitempty"`
}

type AssessmentView struct {
	ID            uint                 `json:"id"`
	Kind          model.AssessmentKind `json:"kind"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	CourseID      uint                 `json:"courseId"`
	DueAt         *time.Time           `json:"dueAt,omitempty"`
	TotalPossible int                  `json:"totalPossible"`
	Questions     []QuestionView       `json:"questions"`
}

func (s *AssessmentService) Create(ctx context.Context, req CreateAssessmentRequest) (*model.Assessment, error) {
	if _, err := s.Catalog.FindCourseByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d", util.ErrNotFound, req.CourseID)
		}
		return nil, storageErr(err)
	}

	a := &model.Assessment{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		CourseID:    req.CourseID,
		DueAt:       req.DueAt,
	}
	for i, qr := range req.Questions {
		if qr.Points < 0 {
			return nil, fmt.Errorf("%w: question %d has negative points", util.ErrInvalidArgument, i+1)
		}
		q := model.Question{Content: qr.Content, Points: qr.Points, Position: qr.Position}
		if req.Kind == model.AssessmentQuiz {
			q.Options = buildOptions(qr.Options)
			for j := range q.Options {
				q.Options[j].ID = 0
			}
		}
		a.Questions = append(a.Questions, q)
	}

	if err := s.Repo.CreateAssessment(ctx, a); err != nil {
		return nil, storageErr(err)
	}
	logger.Log.Info("Assessment created", zap.Uint("assessmentId", a.ID), zap.String("kind", string(a.Kind)))
	return a, nil
}

func buildOptions(reqs []OptionRequest) []model.Option {
	options := make([]model.Option, 0, len(reqs))
	for _, o := range reqs {
		options = append(options, model.Option{
			BaseModel: model.BaseModel{ID: o.ID},
			Content:   o.Content,
			IsCorrect: o.IsCorrect,
			Position:  o.Position,
		})
	}
	return options
}

// Get 教师视图，包含正确选项
func (s *AssessmentService) Get(ctx context.Context, id uint) (*model.Assessment, error) {
	a, err := s.Repo.FindAssessmentWithQuestions(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assessment %d", util.ErrNotFound, id)
		}
		return nil, storageErr(err)
	}
	return a, nil
}

// GetForStudent 未发布的测评对学生不可见
func (s *AssessmentService) GetForStudent(ctx context.Context, id uint) (*AssessmentView, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, fmt.Errorf("%w: assessment %d", util.ErrNotFound, id)
	}

	view := &AssessmentView{
		ID:          a.ID,
		Kind:        a.Kind,
		Title:       a.Title,
		Description: a.Description,
		CourseID:    a.CourseID,
		DueAt:       a.DueAt,
		Questions:   make([]QuestionView, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		qv := QuestionView{ID: q.ID, Content: q.Content, Points: q.Points, Position: q.Position}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: o.ID, Content: o.Content, Position: o.Position})
		}
		view.TotalPossible += q.Points
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

func (s *AssessmentService) ListByCourse(ctx context.Context, courseID uint, publishedOnly bool) ([]model.Assessment, error) {
	list, err := s.Repo.ListByCourse(ctx, courseID, publishedOnly)
	return list, storageErr(err)
}

func (s *AssessmentService) Update(ctx context.Context, id uint, req UpdateAssessmentRequest) (*model.Assessment, error) {
	a, err := s.Repo.FindAssessmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assessment %d", util.ErrNotFound, id)
		}
		return nil, storageErr(err)
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.ClearDueAt {
		a.DueAt = nil
	} else if req.DueAt != nil {
		a.DueAt = req.DueAt
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !a.IsPublished {
			now := time.Now()
			a.PublishedAt = &now
		}
		a.IsPublished = *req.IsPublished
	}
	if req.IsLocked != nil {
		a.IsLocked = *req.IsLocked
	}

	if err := s.Repo.UpdateAssessment(ctx, a); err != nil {
		return nil, storageErr(err)
	}
	return a, nil
}

// UpdateQuestion 修改分值或选项；已完成的评分不会重算，后续评分按新规则进行
func (s *AssessmentService) UpdateQuestion(ctx context.Context, assessmentID, questionID uint, req UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.Repo.FindQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: question %d", util.ErrNotFound, questionID)
		}
		return nil, storageErr(err)
	}
	if q.AssessmentID != assessmentID {
		return nil, fmt.Errorf("%w: question %d does not belong to assessment %d", util.ErrInvalidQuestion, questionID, assessmentID)
	}

	if req.Content != nil {
		q.Content = *req.Content
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return nil, fmt.Errorf("%w: points must not be negative", util.ErrInvalidArgument)
		}
		q.Points = *req.Points
	}
	if req.Position != nil {
		q.Position = *req.Position
	}

	var options []model.Option
	if req.Options != nil {
		options = buildOptions(*req.Options)
	}
	if err := s.Repo.UpdateQuestion(ctx, q, options); err != nil {
		return nil, storageErr(err)
	}

	logger.Log.Info("Question updated",
		zap.Uint("assessmentId", assessmentID), zap.Uint("questionId", questionID), zap.Int("points", q.Points))
	return s.Repo.FindQuestionByID(ctx, questionID)
}
