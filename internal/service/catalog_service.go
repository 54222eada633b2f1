package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// CatalogService 系列、课程与课时的维护
type CatalogService struct {
	Repo *repository.CatalogRepository
}

func NewCatalogService(repo *repository.CatalogRepository) *CatalogService {
	return &CatalogService{Repo: repo}
}

type CreateSeriesRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type CreateCourseRequest struct {
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position"`
}

type CreateLessonRequest struct {
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position"`
}

func (s *CatalogService) CreateSeries(ctx context.Context, req CreateSeriesRequest) (*model.Series, error) {
	series := &model.Series{Title: req.Title, Description: req.Description}
	if err := s.Repo.CreateSeries(ctx, series); err != nil {
		return nil, storageErr(err)
	}
	return series, nil
}

func (s *CatalogService) GetSeries(ctx context.Context, id uint) (*model.Series, error) {
	series, err := s.Repo.FindSeriesWithCourses(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: series %d", util.ErrNotFound, id)
		}
		return nil, storageErr(err)
	}
	return series, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, seriesID uint, req CreateCourseRequest) (*model.Course, error) {
	if _, err := s.Repo.FindSeriesByID(ctx, seriesID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: series %d", util.ErrNotFound, seriesID)
		}
		return nil, storageErr(err)
	}
	course := &model.Course{SeriesID: seriesID, Title: req.Title, Position: req.Position}
	if err := s.Repo.CreateCourse(ctx, course); err != nil {
		return nil, storageErr(err)
	}
	return course, nil
}

func (s *CatalogService) CreateLesson(ctx context.Context, courseID uint, req CreateLessonRequest) (*model.Lesson, error) {
	if _, err := s.Repo.FindCourseByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d", util.ErrNotFound, courseID)
		}
		return nil, storageErr(err)
	}
	lesson := &model.Lesson{CourseID: courseID, Title: req.Title, Position: req.Position}
	if err := s.Repo.CreateLesson(ctx, lesson); err != nil {
		return nil, storageErr(err)
	}
	return lesson, nil
}
