package repository

import (
	"coder_edu_assessment/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository 系列、课程、课时及课时完成记录
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: tx}
}

func (r *CatalogRepository) CreateSeries(ctx context.Context, s *model.Series) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *CatalogRepository) FindSeriesByID(ctx context.Context, id uint) (*model.Series, error) {
	var s model.Series
	err := r.DB.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *CatalogRepository) FindSeriesWithCourses(ctx context.Context, id uint) (*model.Series, error) {
	var s model.Series
	err := r.DB.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Preload("Courses.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		First(&s, id).Error
	return &s, err
}

func (r *CatalogRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CatalogRepository) FindCourseByID(ctx context.Context, id uint) (*model.Course, error) {
	var c model.Course
	err := r.DB.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *CatalogRepository) ListCoursesBySeries(ctx context.Context, seriesID uint) ([]model.Course, error) {
	var cs []model.Course
	err := r.DB.WithContext(ctx).Where("series_id = ?", seriesID).Order("position asc, id asc").Find(&cs).Error
	return cs, err
}

func (r *CatalogRepository) CreateLesson(ctx context.Context, l *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *CatalogRepository) FindLessonByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var l model.Lesson
	err := r.DB.WithContext(ctx).First(&l, id).Error
	return &l, err
}

func (r *CatalogRepository) CountLessons(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

// CountCompletedLessons 只统计仍存在的课时
func (r *CatalogRepository) CountCompletedLessons(ctx context.Context, userID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_completions.user_id = ? AND lesson_completions.course_id = ?", userID, courseID).
		Count(&count).Error
	return count, err
}

// CreateLessonCompletion 幂等，已完成的课时不会重复插入
func (r *CatalogRepository) CreateLessonCompletion(ctx context.Context, lc *model.LessonCompletion) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(lc)
	return res.RowsAffected > 0, res.Error
}
