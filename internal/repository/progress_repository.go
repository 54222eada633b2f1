package repository

import (
	"coder_edu_assessment/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 课程进度与系列报名，仅由进度汇总服务写入
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) FindCourseProgress(ctx context.Context, courseID, userID uint) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).Where("course_id = ? AND user_id = ?", courseID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrCreateCourseProgress 并发下依赖唯一索引，冲突时重新读取并锁住该行，需在事务内调用
func (r *ProgressRepository) FindOrCreateCourseProgress(ctx context.Context, course *model.Course, userID uint) (*model.CourseProgress, error) {
	p := &model.CourseProgress{
		CourseID: course.ID,
		UserID:   userID,
		SeriesID: course.SeriesID,
		State:    model.ProgressPending,
	}
	if err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error; err != nil {
		return nil, err
	}
	return r.FindCourseProgressForUpdate(ctx, course.ID, userID)
}

// FindCourseProgressForUpdate 需在事务内调用，持锁直到提交
func (r *ProgressRepository) FindCourseProgressForUpdate(ctx context.Context, courseID, userID uint) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("course_id = ? AND user_id = ?", courseID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) SaveCourseProgress(ctx context.Context, p *model.CourseProgress) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *ProgressRepository) ListCourseProgressBySeries(ctx context.Context, userID, seriesID uint) ([]model.CourseProgress, error) {
	var ps []model.CourseProgress
	err := r.DB.WithContext(ctx).Where("user_id = ? AND series_id = ?", userID, seriesID).Order("course_id asc").Find(&ps).Error
	return ps, err
}

func (r *ProgressRepository) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *ProgressRepository) FindEnrollment(ctx context.Context, seriesID, userID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Where("series_id = ? AND user_id = ?", seriesID, userID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEnrollmentForUpdate 锁住报名行，同一 (系列, 用户) 的汇总因此串行执行
func (r *ProgressRepository) FindEnrollmentForUpdate(ctx context.Context, seriesID, userID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("series_id = ? AND user_id = ?", seriesID, userID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ProgressRepository) SaveEnrollment(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Save(e).Error
}

func (r *ProgressRepository) ListEnrollmentsByStatus(ctx context.Context, status model.EnrollmentStatus) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.DB.WithContext(ctx).Where("status = ?", status).Order("id asc").Find(&es).Error
	return es, err
}

// IsEligible 学生持有 ACTIVE 或 COMPLETED 报名即可提交
func (r *ProgressRepository) IsEligible(ctx context.Context, studentID, seriesID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("series_id = ? AND user_id = ? AND status IN ?", seriesID, studentID,
			[]model.EnrollmentStatus{model.EnrollmentActive, model.EnrollmentCompleted}).
		Count(&count).Error
	return count > 0, err
}

func (r *ProgressRepository) CreateEventLog(ctx context.Context, l *model.ProgressEventLog) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}
