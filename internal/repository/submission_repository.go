package repository

import (
	"coder_edu_assessment/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository 提交与作答记录的存储，唯一键 (assessment_id, student_id) 由数据库保证
type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

// Create 连同 Answers 一起插入；重复提交时返回 gorm.ErrDuplicatedKey
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *SubmissionRepository) FindByIDWithAnswers(ctx context.Context, id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id asc")
		}).
		First(&s, id).Error
	return &s, err
}

func (r *SubmissionRepository) FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) Exists(ctx context.Context, assessmentID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *SubmissionRepository) ListByAssessment(ctx context.Context, assessmentID uint, status string, page, limit int) ([]model.Submission, int64, error) {
	var ss []model.Submission
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Submission{}).Where("assessment_id = ?", assessmentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("submitted_at desc, id desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

// StatusesForStudent 返回学生在给定测评上的提交状态，未提交的测评不出现在结果中
func (r *SubmissionRepository) StatusesForStudent(ctx context.Context, studentID uint, assessmentIDs []uint) (map[uint]model.SubmissionStatus, error) {
	result := make(map[uint]model.SubmissionStatus, len(assessmentIDs))
	if len(assessmentIDs) == 0 {
		return result, nil
	}

	type row struct {
		AssessmentID uint
		Status       model.SubmissionStatus
	}
	var rows []row
	err := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Select("assessment_id, status").
		Where("student_id = ? AND assessment_id IN ?", studentID, assessmentIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		result[rw.AssessmentID] = rw.Status
	}
	return result, nil
}

// UpsertAnswerGrades 按 (submission_id, question_id) 插入或覆盖分数与评语
func (r *SubmissionRepository) UpsertAnswerGrades(ctx context.Context, answers []model.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points_awarded", "feedback", "updated_at"}),
	}).Create(&answers).Error
}

// UpdateAnswerGrade 只更新已存在的作答，返回受影响行数
func (r *SubmissionRepository) UpdateAnswerGrade(ctx context.Context, submissionID, questionID uint, points int, feedback *string) (int64, error) {
	updates := map[string]interface{}{
		"points_awarded": points,
		"updated_at":     time.Now(),
	}
	if feedback != nil {
		updates["feedback"] = *feedback
	}
	res := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.WithContext(ctx).Where("submission_id = ?", submissionID).Order("question_id asc").Find(&answers).Error
	return answers, err
}

func (r *SubmissionRepository) FindAnswer(ctx context.Context, submissionID, questionID uint) (*model.Answer, error) {
	var a model.Answer
	err := r.DB.WithContext(ctx).Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&a).Error
	return &a, err
}

// SumAnswerPoints 汇总该提交下全部作答的得分
func (r *SubmissionRepository) SumAnswerPoints(ctx context.Context, submissionID uint) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("submission_id = ?", submissionID).
		Select("COALESCE(SUM(points_awarded), 0)").
		Scan(&total).Error
	return int(total), err
}

// UpdateGradeAggregate 只写回汇总字段，避免覆盖作答
func (r *SubmissionRepository) UpdateGradeAggregate(ctx context.Context, s *model.Submission) error {
	return r.DB.WithContext(ctx).Model(s).
		Select("status", "total_grade", "total_possible", "percentage", "feedback", "graded_at", "updated_at").
		Updates(s).Error
}

func (r *SubmissionRepository) SetAnswerAttachment(ctx context.Context, answerID uint, url string) error {
	return r.DB.WithContext(ctx).Model(&model.Answer{}).Where("id = ?", answerID).Update("attachment_url", url).Error
}
