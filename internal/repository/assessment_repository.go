package repository

import (
	"coder_edu_assessment/internal/model"
	"context"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// WithTx 返回绑定到事务的仓储
func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

// CreateAssessment 连同题目与选项一起创建
func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AssessmentRepository) FindAssessmentByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) FindAssessmentWithQuestions(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Omit("Questions").Save(a).Error
}

func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID uint, publishedOnly bool) ([]model.Assessment, error) {
	var as []model.Assessment
	query := r.DB.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	err := query.Order("id asc").Find(&as).Error
	return as, err
}

// ListQuestions 按 position、id 升序返回当前题目配置（含选项）
func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Order("position asc, id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) FindQuestionByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).Preload("Options").First(&q, id).Error
	return &q, err
}

// UpdateQuestion 更新题目；options 非 nil 时同步选项：带 ID 的更新，不带 ID 的新增，缺失的删除
func (r *AssessmentRepository) UpdateQuestion(ctx context.Context, q *model.Question, options []model.Option) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Options").Save(q).Error; err != nil {
			return err
		}
		if options == nil {
			return nil
		}

		var existing []model.Option
		if err := tx.Where("question_id = ?", q.ID).Find(&existing).Error; err != nil {
			return err
		}
		existingMap := make(map[uint]bool, len(existing))
		for _, o := range existing {
			existingMap[o.ID] = true
		}

		kept := make(map[uint]bool)
		for i := range options {
			options[i].QuestionID = q.ID
			if options[i].ID != 0 && existingMap[options[i].ID] {
				if err := tx.Model(&model.Option{}).Where("id = ?", options[i].ID).Updates(map[string]interface{}{
					"content":    options[i].Content,
					"is_correct": options[i].IsCorrect,
					"position":   options[i].Position,
				}).Error; err != nil {
					return err
				}
				kept[options[i].ID] = true
				continue
			}
			options[i].ID = 0
			if err := tx.Create(&options[i]).Error; err != nil {
				return err
			}
		}

		for id := range existingMap {
			if !kept[id] {
				if err := tx.Delete(&model.Option{}, id).Error; err != nil {
					return err
				}
			}
		}
		q.Options = options
		return nil
	})
}
