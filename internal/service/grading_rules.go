package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
)

// GradableItem 单个可评分题目
type GradableItem struct {
	QuestionID       uint
	MaxPoints        int
	Position         int
	CorrectOptionIDs []uint // 仅测验
}

// IsCorrectOption 未选择任何选项视为错误
func (i GradableItem) IsCorrectOption(optionID *uint) bool {
	if optionID == nil {
		return false
	}
	for _, id := range i.CorrectOptionIDs {
		if id == *optionID {
			return true
		}
	}
	return false
}

// GradingRules 测评当前的评分规则，按 position、id 排序
type GradingRules struct {
	Assessment *model.Assessment
	Items      []GradableItem
	index      map[uint]int
}

func (r *GradingRules) Item(questionID uint) (GradableItem, bool) {
	i, ok := r.index[questionID]
	if !ok {
		return GradableItem{}, false
	}
	return r.Items[i], true
}

// TotalPossible 全部题目的满分之和
func (r *GradingRules) TotalPossible() int {
	total := 0
	for _, it := range r.Items {
		total += it.MaxPoints
	}
	return total
}

// GradingRulesResolver 每次评分都从存储读取最新规则，不做缓存
type GradingRulesResolver struct {
	Repo *repository.AssessmentRepository
}

func NewGradingRulesResolver(repo *repository.AssessmentRepository) *GradingRulesResolver {
	return &GradingRulesResolver{Repo: repo}
}

func (r *GradingRulesResolver) WithTx(tx *gorm.DB) *GradingRulesResolver {
	return &GradingRulesResolver{Repo: r.Repo.WithTx(tx)}
}

func (r *GradingRulesResolver) Resolve(ctx context.Context, assessmentID uint) (*GradingRules, error) {
	a, err := r.Repo.FindAssessmentWithQuestions(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assessment %d", util.ErrNotFound, assessmentID)
		}
		return nil, fmt.Errorf("%w: %v", util.ErrStorage, err)
	}

	rules := &GradingRules{
		Assessment: a,
		Items:      make([]GradableItem, 0, len(a.Questions)),
		index:      make(map[uint]int, len(a.Questions)),
	}
	for _, q := range a.Questions {
		item := GradableItem{
			QuestionID: q.ID,
			MaxPoints:  q.Points,
			Position:   q.Position,
		}
		if a.Kind == model.AssessmentQuiz {
			for _, o := range q.Options {
				if o.IsCorrect {
					item.CorrectOptionIDs = append(item.CorrectOptionIDs, o.ID)
				}
			}
		}
		rules.index[q.ID] = len(rules.Items)
		rules.Items = append(rules.Items, item)
	}
	return rules, nil
}

// Percentage round(earned/possible*100)，possible 为 0 时返回 0
func Percentage(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(possible) * 100))
}

// storageErr 将非业务错误包装为存储错误
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		util.ErrNotFound, util.ErrAlreadySubmitted, util.ErrInvalidQuestion, util.ErrInvalidMarks,
		util.ErrInvalidState, util.ErrNotEligible, util.ErrStorage, util.ErrPermissionDenied, util.ErrInvalidArgument,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", util.ErrStorage, err)
}
