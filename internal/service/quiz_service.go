package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizAnswerInput struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	OptionID   *uint  `json:"optionId"`
	Text       string `json:"text"`
}

// QuizService 选择题自动评分，每个 (测验, 学生) 只允许提交一次
type QuizService struct {
	*SubmissionService
}

func NewQuizService(submissions *SubmissionService) *QuizService {
	return &QuizService{SubmissionService: submissions}
}

func (s *QuizService) Submit(ctx context.Context, studentID, quizID uint, answers []QuizAnswerInput) (result *SubmissionResult, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "quiz.Submit", attribute.Int64("quizId", int64(quizID)))
	defer func() {
		monitoring.ObserveGrading(string(model.AssessmentQuiz), "submit_quiz", gradingOutcome(err), start)
		tracing.EndSpan(span, err)
	}()

	quiz, course, err := s.checkSubmittable(ctx, studentID, quizID, model.AssessmentQuiz)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.Submission{
		AssessmentID: quizID,
		StudentID:    studentID,
		Status:       model.SubmissionSubmitted,
		IsLate:       quiz.DueAt != nil && now.After(*quiz.DueAt),
		SubmittedAt:  now,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 评分使用事务内读取到的最新规则
		rules, err := s.Rules.WithTx(tx).Resolve(ctx, quizID)
		if err != nil {
			return err
		}
		graded, earned, err := gradeQuizAnswers(rules, answers)
		if err != nil {
			return err
		}

		sub.Answers = graded
		sub.TotalGrade = earned
		sub.TotalPossible = rules.TotalPossible()
		sub.Percentage = Percentage(earned, sub.TotalPossible)

		if err := s.Submissions.WithTx(tx).Create(ctx, sub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: quiz %d", util.ErrAlreadySubmitted, quizID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	logger.Log.Info("Quiz submitted",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("quizId", quizID),
		zap.Uint("studentId", studentID),
		zap.Int("totalGrade", sub.TotalGrade),
		zap.Int("totalPossible", sub.TotalPossible))

	s.publish(ctx, NewProgressEvent(studentID, course.ID, ReasonQuizSubmitted))
	return newSubmissionResult(sub), nil
}

// gradeQuizAnswers 先校验全部答案再评分；未作答的题目不生成记录，按 0 分计
func gradeQuizAnswers(rules *GradingRules, answers []QuizAnswerInput) ([]model.Answer, int, error) {
	seen := make(map[uint]struct{}, len(answers))
	for _, in := range answers {
		if _, ok := rules.Item(in.QuestionID); !ok {
			return nil, 0, fmt.Errorf("%w: question %d does not belong to assessment %d", util.ErrInvalidQuestion, in.QuestionID, rules.Assessment.ID)
		}
		if _, dup := seen[in.QuestionID]; dup {
			return nil, 0, fmt.Errorf("%w: question %d answered more than once", util.ErrInvalidQuestion, in.QuestionID)
		}
		seen[in.QuestionID] = struct{}{}
	}

	graded := make([]model.Answer, 0, len(answers))
	earned := 0
	for _, in := range answers {
		item, _ := rules.Item(in.QuestionID)
		correct := item.IsCorrectOption(in.OptionID)
		points := 0
		if correct {
			points = item.MaxPoints
		}
		earned += points
		graded = append(graded, model.Answer{
			QuestionID:    in.QuestionID,
			OptionID:      in.OptionID,
			Text:          in.Text,
			IsCorrect:     &correct,
			PointsAwarded: points,
		})
	}
	return graded, earned, nil
}
