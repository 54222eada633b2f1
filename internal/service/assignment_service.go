package service

import (
	"bytes"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AssignmentAnswerInput struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Text       string `json:"text"`
}

// MarkInput 人工评分，Feedback 为 nil 表示不修改
type MarkInput struct {
	QuestionID   uint    `json:"questionId" binding:"required"`
	MarksAwarded int     `json:"marksAwarded"`
	Feedback     *string `json:"feedback"`
}

// AssignmentService 作业提交与人工评分
type AssignmentService struct {
	*SubmissionService
	Storage *StorageService
}

func NewAssignmentService(submissions *SubmissionService, storage *StorageService) *AssignmentService {
	return &AssignmentService{SubmissionService: submissions, Storage: storage}
}

// Submit 创建作业提交，文本答案在评分前均为 0 分
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID uint, answers []AssignmentAnswerInput) (result *SubmissionResult, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "assignment.Submit", attribute.Int64("assignmentId", int64(assignmentID)))
	defer func() {
		monitoring.ObserveGrading(string(model.AssessmentAssignment), "submit_assignment", gradingOutcome(err), start)
		tracing.EndSpan(span, err)
	}()

	assignment, course, err := s.checkSubmittable(ctx, studentID, assignmentID, model.AssessmentAssignment)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.Submission{
		AssessmentID: assignmentID,
		StudentID:    studentID,
		Status:       model.SubmissionSubmitted,
		IsLate:       assignment.DueAt != nil && now.After(*assignment.DueAt),
		SubmittedAt:  now,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rules, err := s.Rules.WithTx(tx).Resolve(ctx, assignmentID)
		if err != nil {
			return err
		}
		seen := make(map[uint]struct{}, len(answers))
		for _, in := range answers {
			if err := checkQuestion(rules, in.QuestionID, seen); err != nil {
				return err
			}
			sub.Answers = append(sub.Answers, model.Answer{QuestionID: in.QuestionID, Text: in.Text})
		}
		sub.TotalPossible = rules.TotalPossible()

		if err := s.Submissions.WithTx(tx).Create(ctx, sub); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: assignment %d", util.ErrAlreadySubmitted, assignmentID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	logger.Log.Info("Assignment submitted",
		zap.Uint("submissionId", sub.ID), zap.Uint("assignmentId", assignmentID), zap.Uint("studentId", studentID))
	s.publish(ctx, NewProgressEvent(studentID, course.ID, ReasonAssignmentSubmitted))
	return newSubmissionResult(sub), nil
}

// Grade 首次评分：逐题写入（不存在则创建），总分只取本次提交的分数之和
func (s *AssignmentService) Grade(ctx context.Context, submissionID uint, marks []MarkInput, overallFeedback *string) (*SubmissionResult, error) {
	return s.grade(ctx, submissionID, marks, overallFeedback, false)
}

// Regrade 只更新已有作答，总分按提交下全部作答重新汇总
func (s *AssignmentService) Regrade(ctx context.Context, submissionID uint, marks []MarkInput, overallFeedback *string) (*SubmissionResult, error) {
	return s.grade(ctx, submissionID, marks, overallFeedback, true)
}

func (s *AssignmentService) grade(ctx context.Context, submissionID uint, marks []MarkInput, overallFeedback *string, regrade bool) (result *SubmissionResult, err error) {
	operation, reason := "grade_assignment", ReasonAssignmentGraded
	if regrade {
		operation, reason = "regrade_assignment", ReasonAssignmentRegraded
	}
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "assignment."+operation, attribute.Int64("submissionId", int64(submissionID)))
	defer func() {
		monitoring.ObserveGrading(string(model.AssessmentAssignment), operation, gradingOutcome(err), start)
		tracing.EndSpan(span, err)
	}()

	var (
		sub      *model.Submission
		courseID uint
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := s.Submissions.WithTx(tx)

		var err error
		sub, err = subs.FindByID(ctx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %d", util.ErrNotFound, submissionID)
			}
			return err
		}

		rules, err := s.Rules.WithTx(tx).Resolve(ctx, sub.AssessmentID)
		if err != nil {
			return err
		}
		// 测验提交不经过作业评分路径
		if rules.Assessment.Kind != model.AssessmentAssignment {
			return fmt.Errorf("%w: assignment submission %d", util.ErrNotFound, submissionID)
		}
		if regrade && sub.Status != model.SubmissionGraded {
			return fmt.Errorf("%w: submission %d must be graded before it can be regraded", util.ErrInvalidState, submissionID)
		}
		courseID = rules.Assessment.CourseID

		if err := validateMarks(rules, marks); err != nil {
			return err
		}

		if regrade {
			if err := s.applyRegrade(ctx, subs, sub, marks, overallFeedback); err != nil {
				return err
			}
		} else {
			if err := s.applyFirstGrade(ctx, subs, sub, marks, overallFeedback); err != nil {
				return err
			}
		}

		now := time.Now()
		sub.TotalPossible = rules.TotalPossible()
		sub.Percentage = Percentage(sub.TotalGrade, sub.TotalPossible)
		sub.Status = model.SubmissionGraded
		sub.GradedAt = &now
		return subs.UpdateGradeAggregate(ctx, sub)
	})
	if err != nil {
		return nil, storageErr(err)
	}

	logger.Log.Info("Assignment graded",
		zap.String("operation", operation),
		zap.Uint("submissionId", sub.ID),
		zap.Int("totalGrade", sub.TotalGrade),
		zap.Int("totalPossible", sub.TotalPossible))

	s.publish(ctx, NewProgressEvent(sub.StudentID, courseID, reason))
	return newSubmissionResult(sub), nil
}

func (s *AssignmentService) applyFirstGrade(ctx context.Context, subs submissionWriter, sub *model.Submission, marks []MarkInput, overallFeedback *string) error {
	rows := make([]model.Answer, 0, len(marks))
	total := 0
	for _, m := range marks {
		row := model.Answer{
			SubmissionID:  sub.ID,
			QuestionID:    m.QuestionID,
			PointsAwarded: m.MarksAwarded,
		}
		if m.Feedback != nil {
			row.Feedback = *m.Feedback
		}
		rows = append(rows, row)
		total += m.MarksAwarded
	}
	if err := subs.UpsertAnswerGrades(ctx, rows); err != nil {
		return err
	}

	sub.TotalGrade = total
	sub.Feedback = ""
	if overallFeedback != nil {
		sub.Feedback = *overallFeedback
	}
	return nil
}

func (s *AssignmentService) applyRegrade(ctx context.Context, subs submissionWriter, sub *model.Submission, marks []MarkInput, overallFeedback *string) error {
	for _, m := range marks {
		n, err := subs.UpdateAnswerGrade(ctx, sub.ID, m.QuestionID, m.MarksAwarded, m.Feedback)
		if err != nil {
			return err
		}
		if n == 0 {
			logger.Log.Warn("Regrade skipped unanswered question",
				zap.Uint("submissionId", sub.ID), zap.Uint("questionId", m.QuestionID))
		}
	}

	total, err := subs.SumAnswerPoints(ctx, sub.ID)
	if err != nil {
		return err
	}
	sub.TotalGrade = total
	if overallFeedback != nil {
		sub.Feedback = *overallFeedback
	}
	return nil
}

// submissionWriter 评分时事务内使用的写操作
type submissionWriter interface {
	UpsertAnswerGrades(ctx context.Context, answers []model.Answer) error
	UpdateAnswerGrade(ctx context.Context, submissionID, questionID uint, points int, feedback *string) (int64, error)
	SumAnswerPoints(ctx context.Context, submissionID uint) (int, error)
}

// validateMarks 写入前校验全部分数
func validateMarks(rules *GradingRules, marks []MarkInput) error {
	seen := make(map[uint]struct{}, len(marks))
	for _, m := range marks {
		if err := checkQuestion(rules, m.QuestionID, seen); err != nil {
			return err
		}
		item, _ := rules.Item(m.QuestionID)
		if m.MarksAwarded < 0 || m.MarksAwarded > item.MaxPoints {
			return fmt.Errorf("%w: question %d allows 0..%d, got %d", util.ErrInvalidMarks, m.QuestionID, item.MaxPoints, m.MarksAwarded)
		}
	}
	return nil
}

func checkQuestion(rules *GradingRules, questionID uint, seen map[uint]struct{}) error {
	if _, ok := rules.Item(questionID); !ok {
		return fmt.Errorf("%w: question %d does not belong to assessment %d", util.ErrInvalidQuestion, questionID, rules.Assessment.ID)
	}
	if _, dup := seen[questionID]; dup {
		return fmt.Errorf("%w: question %d appears more than once", util.ErrInvalidQuestion, questionID)
	}
	seen[questionID] = struct{}{}
	return nil
}

// AttachFile 学生为自己作业中的某道题上传附件
func (s *AssignmentService) AttachFile(ctx context.Context, studentID, submissionID, questionID uint, filename string, size int64, reader io.Reader) (*model.Answer, error) {
	ext, err := util.ValidateAttachmentName(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidArgument, err)
	}
	if size <= 0 || size > util.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: attachment size must be between 1 and %d bytes", util.ErrInvalidArgument, util.MaxAttachmentSize)
	}

	sub, err := s.Submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %d", util.ErrNotFound, submissionID)
		}
		return nil, storageErr(err)
	}
	if sub.StudentID != studentID {
		return nil, fmt.Errorf("%w: submission %d", util.ErrPermissionDenied, submissionID)
	}
	a, err := s.Assessments.FindAssessmentByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if a.Kind != model.AssessmentAssignment {
		return nil, fmt.Errorf("%w: assignment submission %d", util.ErrNotFound, submissionID)
	}
	answer, err := s.Submissions.FindAnswer(ctx, submissionID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no answer for question %d", util.ErrNotFound, questionID)
		}
		return nil, storageErr(err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read attachment: %v", util.ErrStorage, err)
	}
	contentType := util.DetectContentType(head[:n])
	body := io.MultiReader(bytes.NewReader(head[:n]), reader)

	key := util.AttachmentObjectKey(submissionID, ext)
	url, err := s.Storage.Upload(ctx, key, body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: upload attachment: %v", util.ErrStorage, err)
	}
	if err := s.Submissions.SetAnswerAttachment(ctx, answer.ID, url); err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned attachment", zap.String("key", key), zap.Error(delErr))
		}
		return nil, storageErr(err)
	}
	answer.AttachmentURL = url
	return answer, nil
}
