package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizSubmitScoresCorrectOptions(t *testing.T) {
	h := newHarness(t)
	student := h.user("alice", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	q1, q2 := quiz.Questions[0], quiz.Questions[1]

	result, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, []QuizAnswerInput{
		{QuestionID: q1.ID, OptionID: optionByContent(q1, "A")},
		{QuestionID: q2.ID, OptionID: optionByContent(q2, "D")},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalGrade)
	assert.Equal(t, 10, result.TotalPossible)
	assert.Equal(t, 50, result.Percentage)
	assert.Equal(t, model.SubmissionSubmitted, result.Status)
	assert.False(t, result.IsLate)

	sub := h.reloadSubmission(result.SubmissionID)
	require.Len(t, sub.Answers, 2)
	byQuestion := map[uint]model.Answer{}
	for _, a := range sub.Answers {
		byQuestion[a.QuestionID] = a
	}
	require.NotNil(t, byQuestion[q1.ID].IsCorrect)
	assert.True(t, *byQuestion[q1.ID].IsCorrect)
	assert.Equal(t, 5, byQuestion[q1.ID].PointsAwarded)
	require.NotNil(t, byQuestion[q2.ID].IsCorrect)
	assert.False(t, *byQuestion[q2.ID].IsCorrect)
	assert.Equal(t, 0, byQuestion[q2.ID].PointsAwarded)
}

func TestQuizSubmitAnyCorrectOptionScores(t *testing.T) {
	h := newHarness(t)
	student := h.user("bob", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	q2 := quiz.Questions[1]

	result, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, []QuizAnswerInput{
		{QuestionID: q2.ID, OptionID: optionByContent(q2, "C")},
	})
	require.NoError(t, err)
	// 未作答的题目按 0 分计
	assert.Equal(t, 5, result.TotalGrade)
	assert.Equal(t, 10, result.TotalPossible)
	assert.Equal(t, 50, result.Percentage)
}

func TestQuizSubmitTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	student := h.user("carol", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	q1 := quiz.Questions[0]
	answers := []QuizAnswerInput{{QuestionID: q1.ID, OptionID: optionByContent(q1, "A")}}

	first, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, answers)
	require.NoError(t, err)

	_, err = h.quiz.Submit(h.ctx, student.ID, quiz.ID, answers)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	var subs, answersCount int64
	require.NoError(t, h.db.Model(&model.Submission{}).Where("assessment_id = ?", quiz.ID).Count(&subs).Error)
	require.NoError(t, h.db.Model(&model.Answer{}).Where("submission_id = ?", first.SubmissionID).Count(&answersCount).Error)
	assert.EqualValues(t, 1, subs)
	assert.EqualValues(t, 1, answersCount)
}

func TestQuizSubmitRejectsForeignQuestion(t *testing.T) {
	h := newHarness(t)
	student := h.user("dave", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	other := h.twoQuestionQuiz(courses[0].ID)
	q1 := quiz.Questions[0]

	_, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, []QuizAnswerInput{
		{QuestionID: q1.ID, OptionID: optionByContent(q1, "A")},
		{QuestionID: other.Questions[0].ID},
	})
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)

	var count int64
	require.NoError(t, h.db.Model(&model.Submission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuizSubmitRejectsDuplicateQuestion(t *testing.T) {
	h := newHarness(t)
	student := h.user("erin", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	q1 := quiz.Questions[0]

	_, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, []QuizAnswerInput{
		{QuestionID: q1.ID, OptionID: optionByContent(q1, "B")},
		{QuestionID: q1.ID, OptionID: optionByContent(q1, "A")},
	})
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)
}

func TestQuizSubmitPreconditions(t *testing.T) {
	h := newHarness(t)
	student := h.user("frank", model.Student)
	outsider := h.user("grace", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	assignment := h.newAssignment(courses[0].ID, 10)

	draft, err := h.authoring.Create(h.ctx, CreateAssessmentRequest{
		Kind: model.AssessmentQuiz, Title: "Draft", CourseID: courses[0].ID,
	})
	require.NoError(t, err)

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := h.quiz.Submit(h.ctx, student.ID, 9999, nil)
		assert.ErrorIs(t, err, util.ErrNotFound)
	})
	t.Run("assignment id", func(t *testing.T) {
		_, err := h.quiz.Submit(h.ctx, student.ID, assignment.ID, nil)
		assert.ErrorIs(t, err, util.ErrNotFound)
	})
	t.Run("unpublished", func(t *testing.T) {
		_, err := h.quiz.Submit(h.ctx, student.ID, draft.ID, nil)
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})
	t.Run("not enrolled", func(t *testing.T) {
		_, err := h.quiz.Submit(h.ctx, outsider.ID, quiz.ID, nil)
		assert.ErrorIs(t, err, util.ErrNotEligible)
	})
	t.Run("locked", func(t *testing.T) {
		_, err := h.authoring.Update(h.ctx, quiz.ID, UpdateAssessmentRequest{IsLocked: ptr(true)})
		require.NoError(t, err)
		_, err = h.quiz.Submit(h.ctx, student.ID, quiz.ID, nil)
		assert.ErrorIs(t, err, util.ErrInvalidState)
	})
}

func TestQuizSubmitWithoutQuestionsScoresZeroPercent(t *testing.T) {
	h := newHarness(t)
	student := h.user("heidi", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	empty := h.publish(CreateAssessmentRequest{Kind: model.AssessmentQuiz, Title: "Empty", CourseID: courses[0].ID})

	result, err := h.quiz.Submit(h.ctx, student.ID, empty.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalPossible)
	assert.Equal(t, 0, result.Percentage)
}

func TestQuizSubmitUsesCurrentPoints(t *testing.T) {
	h := newHarness(t)
	student := h.user("ivan", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	q1 := quiz.Questions[0]

	_, err := h.authoring.UpdateQuestion(h.ctx, quiz.ID, q1.ID, UpdateQuestionRequest{Points: ptr(15)})
	require.NoError(t, err)

	result, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, []QuizAnswerInput{
		{QuestionID: q1.ID, OptionID: optionByContent(q1, "A")},
	})
	require.NoError(t, err)
	assert.Equal(t, 15, result.TotalGrade)
	assert.Equal(t, 20, result.TotalPossible)
	assert.Equal(t, 75, result.Percentage)
}

func TestQuizSubmitAfterDueDateIsFlaggedLate(t *testing.T) {
	h := newHarness(t)
	student := h.user("judy", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)
	_, err := h.authoring.Update(h.ctx, quiz.ID, UpdateAssessmentRequest{DueAt: ptr(time.Now().Add(-time.Hour))})
	require.NoError(t, err)

	result, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.IsLate)
}

func TestQuizSubmitCompletesCourseProgress(t *testing.T) {
	h := newHarness(t)
	student := h.user("mallory", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	quiz := h.twoQuestionQuiz(courses[0].ID)

	_, err := h.quiz.Submit(h.ctx, student.ID, quiz.ID, nil)
	require.NoError(t, err)

	cp, err := h.progressRep.FindCourseProgress(h.ctx, courses[0].ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, cp.CompletionPercentage)
	assert.Equal(t, model.ProgressCompleted, cp.State)

	complete, err := h.progress.IsSeriesComplete(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	assert.True(t, complete)
}

func TestGradeQuizAnswersValidatesBeforeScoring(t *testing.T) {
	rules := &GradingRules{
		Assessment: &model.Assessment{BaseModel: model.BaseModel{ID: 1}, Kind: model.AssessmentQuiz},
		Items: []GradableItem{
			{QuestionID: 10, MaxPoints: 4, CorrectOptionIDs: []uint{100}},
			{QuestionID: 11, MaxPoints: 6, CorrectOptionIDs: []uint{110, 111}},
		},
		index: map[uint]int{10: 0, 11: 1},
	}

	graded, earned, err := gradeQuizAnswers(rules, []QuizAnswerInput{
		{QuestionID: 10, OptionID: ptr(uint(100))},
		{QuestionID: 11, OptionID: ptr(uint(111))},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, earned)
	assert.Len(t, graded, 2)

	_, _, err = gradeQuizAnswers(rules, []QuizAnswerInput{
		{QuestionID: 10, OptionID: ptr(uint(100))},
		{QuestionID: 99},
	})
	assert.ErrorIs(t, err, util.ErrInvalidQuestion)
}
