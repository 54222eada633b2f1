package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCourseProgress(t *testing.T) {
	now := time.Now()

	t.Run("pending to in progress", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressPending}
		changed := applyCourseProgress(cp, 40, false, now)
		assert.True(t, changed)
		assert.Equal(t, model.ProgressInProgress, cp.State)
		assert.Equal(t, 40, cp.CompletionPercentage)
		assert.NotNil(t, cp.StartedAt)
		assert.False(t, cp.IsCompleted)
	})

	t.Run("never decreases without force", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressInProgress, CompletionPercentage: 60, StartedAt: &now}
		changed := applyCourseProgress(cp, 40, false, now)
		assert.False(t, changed)
		assert.Equal(t, 60, cp.CompletionPercentage)
	})

	t.Run("force lowers", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressInProgress, CompletionPercentage: 60, StartedAt: &now}
		changed := applyCourseProgress(cp, 40, true, now)
		assert.True(t, changed)
		assert.Equal(t, 40, cp.CompletionPercentage)
		assert.Equal(t, model.ProgressInProgress, cp.State)
	})

	t.Run("hundred completes", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressInProgress, CompletionPercentage: 60, StartedAt: &now}
		applyCourseProgress(cp, 100, false, now)
		assert.Equal(t, model.ProgressCompleted, cp.State)
		assert.True(t, cp.IsCompleted)
		assert.NotNil(t, cp.CompletedAt)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressCompleted, CompletionPercentage: 100, IsCompleted: true}
		changed := applyCourseProgress(cp, 20, true, now)
		assert.False(t, changed)
		assert.Equal(t, 100, cp.CompletionPercentage)
		assert.Equal(t, model.ProgressCompleted, cp.State)
	})

	t.Run("zero stays pending", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressPending}
		changed := applyCourseProgress(cp, 0, false, now)
		assert.False(t, changed)
		assert.Equal(t, model.ProgressPending, cp.State)
		assert.Nil(t, cp.StartedAt)
	})

	t.Run("clamps", func(t *testing.T) {
		cp := &model.CourseProgress{State: model.ProgressPending}
		applyCourseProgress(cp, 150, false, now)
		assert.Equal(t, 100, cp.CompletionPercentage)
	})
}

func TestRollupEnrollment(t *testing.T) {
	courses := []model.Course{{BaseModel: model.BaseModel{ID: 1}}, {BaseModel: model.BaseModel{ID: 2}}}

	mean, done := rollupEnrollment(courses, []model.CourseProgress{
		{CourseID: 1, CompletionPercentage: 100, State: model.ProgressCompleted},
		{CourseID: 2, CompletionPercentage: 50, State: model.ProgressInProgress},
	})
	assert.Equal(t, 75.0, mean)
	assert.False(t, done)

	mean, done = rollupEnrollment(courses, []model.CourseProgress{
		{CourseID: 1, CompletionPercentage: 100, State: model.ProgressCompleted},
		{CourseID: 2, CompletionPercentage: 100, State: model.ProgressCompleted},
	})
	assert.Equal(t, 100.0, mean)
	assert.True(t, done)

	// 没有记录的课程按 0 计
	mean, done = rollupEnrollment(courses, []model.CourseProgress{
		{CourseID: 1, CompletionPercentage: 100, State: model.ProgressCompleted},
	})
	assert.Equal(t, 50.0, mean)
	assert.False(t, done)

	three := append(courses, model.Course{BaseModel: model.BaseModel{ID: 3}})
	mean, _ = rollupEnrollment(three, []model.CourseProgress{
		{CourseID: 1, CompletionPercentage: 100, State: model.ProgressCompleted},
	})
	assert.Equal(t, 33.33, mean)

	mean, done = rollupEnrollment(nil, nil)
	assert.Equal(t, 0.0, mean)
	assert.False(t, done)
}

func TestSeriesCompletesWhenAllCoursesComplete(t *testing.T) {
	h := newHarness(t)
	student := h.user("alice", model.Student)
	series, courses := h.series(2)
	h.enroll(student.ID, series.ID)
	l1 := h.lesson(courses[1].ID, "Arrays")
	l2 := h.lesson(courses[1].ID, "Strings")

	_, err := h.progress.MarkCourseComplete(h.ctx, student.ID, courses[0].ID)
	require.NoError(t, err)
	e, err := h.progressRep.FindEnrollment(h.ctx, series.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, e.ProgressPercentage)
	assert.Equal(t, model.EnrollmentActive, e.Status)

	require.NoError(t, h.progress.MarkLessonComplete(h.ctx, student.ID, l1.ID))
	e, err = h.progressRep.FindEnrollment(h.ctx, series.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, e.ProgressPercentage)
	assert.Equal(t, model.EnrollmentActive, e.Status)

	complete, err := h.progress.IsSeriesComplete(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, h.progress.MarkLessonComplete(h.ctx, student.ID, l2.ID))
	e, err = h.progressRep.FindEnrollment(h.ctx, series.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, e.ProgressPercentage)
	assert.Equal(t, model.EnrollmentCompleted, e.Status)
	assert.NotNil(t, e.CompletedAt)

	complete, err = h.progress.IsSeriesComplete(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []uint{series.ID}, h.notifier.seriesCompleted)
}

func TestMarkLessonCompleteIsIdempotent(t *testing.T) {
	h := newHarness(t)
	student := h.user("bob", model.Student)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)
	l1 := h.lesson(courses[0].ID, "Pointers")
	h.lesson(courses[0].ID, "Structs")

	require.NoError(t, h.progress.MarkLessonComplete(h.ctx, student.ID, l1.ID))
	require.NoError(t, h.progress.MarkLessonComplete(h.ctx, student.ID, l1.ID))

	cp, err := h.progressRep.FindCourseProgress(h.ctx, courses[0].ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, cp.CompletionPercentage)

	var logs int64
	require.NoError(t, h.db.Model(&model.ProgressEventLog{}).Where("reason = ?", string(ReasonLessonCompleted)).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestMarkLessonCompleteErrors(t *testing.T) {
	h := newHarness(t)
	student := h.user("carol", model.Student)
	_, courses := h.series(1)
	lesson := h.lesson(courses[0].ID, "Loops")

	assert.ErrorIs(t, h.progress.MarkLessonComplete(h.ctx, student.ID, 9999), util.ErrNotFound)
	assert.ErrorIs(t, h.progress.MarkLessonComplete(h.ctx, student.ID, lesson.ID), util.ErrNotEligible)
}

func TestHandleEventWithoutEnrollmentIsSkipped(t *testing.T) {
	h := newHarness(t)
	student := h.user("dave", model.Student)
	_, courses := h.series(1)

	ev := NewProgressEvent(student.ID, courses[0].ID, ReasonReconcile)
	h.progress.HandleEvent(h.ctx, ev)

	_, err := h.progressRep.FindCourseProgress(h.ctx, courses[0].ID, student.ID)
	assert.Error(t, err)

	var entry model.ProgressEventLog
	require.NoError(t, h.db.Where("event_id = ?", ev.ID).First(&entry).Error)
	assert.Equal(t, outcomeSkipped, entry.Outcome)
	assert.NotEmpty(t, entry.Error)
}

func TestCancelledEnrollmentIsNotCompleted(t *testing.T) {
	h := newHarness(t)
	student := h.user("erin", model.Student)
	series, courses := h.series(1)
	e := h.enroll(student.ID, series.ID)
	e.Status = model.EnrollmentCancelled
	require.NoError(t, h.progressRep.SaveEnrollment(h.ctx, e))

	_, err := h.progress.MarkCourseComplete(h.ctx, student.ID, courses[0].ID)
	require.NoError(t, err)

	e, err = h.progressRep.FindEnrollment(h.ctx, series.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentCancelled, e.Status)
	assert.Equal(t, 100.0, e.ProgressPercentage)
	assert.Empty(t, h.notifier.seriesCompleted)

	eligible, err := h.progress.IsEligible(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	assert.False(t, eligible)

	// 重新报名后恢复资格
	e = h.enroll(student.ID, series.ID)
	assert.Equal(t, model.EnrollmentActive, e.Status)
}

func TestEnrollUnknownSeries(t *testing.T) {
	h := newHarness(t)
	_, err := h.progress.Enroll(h.ctx, 1, 9999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestSeriesWithoutCoursesNeverCompletes(t *testing.T) {
	h := newHarness(t)
	student := h.user("frank", model.Student)
	series, _ := h.series(0)
	h.enroll(student.ID, series.ID)

	n, err := h.progress.ReconcileAll(h.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	complete, err := h.progress.IsSeriesComplete(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	assert.False(t, complete)
}

func TestGetSeriesProgressFillsMissingCourses(t *testing.T) {
	h := newHarness(t)
	student := h.user("grace", model.Student)
	series, courses := h.series(2)
	h.enroll(student.ID, series.ID)
	_, err := h.progress.MarkCourseComplete(h.ctx, student.ID, courses[0].ID)
	require.NoError(t, err)

	sp, err := h.progress.GetSeriesProgress(h.ctx, student.ID, series.ID)
	require.NoError(t, err)
	require.Len(t, sp.Courses, 2)
	assert.Equal(t, model.ProgressCompleted, sp.Courses[0].State)
	assert.Equal(t, courses[1].ID, sp.Courses[1].CourseID)
	assert.Equal(t, model.ProgressPending, sp.Courses[1].State)
	assert.Equal(t, 50.0, sp.Enrollment.ProgressPercentage)

	_, err = h.progress.GetSeriesProgress(h.ctx, 9999, series.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestReconcileAllCatchesUpMissedEvents(t *testing.T) {
	h := newHarness(t)
	student := h.user("heidi", model.Student)
	series, courses := h.series(2)
	h.enroll(student.ID, series.ID)
	lesson := h.lesson(courses[0].ID, "Recursion")

	// 直接写入完成记录，模拟丢失的进度事件
	created, err := h.catalogRepo.CreateLessonCompletion(h.ctx, &model.LessonCompletion{
		UserID: student.ID, LessonID: lesson.ID, CourseID: courses[0].ID, CompletedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, created)

	n, err := h.progress.ReconcileAll(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cp, err := h.progressRep.FindCourseProgress(h.ctx, courses[0].ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, cp.CompletionPercentage)

	e, err := h.progressRep.FindEnrollment(h.ctx, series.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, e.ProgressPercentage)
}

func TestLocalProgressBusDeliversToSubscriber(t *testing.T) {
	bus := NewLocalProgressBus()
	var got []ProgressEvent
	// 未订阅时事件被丢弃
	bus.Publish(context.Background(), NewProgressEvent(1, 2, ReasonQuizSubmitted))

	bus.Subscribe(func(ctx context.Context, ev ProgressEvent) { got = append(got, ev) })
	ev := NewProgressEvent(1, 2, ReasonAssignmentRegraded)
	bus.Publish(context.Background(), ev)

	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.True(t, got[0].Force)
	assert.False(t, NewProgressEvent(1, 2, ReasonQuizSubmitted).Force)
}

func TestSyncUserEnablesNotification(t *testing.T) {
	h := newHarness(t)
	series, courses := h.series(1)
	claims := &util.Claims{UserID: 500, Role: model.Student, Email: "old@example.com"}

	h.progress.SyncUser(h.ctx, claims)
	claims.Email = "zoe@example.com"
	h.progress.SyncUser(h.ctx, claims)

	u, err := h.users.FindByID(h.ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, "zoe@example.com", u.Email)
	assert.Equal(t, "old", u.Name)

	h.enroll(500, series.ID)
	_, err = h.progress.MarkCourseComplete(h.ctx, 500, courses[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{series.ID}, h.notifier.seriesCompleted)
}

func TestDisabledUserIsNotNotified(t *testing.T) {
	h := newHarness(t)
	student := h.user("yuri", model.Student)
	require.NoError(t, h.db.Model(student).Update("disabled", true).Error)
	series, courses := h.series(1)
	h.enroll(student.ID, series.ID)

	_, err := h.progress.MarkCourseComplete(h.ctx, student.ID, courses[0].ID)
	require.NoError(t, err)
	assert.Empty(t, h.notifier.seriesCompleted)
}
