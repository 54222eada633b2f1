package service

import (
	"coder_edu_assessment/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProgressReason string

const (
	ReasonQuizSubmitted       ProgressReason = "quiz_submitted"
	ReasonAssignmentSubmitted ProgressReason = "assignment_submitted"
	ReasonAssignmentGraded    ProgressReason = "assignment_graded"
	ReasonAssignmentRegraded  ProgressReason = "assignment_regraded"
	ReasonLessonCompleted     ProgressReason = "lesson_completed"
	ReasonCourseCompleted     ProgressReason = "course_completed"
	ReasonReconcile           ProgressReason = "reconcile"
)

// ProgressEvent 评分组件发往进度汇总的消息
type ProgressEvent struct {
	ID         string         `json:"id"`
	UserID     uint           `json:"userId"`
	CourseID   uint           `json:"courseId"`
	Reason     ProgressReason `json:"reason"`
	Force      bool           `json:"force"` // 重新评分时允许进度回落
	OccurredAt time.Time      `json:"occurredAt"`
}

func NewProgressEvent(userID, courseID uint, reason ProgressReason) ProgressEvent {
	return ProgressEvent{
		ID:         uuid.New().String(),
		UserID:     userID,
		CourseID:   courseID,
		Reason:     reason,
		Force:      reason == ReasonAssignmentRegraded,
		OccurredAt: time.Now(),
	}
}

type ProgressHandler func(ctx context.Context, ev ProgressEvent)

// ProgressPublisher 发布失败只记录日志，不影响评分结果
type ProgressPublisher interface {
	Publish(ctx context.Context, ev ProgressEvent)
}

// LocalProgressBus 进程内同步分发
type LocalProgressBus struct {
	mu      sync.RWMutex
	handler ProgressHandler
}

func NewLocalProgressBus() *LocalProgressBus {
	return &LocalProgressBus{}
}

func (b *LocalProgressBus) Subscribe(h ProgressHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *LocalProgressBus) Publish(ctx context.Context, ev ProgressEvent) {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		logger.Log.Warn("No progress handler registered, event dropped",
			zap.String("eventId", ev.ID), zap.String("reason", string(ev.Reason)))
		return
	}
	// 请求结束不应打断汇总
	h(context.WithoutCancel(ctx), ev)
}

// progressBroker RedisProgressBus 用到的 Redis 命令，*redis.Client 满足该接口
type progressBroker interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

var errNoSubscribers = errors.New("no subscriber received the progress event")

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

// RedisProgressBus 通过 Redis PUBLISH/SUBSCRIBE 分发。
// 发布失败或没有订阅者收到时退回本地处理。
type RedisProgressBus struct {
	Broker   progressBroker
	Channel  string
	Fallback *LocalProgressBus

	// 订阅断开后的重试间隔，按倍数增长到 MaxBackoff
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func NewRedisProgressBus(broker progressBroker, channel string, fallback *LocalProgressBus) *RedisProgressBus {
	return &RedisProgressBus{
		Broker:     broker,
		Channel:    channel,
		Fallback:   fallback,
		MinBackoff: defaultMinBackoff,
		MaxBackoff: defaultMaxBackoff,
	}
}

func (b *RedisProgressBus) Publish(ctx context.Context, ev ProgressEvent) {
	data, err := json.Marshal(ev)
	if err == nil {
		var receivers int64
		receivers, err = b.Broker.Publish(ctx, b.Channel, data).Result()
		if err == nil && receivers == 0 {
			err = errNoSubscribers
		}
	}
	if err == nil {
		return
	}
	logger.Log.Warn("Progress event not delivered through redis, handling locally",
		zap.String("eventId", ev.ID), zap.Uint("userId", ev.UserID), zap.Uint("courseId", ev.CourseID), zap.Error(err))
	if b.Fallback != nil {
		b.Fallback.Publish(ctx, ev)
	}
}

// Run 订阅频道并逐条处理，断开后按退避间隔重新订阅，直到 ctx 结束
func (b *RedisProgressBus) Run(ctx context.Context, handler ProgressHandler) {
	backoff := b.MinBackoff
	for {
		subscribed, err := b.consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			backoff = b.MinBackoff
		}
		logger.Log.Warn("Progress event subscriber disconnected, retrying",
			zap.String("channel", b.Channel), zap.Duration("backoff", backoff), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, b.MaxBackoff)
	}
}

// consume 处理一次订阅会话，返回是否曾订阅成功
func (b *RedisProgressBus) consume(ctx context.Context, handler ProgressHandler) (bool, error) {
	pubsub := b.Broker.Subscribe(ctx, b.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, err
	}
	logger.Log.Info("Progress event subscriber started", zap.String("channel", b.Channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription channel closed")
			}
			var ev ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Log.Error("Progress event unmarshal error", zap.Error(err))
				continue
			}
			handler(ctx, ev)
		}
	}
}
