package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProgressState string

const (
	ProgressPending    ProgressState = "PENDING"
	ProgressInProgress ProgressState = "IN_PROGRESS"
	ProgressCompleted  ProgressState = "COMPLETED"
)

// CourseProgress 以 (course, user) 为键
// swagger:model CourseProgress
type CourseProgress struct {
	BaseModel
	CourseID             uint          `gorm:"uniqueIndex:idx_course_progress_course_user;not null" json:"courseId"`
	UserID               uint          `gorm:"uniqueIndex:idx_course_progress_course_user;not null" json:"userId"`
	SeriesID             uint          `gorm:"index;not null" json:"seriesId"`
	State                ProgressState `gorm:"size:20;not null;default:'PENDING'" json:"state"`
	CompletionPercentage int           `gorm:"default:0" json:"completionPercentage"`
	IsCompleted          bool          `gorm:"default:false" json:"isCompleted"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`
}

func (CourseProgress) TableName() string {
	return "course_progresses"
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
)

// Eligible ACTIVE 与 COMPLETED 的报名都可以继续提交测评
func (s EnrollmentStatus) Eligible() bool {
	return s == EnrollmentActive || s == EnrollmentCompleted
}

// Enrollment 以 (series, user) 为键
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	SeriesID           uint             `gorm:"uniqueIndex:idx_enrollment_series_user;not null" json:"seriesId"`
	UserID             uint             `gorm:"uniqueIndex:idx_enrollment_series_user;not null" json:"userId"`
	Status             EnrollmentStatus `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	ProgressPercentage float64          `gorm:"default:0" json:"progressPercentage"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// ProgressEventLog 进度事件审计
type ProgressEventLog struct {
	BaseModel
	EventID  string         `gorm:"size:36;uniqueIndex;not null" json:"eventId"`
	UserID   uint           `gorm:"index" json:"userId"`
	CourseID uint           `gorm:"index" json:"courseId"`
	Reason   string         `gorm:"size:50" json:"reason"`
	Payload  datatypes.JSON `json:"payload"`
	Outcome  string         `gorm:"size:20" json:"outcome"` // updated, skipped, failed
	Error    string         `gorm:"type:text" json:"error,omitempty"`
}

func (ProgressEventLog) TableName() string {
	return "progress_event_logs"
}
