package model

import (
	"time"
)

type AssessmentKind string

const (
	AssessmentQuiz       AssessmentKind = "quiz"
	AssessmentAssignment AssessmentKind = "assignment"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Kind        AssessmentKind `gorm:"size:20;not null;index" json:"kind"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CourseID    uint           `gorm:"index;not null" json:"courseId"`
	IsPublished bool           `gorm:"default:false" json:"isPublished"`
	IsLocked    bool           `gorm:"default:false" json:"isLocked"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
	DueAt       *time.Time     `json:"dueAt,omitempty"`
	Questions   []Question     `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// Open 已发布且未锁定的测评才接受提交
func (a *Assessment) Open() bool {
	return a.IsPublished && !a.IsLocked
}

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID uint     `gorm:"index;not null" json:"assessmentId"`
	Content      string   `gorm:"type:text;not null" json:"content"`
	Points       int      `gorm:"not null;default:0" json:"points"`
	Position     int      `gorm:"not null;default:0" json:"position"`
	Options      []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Option 选择题选项，同一题可以有零个或多个正确选项
// swagger:model Option
type Option struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Content    string `gorm:"size:500;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Position   int    `gorm:"default:0" json:"position"`
}

func (Option) TableName() string {
	return "options"
}
