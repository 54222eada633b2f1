package model

import (
	"time"
)

type SubmissionStatus string

const (
	SubmissionNotStarted SubmissionStatus = "NOT_STARTED"
	SubmissionSubmitted  SubmissionStatus = "SUBMITTED"
	SubmissionGraded     SubmissionStatus = "GRADED"
)

// Submission 每个学生对每个测评最多一条提交记录
// swagger:model Submission
type Submission struct {
	BaseModel
	AssessmentID  uint             `gorm:"uniqueIndex:idx_submission_assessment_student;not null" json:"assessmentId"`
	StudentID     uint             `gorm:"uniqueIndex:idx_submission_assessment_student;not null" json:"studentId"`
	Status        SubmissionStatus `gorm:"size:20;not null;default:'NOT_STARTED'" json:"status"`
	TotalGrade    int              `gorm:"default:0" json:"totalGrade"`
	TotalPossible int              `gorm:"default:0" json:"totalPossible"`
	Percentage    int              `gorm:"default:0" json:"percentage"`
	Feedback      string           `gorm:"type:text" json:"feedback"`
	IsLate        bool             `gorm:"default:false" json:"isLate"`
	SubmittedAt   time.Time        `json:"submittedAt"`
	GradedAt      *time.Time       `json:"gradedAt,omitempty"`
	Answers       []Answer         `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// swagger:model Answer
type Answer struct {
	BaseModel
	SubmissionID  uint   `gorm:"uniqueIndex:idx_answer_submission_question;not null" json:"submissionId"`
	QuestionID    uint   `gorm:"uniqueIndex:idx_answer_submission_question;not null" json:"questionId"`
	OptionID      *uint  `json:"optionId,omitempty"`
	Text          string `gorm:"type:text" json:"text,omitempty"`
	AttachmentURL string `gorm:"size:500" json:"attachmentUrl,omitempty"`
	IsCorrect     *bool  `json:"isCorrect,omitempty"` // 仅选择题
	PointsAwarded int    `gorm:"default:0" json:"pointsAwarded"`
	Feedback      string `gorm:"type:text" json:"feedback,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}
