package model

import "time"

// Series 系列课程，包含若干门课程，全部完成后可申请结业证书
// swagger:model Series
type Series struct {
	BaseModel
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Courses     []Course `gorm:"foreignKey:SeriesID" json:"courses,omitempty"`
}

func (Series) TableName() string {
	return "series"
}

// swagger:model Course
type Course struct {
	BaseModel
	SeriesID uint     `gorm:"index;not null" json:"seriesId"`
	Title    string   `gorm:"size:255;not null" json:"title"`
	Position int      `gorm:"default:0" json:"position"`
	Lessons  []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID uint   `gorm:"index;not null" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonCompletion 记录用户完成的课时
type LessonCompletion struct {
	BaseModel
	UserID      uint      `gorm:"uniqueIndex:idx_lesson_completion_user_lesson;not null" json:"userId"`
	LessonID    uint      `gorm:"uniqueIndex:idx_lesson_completion_user_lesson;not null" json:"lessonId"`
	CourseID    uint      `gorm:"index;not null" json:"courseId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}
