package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func GenerateUUID() string {
	return uuid.New().String()
}

// AllModels 迁移顺序与外键依赖一致
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Series{},
		&Course{},
		&Lesson{},
		&LessonCompletion{},
		&Assessment{},
		&Question{},
		&Option{},
		&Submission{},
		&Answer{},
		&CourseProgress{},
		&Enrollment{},
		&ProgressEventLog{},
		&Certificate{},
	}
}
