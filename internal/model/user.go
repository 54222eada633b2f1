package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 账号由认证服务维护，本地只缓存通知所需的字段，主键与令牌中的 user_id 一致
// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100" json:"name"`
	Email    string   `gorm:"size:100;index" json:"email"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Disabled bool     `gorm:"default:false" json:"disabled"`
}

func (User) TableName() string {
	return "users"
}

// Notifiable 被禁用或没有邮箱的账号不发送通知
func (u *User) Notifiable() bool {
	return !u.Disabled && u.Email != ""
}
