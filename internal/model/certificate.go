package model

import "time"

// Certificate 系列结业证书的发放记录，渲染由外部服务完成
// swagger:model Certificate
type Certificate struct {
	BaseModel
	UserID            uint      `gorm:"uniqueIndex:idx_certificate_user_series;not null" json:"userId"`
	SeriesID          uint      `gorm:"uniqueIndex:idx_certificate_user_series;not null" json:"seriesId"`
	EnrollmentID      uint      `gorm:"index;not null" json:"enrollmentId"`
	CertificateNumber string    `gorm:"size:64;uniqueIndex;not null" json:"certificateNumber"`
	IssuedAt          time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
