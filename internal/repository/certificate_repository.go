package repository

import (
	"coder_edu_assessment/internal/model"
	"context"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) FindByUserAndSeries(ctx context.Context, userID, seriesID uint) (*model.Certificate, error) {
	var c model.Certificate
	err := r.DB.WithContext(ctx).Where("user_id = ? AND series_id = ?", userID, seriesID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) Create(ctx context.Context, c *model.Certificate) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	var cs []model.Certificate
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("issued_at desc").Find(&cs).Error
	return cs, err
}
