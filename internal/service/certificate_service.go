package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CertificateService 只负责发放记录，证书渲染由外部服务完成
type CertificateService struct {
	Repo     *repository.CertificateRepository
	Progress *ProgressService
	Notifier Notifier
}

func NewCertificateService(repo *repository.CertificateRepository, progress *ProgressService, notifier Notifier) *CertificateService {
	if notifier == nil {
		notifier = &LogNotifier{}
	}
	return &CertificateService{Repo: repo, Progress: progress, Notifier: notifier}
}

// Request 系列完成后才发放；重复请求返回已有证书
func (s *CertificateService) Request(ctx context.Context, userID, seriesID uint) (*model.Certificate, error) {
	complete, err := s.Progress.IsSeriesComplete(ctx, userID, seriesID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, fmt.Errorf("%w: series %d is not completed", util.ErrNotEligible, seriesID)
	}

	existing, err := s.Repo.FindByUserAndSeries(ctx, userID, seriesID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr(err)
	}

	enrollment, err := s.Progress.Progress.FindEnrollment(ctx, seriesID, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	now := time.Now()
	cert := &model.Certificate{
		UserID:            userID,
		SeriesID:          seriesID,
		EnrollmentID:      enrollment.ID,
		CertificateNumber: certificateNumber(now),
		IssuedAt:          now,
	}
	if err := s.Repo.Create(ctx, cert); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, findErr := s.Repo.FindByUserAndSeries(ctx, userID, seriesID)
			return existing, storageErr(findErr)
		}
		return nil, storageErr(err)
	}

	logger.Log.Info("Certificate issued",
		zap.Uint("userId", userID), zap.Uint("seriesId", seriesID), zap.String("number", cert.CertificateNumber))
	s.notify(ctx, userID, seriesID, cert)
	return cert, nil
}

func (s *CertificateService) ListMine(ctx context.Context, userID uint) ([]model.Certificate, error) {
	list, err := s.Repo.ListByUser(ctx, userID)
	return list, storageErr(err)
}

func (s *CertificateService) notify(ctx context.Context, userID, seriesID uint, cert *model.Certificate) {
	user, err := s.Progress.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("Certificate issued but user not found for notification", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	if !user.Notifiable() {
		return
	}
	series, err := s.Progress.Catalog.FindSeriesByID(ctx, seriesID)
	if err != nil {
		logger.Log.Warn("Certificate issued but series not found for notification", zap.Uint("seriesId", seriesID), zap.Error(err))
		return
	}
	if err := s.Notifier.CertificateIssued(ctx, user, series, cert); err != nil {
		logger.Log.Warn("Failed to send certificate notification", zap.Uint("userId", userID), zap.Error(err))
	}
}

// certificateNumber 格式 CERT-yyyymmdd-xxxxxxxx
func certificateNumber(t time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("CERT-%s-%s", t.Format("20060102"), strings.ToUpper(id[:8]))
}
