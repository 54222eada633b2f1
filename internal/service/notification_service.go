package service

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/util"
	"coder_edu_assessment/pkg/logger"
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Notifier 系列完成与证书发放的通知，调用方忽略其错误
type Notifier interface {
	SeriesCompleted(ctx context.Context, user *model.User, series *model.Series) error
	CertificateIssued(ctx context.Context, user *model.User, series *model.Series, cert *model.Certificate) error
}

func NewNotifier(cfg *config.NotifyConfig) Notifier {
	if cfg.Provider == util.NotifySendGrid && cfg.SendGridAPIKey != "" {
		return NewSendGridNotifier(cfg)
	}
	return &LogNotifier{}
}

// LogNotifier 只写日志，用于开发环境
type LogNotifier struct{}

func (n *LogNotifier) SeriesCompleted(ctx context.Context, user *model.User, series *model.Series) error {
	logger.Log.Info("Series completed",
		zap.Uint("userId", user.ID), zap.String("email", user.Email), zap.Uint("seriesId", series.ID))
	return nil
}

func (n *LogNotifier) CertificateIssued(ctx context.Context, user *model.User, series *model.Series, cert *model.Certificate) error {
	logger.Log.Info("Certificate issued",
		zap.Uint("userId", user.ID), zap.Uint("seriesId", series.ID), zap.String("number", cert.CertificateNumber))
	return nil
}

type SendGridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridNotifier(cfg *config.NotifyConfig) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (n *SendGridNotifier) SeriesCompleted(ctx context.Context, user *model.User, series *model.Series) error {
	subject := fmt.Sprintf("You completed %s", series.Title)
	text := fmt.Sprintf("Hi %s, you have completed every course in %s. You can now request your certificate.", user.Name, series.Title)
	return n.send(ctx, user, subject, text)
}

func (n *SendGridNotifier) CertificateIssued(ctx context.Context, user *model.User, series *model.Series, cert *model.Certificate) error {
	subject := fmt.Sprintf("Your certificate for %s", series.Title)
	text := fmt.Sprintf("Hi %s, certificate %s for %s has been issued.", user.Name, cert.CertificateNumber, series.Title)
	return n.send(ctx, user, subject, text)
}

func (n *SendGridNotifier) send(ctx context.Context, user *model.User, subject, text string) error {
	to := mail.NewEmail(user.Name, user.Email)
	msg := mail.NewSingleEmail(n.from, subject, to, text, "<p>"+html.EscapeString(text)+"</p>")
	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
