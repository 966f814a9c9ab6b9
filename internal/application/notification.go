package application

import (
	"context"
	"fmt"
	"strings"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
	"collectorkit/pkg/textutil"
)

type NotificationService struct {
	notifier   output.Notifier
	translator output.T
	locale     string
}

func NewNotificationService(notifier output.Notifier, translator output.T, locale string) *NotificationService {
	return &NotificationService{
		notifier:   notifier,
		translator: translator,
		locale:     locale,
	}
}

// SendEmailNotification validates the recipient and hands the message to the
// configured notifier. An empty subject gets the localized default.
func (s *NotificationService) SendEmailNotification(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if !textutil.ValidateEmail(to) {
		return domain.Wrap(fmt.Sprintf("send notification to %q", to), domain.ErrValidationFailed, nil)
	}
	if strings.TrimSpace(subject) == "" {
		subject = s.translator.T(s.locale, "notify_subject_default", nil)
	}
	return s.notifier.Notify(ctx, entities.Notification{
		To:      to,
		Subject: subject,
		Body:    body,
	})
}
