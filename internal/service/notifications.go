// notifications.go — уведомления студентов о ходе рассмотрения.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// NotificationService — сервис уведомлений.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.With(slog.String("component", "notification_service")),
	}
}

// List возвращает уведомления actor, новые первыми.
func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool) ([]*model.Notification, error) {
	list, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly)
	if err != nil {
		return nil, storeErr("список уведомлений", err)
	}

	// Хранилище отдаёт записи в порядке вставки: разворот даёт
	// порядок от новых к старым и при равных createdAt
	slices.Reverse(list)
	slices.SortStableFunc(list, func(a, b *model.Notification) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return list, nil
}

// MarkRead отмечает уведомление прочитанным. Чужое уведомление — ErrNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id string) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: уведомление", ErrNotFound)
		}
		return nil, storeErr("получение уведомления", err)
	}
	if n.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: уведомление", ErrNotFound)
	}
	if n.IsRead {
		return n, nil
	}

	updated, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: уведомление", ErrNotFound)
		}
		return nil, storeErr("отметка уведомления", err)
	}
	return updated, nil
}

// CountUnread возвращает число непрочитанных уведомлений пользователя.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	list, err := s.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return 0, storeErr("подсчёт уведомлений", err)
	}
	return len(list), nil
}

// notify создаёт уведомление. Основная запись к этому моменту уже сохранена,
// поэтому ошибка логируется отдельно и возвращается вызывающему.
func (s *NotificationService) notify(ctx context.Context, n *model.Notification) error {
	if _, err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Не удалось создать уведомление",
			slog.String("user_id", n.UserID),
			slog.String("application_id", n.ApplicationID),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
		return storeErr("создание уведомления", err)
	}
	return nil
}

// Тексты уведомлений для студента.

func submittedNotification(app *model.Application, scholarshipName string) *model.Notification {
	return &model.Notification{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Kind:          model.NotifyApplicationSubmitted,
		Title:         "Pendaftaran Beasiswa Berhasil",
		Message: fmt.Sprintf("Anda telah berhasil mendaftar untuk beasiswa %s. Pendaftaran Anda sedang ditinjau.",
			scholarshipName),
	}
}

func reviewedNotification(app *model.Application) *model.Notification {
	n := &model.Notification{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		Kind:          model.NotifyApplicationReviewed,
	}
	if app.Status == model.StatusAccepted {
		n.Title = "Pendaftaran Beasiswa Diterima"
		n.Message = "Selamat! Pendaftaran beasiswa Anda telah diterima."
	} else {
		n.Title = "Pendaftaran Beasiswa Ditolak"
		n.Message = "Maaf, pendaftaran beasiswa Anda ditolak."
	}
	if app.Note != "" {
		n.Message += " Catatan: " + app.Note
	}
	return n
}

func documentNotification(doc *model.Document) *model.Notification {
	n := &model.Notification{
		UserID:        doc.UserID,
		ApplicationID: doc.ApplicationID,
		DocumentID:    doc.ID,
		Kind:          model.NotifyDocumentReviewed,
	}
	if doc.Status == model.StatusAccepted {
		n.Title = "Dokumen Diterima"
		n.Message = fmt.Sprintf("Dokumen %s Anda telah diterima.", doc.Type.Title())
	} else {
		n.Title = "Dokumen Ditolak"
		n.Message = fmt.Sprintf("Dokumen %s Anda ditolak.", doc.Type.Title())
	}
	if doc.Note != "" {
		n.Message += " Catatan: " + doc.Note
	}
	return n
}
