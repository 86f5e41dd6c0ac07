package repository

import (
	"context"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// NotificationRepository — доступ к коллекции notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	// ListByUser возвращает уведомления пользователя в порядке создания.
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
}

type notificationRepo struct {
	c collection[model.Notification]
}

// NewNotificationRepository создаёт репозиторий уведомлений.
func NewNotificationRepository(s store.Store) NotificationRepository {
	return &notificationRepo{c: newCollection[model.Notification](s, CollectionNotifications)}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	return r.c.insert(ctx, n)
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return r.c.get(ctx, id)
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	pred := store.Eq("userId", userID)
	if unreadOnly {
		pred = store.And(pred, store.Eq("isRead", false))
	}
	return r.c.find(ctx, pred)
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	return r.c.patch(ctx, id, store.Record{"isRead": true})
}
