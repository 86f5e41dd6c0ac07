package model

import "time"

// NotificationKind — событие, породившее уведомление.
type NotificationKind string

const (
	NotifyApplicationSubmitted NotificationKind = "application_submitted"
	NotifyApplicationReviewed  NotificationKind = "application_reviewed"
	NotifyDocumentReviewed     NotificationKind = "document_reviewed"
)

// Notification — уведомление одного пользователя.
// ApplicationID — явная связь с заявкой, DocumentID — с документом (опционально).
type Notification struct {
	ID            string           `json:"id,omitempty"`
	UserID        string           `json:"userId"`
	ApplicationID string           `json:"applicationId"`
	DocumentID    string           `json:"documentId,omitempty"`
	Kind          NotificationKind `json:"kind"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	IsRead        bool             `json:"isRead"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
}
