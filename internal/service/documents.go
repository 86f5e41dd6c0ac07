// documents.go — загрузка и проверка подтверждающих PDF-документов.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
	"github.com/bigkaa/sibo/internal/storage/filestore"
)

// ErrTooLarge — загружаемый файл превышает лимит размера.
var ErrTooLarge = errors.New("файл превышает допустимый размер")

// UploadInput — загружаемый документ.
type UploadInput struct {
	ApplicationID string
	Type          model.DocumentType
	FileName      string
	Content       io.Reader
}

// DocumentService — сервис документов.
type DocumentService struct {
	docs          repository.DocumentRepository
	apps          repository.ApplicationRepository
	files         *filestore.FileStore
	notifications *NotificationService
	logger        *slog.Logger

	// uploadMu сериализует проверку дубликата типа и вставку документа
	uploadMu sync.Mutex
}

// NewDocumentService создаёт сервис документов.
func NewDocumentService(
	docs repository.DocumentRepository,
	apps repository.ApplicationRepository,
	files *filestore.FileStore,
	notifications *NotificationService,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docs:          docs,
		apps:          apps,
		files:         files,
		notifications: notifications,
		logger:        logger.With(slog.String("component", "document_service")),
	}
}

// Upload сохраняет PDF к собственной заявке студента.
// Для каждой заявки допускается один документ каждого типа.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, in UploadInput) (*model.Document, error) {
	if actor.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: загружать документы могут только студенты", ErrForbidden)
	}

	in.ApplicationID = strings.TrimSpace(in.ApplicationID)
	switch {
	case in.ApplicationID == "":
		return nil, validationf("поле applicationId обязательно")
	case in.Type == "":
		return nil, validationf("поле type обязательно")
	case !in.Type.Valid():
		return nil, validationf("некорректный тип документа: %s", in.Type)
	case in.Content == nil || in.FileName == "":
		return nil, validationf("файл обязателен")
	case !strings.EqualFold(filepath.Ext(in.FileName), ".pdf"):
		return nil, validationf("допускаются только файлы PDF")
	}

	app, err := s.apps.GetByID(ctx, in.ApplicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка", ErrNotFound)
		}
		return nil, storeErr("получение заявки", err)
	}
	if app.UserID != actor.UserID {
		// Чужая заявка неотличима от отсутствующей
		return nil, fmt.Errorf("%w: заявка", ErrNotFound)
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	existing, err := s.docs.Find(ctx, repository.DocumentFilter{ApplicationID: app.ID, Type: in.Type})
	if err != nil {
		return nil, storeErr("поиск документов", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: документ «%s» уже загружен", ErrConflict, in.Type.Title())
	}

	saved, err := s.files.Save(in.Content, filestore.Owner{
		UserID:        actor.UserID,
		ApplicationID: app.ID,
		DocumentType:  string(in.Type),
	})
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrNotPDF):
			return nil, validationf("содержимое файла не является PDF")
		case errors.Is(err, filestore.ErrTooLarge):
			return nil, fmt.Errorf("%w: максимум %d байт", ErrTooLarge, s.files.MaxSize())
		}
		return nil, storeErr("сохранение файла", err)
	}

	doc, err := s.docs.Create(ctx, &model.Document{
		ApplicationID: app.ID,
		UserID:        actor.UserID,
		StudentName:   app.StudentName,
		Type:          in.Type,
		FileName:      saved.FileName,
		FilePath:      "/uploads/" + saved.FileName,
		Size:          saved.Size,
		Checksum:      saved.Checksum,
		Status:        model.StatusPending,
	})
	if err != nil {
		if delErr := s.files.Delete(saved.FileName); delErr != nil {
			s.logger.Warn("Не удалось удалить файл после ошибки записи",
				slog.String("file", saved.FileName),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, storeErr("создание документа", err)
	}

	s.logger.Info("Документ загружен",
		slog.String("document_id", doc.ID),
		slog.String("application_id", doc.ApplicationID),
		slog.String("type", string(doc.Type)),
		slog.Int64("size", doc.Size),
	)
	return doc, nil
}

// List возвращает документы: студенту — только свои, администратору — по фильтру.
func (s *DocumentService) List(ctx context.Context, actor Actor, f repository.DocumentFilter) ([]*model.Document, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — pending, accepted, rejected")
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, validationf("некорректный тип документа: %s", f.Type)
	}
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}

	docs, err := s.docs.Find(ctx, f)
	if err != nil {
		return nil, storeErr("список документов", err)
	}
	return docs, nil
}

// Verify записывает решение администратора по документу.
func (s *DocumentService) Verify(ctx context.Context, actor Actor, id string, status model.ReviewStatus, note string) (*model.Document, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: проверять документы может только администратор", ErrForbidden)
	}
	if !status.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — pending, accepted, rejected")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	doc, err := s.docs.SetStatus(ctx, id, status, strings.TrimSpace(note))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: документ", ErrNotFound)
		}
		return nil, storeErr("обновление документа", err)
	}

	s.logger.Info("Документ проверен",
		slog.String("document_id", doc.ID),
		slog.String("status", string(doc.Status)),
		slog.String("reviewed_by", actor.UserID),
	)

	if status.IsDecision() {
		if err := s.notifications.notify(ctx, documentNotification(doc)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Open открывает файл документа владельцу или администратору.
// Вызывающий код обязан закрыть файл.
func (s *DocumentService) Open(ctx context.Context, actor Actor, id string) (*model.Document, *os.File, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.owns(doc.UserID) {
		return nil, nil, fmt.Errorf("%w: документ принадлежит другому студенту", ErrForbidden)
	}

	f, err := s.files.Open(doc.FileName)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			s.logger.Warn("Файл документа отсутствует на диске",
				slog.String("document_id", doc.ID),
				slog.String("file", doc.FileName),
			)
			return nil, nil, fmt.Errorf("%w: файл документа", ErrNotFound)
		}
		return nil, nil, storeErr("открытие файла", err)
	}
	return doc, f, nil
}

// load читает документ по ID.
func (s *DocumentService) load(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: документ", ErrNotFound)
		}
		return nil, storeErr("получение документа", err)
	}
	return doc, nil
}
