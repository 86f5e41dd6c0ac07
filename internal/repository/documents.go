package repository

import (
	"context"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// DocumentFilter — условия отбора документов. Пустые поля не учитываются.
type DocumentFilter struct {
	UserID        string
	ApplicationID string
	Type          model.DocumentType
	Status        model.ReviewStatus
}

// DocumentRepository — доступ к коллекции documents.
type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) (*model.Document, error)
	GetByID(ctx context.Context, id string) (*model.Document, error)
	Find(ctx context.Context, f DocumentFilter) ([]*model.Document, error)
	SetStatus(ctx context.Context, id string, status model.ReviewStatus, note string) (*model.Document, error)
}

type documentRepo struct {
	c collection[model.Document]
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(s store.Store) DocumentRepository {
	return &documentRepo{c: newCollection[model.Document](s, CollectionDocuments)}
}

func (r *documentRepo) Create(ctx context.Context, d *model.Document) (*model.Document, error) {
	return r.c.insert(ctx, d)
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	return r.c.get(ctx, id)
}

func (r *documentRepo) Find(ctx context.Context, f DocumentFilter) ([]*model.Document, error) {
	return r.c.find(ctx, where(map[string]string{
		"userId":        f.UserID,
		"applicationId": f.ApplicationID,
		"type":          string(f.Type),
		"status":        string(f.Status),
	}))
}

func (r *documentRepo) SetStatus(ctx context.Context, id string, status model.ReviewStatus, note string) (*model.Document, error) {
	return r.c.patch(ctx, id, store.Record{
		"status": string(status),
		"note":   note,
	})
}
