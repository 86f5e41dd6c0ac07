package repository

import (
	"context"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// ApplicationFilter — условия отбора заявок. Пустые поля не учитываются.
type ApplicationFilter struct {
	UserID        string
	ScholarshipID string
	Status        model.ReviewStatus
}

// ApplicationRepository — доступ к коллекции applications.
type ApplicationRepository interface {
	Create(ctx context.Context, a *model.Application) (*model.Application, error)
	GetByID(ctx context.Context, id string) (*model.Application, error)
	Find(ctx context.Context, f ApplicationFilter) ([]*model.Application, error)
	// SetStatus выставляет решение по заявке.
	SetStatus(ctx context.Context, id string, status model.ReviewStatus, note, reviewedBy string) (*model.Application, error)
}

type applicationRepo struct {
	c collection[model.Application]
}

// NewApplicationRepository создаёт репозиторий заявок.
func NewApplicationRepository(s store.Store) ApplicationRepository {
	return &applicationRepo{c: newCollection[model.Application](s, CollectionApplications)}
}

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) (*model.Application, error) {
	return r.c.insert(ctx, a)
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	return r.c.get(ctx, id)
}

func (r *applicationRepo) Find(ctx context.Context, f ApplicationFilter) ([]*model.Application, error) {
	return r.c.find(ctx, where(map[string]string{
		"userId":        f.UserID,
		"scholarshipId": f.ScholarshipID,
		"status":        string(f.Status),
	}))
}

func (r *applicationRepo) SetStatus(ctx context.Context, id string, status model.ReviewStatus, note, reviewedBy string) (*model.Application, error) {
	return r.c.patch(ctx, id, store.Record{
		"status":     string(status),
		"note":       note,
		"reviewedBy": reviewedBy,
	})
}
