package repository

import (
	"context"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// ScholarshipRepository — доступ к коллекции scholarships.
type ScholarshipRepository interface {
	Create(ctx context.Context, s *model.Scholarship) (*model.Scholarship, error)
	GetByID(ctx context.Context, id string) (*model.Scholarship, error)
	// List возвращает программы; пустой status — все.
	List(ctx context.Context, status model.ScholarshipStatus) ([]*model.Scholarship, error)
	// Update перезаписывает изменяемые поля программы s.ID.
	Update(ctx context.Context, s *model.Scholarship) (*model.Scholarship, error)
	Delete(ctx context.Context, id string) error
}

type scholarshipRepo struct {
	c collection[model.Scholarship]
}

// NewScholarshipRepository создаёт репозиторий программ стипендий.
func NewScholarshipRepository(s store.Store) ScholarshipRepository {
	return &scholarshipRepo{c: newCollection[model.Scholarship](s, CollectionScholarships)}
}

func (r *scholarshipRepo) Create(ctx context.Context, s *model.Scholarship) (*model.Scholarship, error) {
	return r.c.insert(ctx, s)
}

func (r *scholarshipRepo) GetByID(ctx context.Context, id string) (*model.Scholarship, error) {
	return r.c.get(ctx, id)
}

func (r *scholarshipRepo) List(ctx context.Context, status model.ScholarshipStatus) ([]*model.Scholarship, error) {
	return r.c.find(ctx, where(map[string]string{"status": string(status)}))
}

func (r *scholarshipRepo) Update(ctx context.Context, s *model.Scholarship) (*model.Scholarship, error) {
	return r.c.replace(ctx, s.ID, s)
}

func (r *scholarshipRepo) Delete(ctx context.Context, id string) error {
	return r.c.remove(ctx, id)
}
