// scholarships.go — управление программами стипендий.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// ScholarshipInput — данные создания программы.
type ScholarshipInput struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Quota       int                     `json:"quota"`
	MinGPA      float64                 `json:"minGpa"`
	OpensAt     time.Time               `json:"opensAt"`
	ClosesAt    time.Time               `json:"closesAt"`
	Status      model.ScholarshipStatus `json:"status"`
}

// ScholarshipPatch — частичное изменение программы. nil — поле не меняется.
type ScholarshipPatch struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	Quota       *int                     `json:"quota"`
	MinGPA      *float64                 `json:"minGpa"`
	OpensAt     *time.Time               `json:"opensAt"`
	ClosesAt    *time.Time               `json:"closesAt"`
	Status      *model.ScholarshipStatus `json:"status"`
}

// ScholarshipService — сервис программ стипендий.
type ScholarshipService struct {
	repo   repository.ScholarshipRepository
	cache  *ScholarshipCache
	logger *slog.Logger
}

// NewScholarshipService создаёт сервис программ.
func NewScholarshipService(repo repository.ScholarshipRepository, cache *ScholarshipCache, logger *slog.Logger) *ScholarshipService {
	return &ScholarshipService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "scholarship_service")),
	}
}

// List возвращает программы; пустой статус — все.
func (s *ScholarshipService) List(ctx context.Context, status model.ScholarshipStatus) ([]*model.Scholarship, error) {
	if status != "" && !status.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — active, inactive")
	}
	list, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, storeErr("список программ", err)
	}
	return list, nil
}

// Get возвращает программу по ID. Использует кэш.
func (s *ScholarshipService) Get(ctx context.Context, id string) (*model.Scholarship, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}

	sch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: программа стипендии", ErrNotFound)
		}
		return nil, storeErr("получение программы", err)
	}
	s.cache.Set(sch)
	return sch, nil
}

// Create создаёт программу. Статус по умолчанию — active.
func (s *ScholarshipService) Create(ctx context.Context, in ScholarshipInput) (*model.Scholarship, error) {
	sch := &model.Scholarship{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Quota:       in.Quota,
		MinGPA:      in.MinGPA,
		OpensAt:     in.OpensAt.UTC(),
		ClosesAt:    in.ClosesAt.UTC(),
		Status:      in.Status,
	}
	if sch.Status == "" {
		sch.Status = model.ScholarshipActive
	}
	if err := validateScholarship(sch); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, sch)
	if err != nil {
		return nil, storeErr("создание программы", err)
	}

	s.logger.Info("Программа стипендии создана",
		slog.String("scholarship_id", created.ID),
		slog.String("name", created.Name),
	)
	return created, nil
}

// Update применяет частичное изменение. Итоговая программа проверяется целиком.
func (s *ScholarshipService) Update(ctx context.Context, id string, p ScholarshipPatch) (*model.Scholarship, error) {
	sch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: программа стипендии", ErrNotFound)
		}
		return nil, storeErr("получение программы", err)
	}

	if p.Name != nil {
		sch.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		sch.Description = strings.TrimSpace(*p.Description)
	}
	if p.Quota != nil {
		sch.Quota = *p.Quota
	}
	if p.MinGPA != nil {
		sch.MinGPA = *p.MinGPA
	}
	if p.OpensAt != nil {
		sch.OpensAt = p.OpensAt.UTC()
	}
	if p.ClosesAt != nil {
		sch.ClosesAt = p.ClosesAt.UTC()
	}
	if p.Status != nil {
		sch.Status = *p.Status
	}
	if err := validateScholarship(sch); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, sch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: программа стипендии", ErrNotFound)
		}
		return nil, storeErr("обновление программы", err)
	}
	s.cache.Delete(id)

	s.logger.Info("Программа стипендии обновлена", slog.String("scholarship_id", id))
	return updated, nil
}

// Delete удаляет программу. Заявки на неё остаются в хранилище.
func (s *ScholarshipService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: программа стипендии", ErrNotFound)
		}
		return storeErr("удаление программы", err)
	}
	s.cache.Delete(id)

	s.logger.Info("Программа стипендии удалена", slog.String("scholarship_id", id))
	return nil
}

// validateScholarship проверяет поля программы.
func validateScholarship(s *model.Scholarship) error {
	switch {
	case s.Name == "":
		return validationf("поле name обязательно")
	case s.Quota < 1:
		return validationf("квота должна быть не меньше 1")
	case s.MinGPA < 0 || s.MinGPA > model.MaxGPA:
		return validationf("минимальный GPA должен быть в диапазоне 0–4")
	case s.OpensAt.IsZero() || s.ClosesAt.IsZero():
		return validationf("поля opensAt и closesAt обязательны")
	case s.OpensAt.After(s.ClosesAt):
		return validationf("opensAt не может быть позже closesAt")
	case !s.Status.Valid():
		return validationf("некорректный статус: допустимые значения — active, inactive")
	}
	return nil
}
