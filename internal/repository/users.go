package repository

import (
	"context"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// UserRepository — доступ к коллекции users.
type UserRepository interface {
	// Create сохраняет нового пользователя.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	// GetByID возвращает пользователя по id.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail ищет пользователя по email без учёта регистра.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByStudentNumber ищет студента по номеру студенческого.
	GetByStudentNumber(ctx context.Context, studentNumber string) (*model.User, error)
	// CountByRole возвращает количество пользователей с ролью.
	CountByRole(ctx context.Context, role model.Role) (int, error)
}

type userRepo struct {
	c collection[model.User]
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(s store.Store) UserRepository {
	return &userRepo{c: newCollection[model.User](s, CollectionUsers)}
}

func (r *userRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	return r.c.insert(ctx, u)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.c.get(ctx, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.c.first(ctx, store.EqFold("email", email))
}

func (r *userRepo) GetByStudentNumber(ctx context.Context, studentNumber string) (*model.User, error) {
	return r.c.first(ctx, store.And(
		store.Eq("role", string(model.RoleStudent)),
		store.Eq("studentNumber", studentNumber),
	))
}

func (r *userRepo) CountByRole(ctx context.Context, role model.Role) (int, error) {
	return r.c.count(ctx, store.Eq("role", string(role)))
}
