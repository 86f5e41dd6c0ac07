// users.go — регистрация студентов и профиль пользователя.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// MinPasswordLength — минимальная длина пароля при регистрации.
const MinPasswordLength = 6

// PasswordHasher — хеширование паролей. Реализуется auth.Manager.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// RegisterInput — данные регистрации студента.
type RegisterInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	StudentNumber  string `json:"studentNumber"`
	Faculty        string `json:"faculty"`
	Department     string `json:"department"`
	EnrollmentYear int    `json:"enrollmentYear"`
}

// UserService — сервис пользователей.
type UserService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	logger *slog.Logger

	// registerMu сериализует проверку уникальности и вставку пользователя
	registerMu sync.Mutex
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repository.UserRepository, hasher PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Register создаёт учётную запись студента.
// Занятый email или номер студента — ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.StudentNumber = strings.TrimSpace(in.StudentNumber)
	in.Faculty = strings.TrimSpace(in.Faculty)
	in.Department = strings.TrimSpace(in.Department)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email уже зарегистрирован", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("поиск пользователя по email", err)
	}

	if _, err := s.users.GetByStudentNumber(ctx, in.StudentNumber); err == nil {
		return nil, fmt.Errorf("%w: номер студента уже зарегистрирован", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("поиск пользователя по номеру студента", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           model.RoleStudent,
		StudentNumber:  in.StudentNumber,
		Faculty:        in.Faculty,
		Department:     in.Department,
		EnrollmentYear: in.EnrollmentYear,
	})
	if err != nil {
		return nil, storeErr("создание пользователя", err)
	}

	s.logger.Info("Студент зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("student_number", user.StudentNumber),
	)
	return user, nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь", ErrNotFound)
		}
		return nil, storeErr("получение пользователя", err)
	}
	return user, nil
}

// validateRegistration проверяет обязательные поля регистрации.
func validateRegistration(in RegisterInput) error {
	required := []struct {
		field string
		value string
	}{
		{"name", in.Name},
		{"email", in.Email},
		{"password", in.Password},
		{"studentNumber", in.StudentNumber},
		{"faculty", in.Faculty},
		{"department", in.Department},
	}
	for _, r := range required {
		if r.value == "" {
			return validationf("поле %s обязательно", r.field)
		}
	}

	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return validationf("некорректный email")
	}
	if len(in.Password) < MinPasswordLength {
		return validationf("пароль должен содержать не менее %d символов", MinPasswordLength)
	}
	if in.EnrollmentYear < 0 {
		return validationf("некорректный год поступления")
	}
	return nil
}
