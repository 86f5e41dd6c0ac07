// errors.go — ошибки бизнес-логики сервисного слоя.
// Handlers сопоставляют их с HTTP-статусами через errors.Is.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrUnauthenticated — требуется вход в систему.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrConflict — нарушение бизнес-правила уникальности.
	ErrConflict = errors.New("конфликт")
	// ErrStoreIO — ошибка хранилища записей или файлов.
	ErrStoreIO = errors.New("ошибка хранилища")
)

// validationf формирует ErrValidation с сообщением для клиента.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr оборачивает ошибку хранилища в ErrStoreIO.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreIO, op, err)
}
