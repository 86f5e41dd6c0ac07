package service

import "github.com/bigkaa/sibo/internal/domain/model"

// Actor — пользователь, от имени которого выполняется операция.
type Actor struct {
	UserID string
	Role   model.Role
}

// IsAdmin — действует администратор.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// owns проверяет, что запись принадлежит actor или actor — администратор.
func (a Actor) owns(userID string) bool {
	return a.IsAdmin() || a.UserID == userID
}
