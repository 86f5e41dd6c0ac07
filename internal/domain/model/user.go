// Пакет model — доменные модели SIBO.
// Поля сериализуются в записи хранилища под теми же JSON-именами.
package model

import "time"

// Role — роль пользователя.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid проверяет, что роль из допустимого набора.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User — учётная запись пользователя.
type User struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"passwordHash"`
	Role           Role       `json:"role"`
	StudentNumber  string     `json:"studentNumber,omitempty"`
	Faculty        string     `json:"faculty,omitempty"`
	Department     string     `json:"department,omitempty"`
	EnrollmentYear int        `json:"enrollmentYear,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// IsAdmin — пользователь с ролью admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile — публичное представление пользователя без хеша пароля.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	StudentNumber  string    `json:"studentNumber,omitempty"`
	Faculty        string    `json:"faculty,omitempty"`
	Department     string    `json:"department,omitempty"`
	EnrollmentYear int       `json:"enrollmentYear,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile возвращает публичное представление пользователя.
func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		StudentNumber:  u.StudentNumber,
		Faculty:        u.Faculty,
		Department:     u.Department,
		EnrollmentYear: u.EnrollmentYear,
		CreatedAt:      u.CreatedAt,
	}
}
