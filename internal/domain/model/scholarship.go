package model

import "time"

// ScholarshipStatus — статус программы стипендии.
type ScholarshipStatus string

const (
	ScholarshipActive   ScholarshipStatus = "active"
	ScholarshipInactive ScholarshipStatus = "inactive"
)

// Valid проверяет, что статус из допустимого набора.
func (s ScholarshipStatus) Valid() bool {
	return s == ScholarshipActive || s == ScholarshipInactive
}

// Scholarship — программа стипендии.
type Scholarship struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Quota       int               `json:"quota"`
	MinGPA      float64           `json:"minGpa"`
	OpensAt     time.Time         `json:"opensAt"`
	ClosesAt    time.Time         `json:"closesAt"`
	Status      ScholarshipStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   *time.Time        `json:"updatedAt,omitempty"`
}

// AcceptsApplications — программа активна и now попадает в окно приёма.
func (s *Scholarship) AcceptsApplications(now time.Time) bool {
	if s.Status != ScholarshipActive {
		return false
	}
	return !now.Before(s.OpensAt) && !now.After(s.ClosesAt)
}
