package model

import "time"

// ReviewStatus — статус рассмотрения заявки или документа.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusAccepted ReviewStatus = "accepted"
	StatusRejected ReviewStatus = "rejected"
)

// Valid проверяет, что статус из допустимого набора.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsDecision — статус является решением администратора.
func (s ReviewStatus) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// MaxGPA — верхняя граница шкалы GPA.
const MaxGPA = 4.0

// Application — заявка студента на стипендию.
// StudentName и StudentNumber — снимок профиля на момент подачи.
type Application struct {
	ID            string       `json:"id,omitempty"`
	UserID        string       `json:"userId"`
	ScholarshipID string       `json:"scholarshipId"`
	StudentName   string       `json:"studentName"`
	StudentNumber string       `json:"studentNumber"`
	GPA           float64      `json:"gpa"`
	Reason        string       `json:"reason"`
	Status        ReviewStatus `json:"status"`
	Note          string       `json:"note,omitempty"`
	ReviewedBy    string       `json:"reviewedBy,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     *time.Time   `json:"updatedAt,omitempty"`
}
