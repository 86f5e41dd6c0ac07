// stats.go — сводные показатели для панелей администратора и студента.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/report"
	"github.com/bigkaa/sibo/internal/repository"
)

// ScholarshipCounts — программы по статусам.
type ScholarshipCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// AdminStats — показатели панели администратора.
type AdminStats struct {
	Students     int               `json:"students"`
	Scholarships ScholarshipCounts `json:"scholarships"`
	Applications report.Summary    `json:"applications"`
	Documents    report.Summary    `json:"documents"`
}

// StudentOverview — показатели панели студента.
type StudentOverview struct {
	Applications        report.Summary `json:"applications"`
	Documents           report.Summary `json:"documents"`
	UnreadNotifications int            `json:"unreadNotifications"`
	OpenScholarships    int            `json:"openScholarships"`
}

// StatsService — сервис сводных показателей.
type StatsService struct {
	users         repository.UserRepository
	scholarships  repository.ScholarshipRepository
	apps          repository.ApplicationRepository
	docs          repository.DocumentRepository
	notifications *NotificationService
	now           func() time.Time
	logger        *slog.Logger
}

// NewStatsService создаёт сервис показателей. now == nil — time.Now.
func NewStatsService(
	users repository.UserRepository,
	scholarships repository.ScholarshipRepository,
	apps repository.ApplicationRepository,
	docs repository.DocumentRepository,
	notifications *NotificationService,
	now func() time.Time,
	logger *slog.Logger,
) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{
		users:         users,
		scholarships:  scholarships,
		apps:          apps,
		docs:          docs,
		notifications: notifications,
		now:           now,
		logger:        logger.With(slog.String("component", "stats_service")),
	}
}

// Admin возвращает показатели по всей системе.
func (s *StatsService) Admin(ctx context.Context) (*AdminStats, error) {
	students, err := s.users.CountByRole(ctx, model.RoleStudent)
	if err != nil {
		return nil, storeErr("подсчёт студентов", err)
	}

	list, err := s.scholarships.List(ctx, "")
	if err != nil {
		return nil, storeErr("список программ", err)
	}
	sc := ScholarshipCounts{Total: len(list)}
	for _, sch := range list {
		if sch.Status == model.ScholarshipActive {
			sc.Active++
		} else {
			sc.Inactive++
		}
	}

	apps, err := s.apps.Find(ctx, repository.ApplicationFilter{})
	if err != nil {
		return nil, storeErr("список заявок", err)
	}
	docs, err := s.docs.Find(ctx, repository.DocumentFilter{})
	if err != nil {
		return nil, storeErr("список документов", err)
	}

	return &AdminStats{
		Students:     students,
		Scholarships: sc,
		Applications: report.Summarize(apps),
		Documents:    summarizeDocuments(docs),
	}, nil
}

// Student возвращает показатели студента.
func (s *StatsService) Student(ctx context.Context, actor Actor) (*StudentOverview, error) {
	apps, err := s.apps.Find(ctx, repository.ApplicationFilter{UserID: actor.UserID})
	if err != nil {
		return nil, storeErr("список заявок", err)
	}
	docs, err := s.docs.Find(ctx, repository.DocumentFilter{UserID: actor.UserID})
	if err != nil {
		return nil, storeErr("список документов", err)
	}
	unread, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	active, err := s.scholarships.List(ctx, model.ScholarshipActive)
	if err != nil {
		return nil, storeErr("список программ", err)
	}
	now := s.now()
	open := 0
	for _, sch := range active {
		if sch.AcceptsApplications(now) {
			open++
		}
	}

	return &StudentOverview{
		Applications:        report.Summarize(apps),
		Documents:           summarizeDocuments(docs),
		UnreadNotifications: unread,
		OpenScholarships:    open,
	}, nil
}

// summarizeDocuments считает документы по статусам.
func summarizeDocuments(docs []*model.Document) report.Summary {
	sum := report.Summary{Total: len(docs)}
	for _, d := range docs {
		switch d.Status {
		case model.StatusPending:
			sum.Pending++
		case model.StatusAccepted:
			sum.Accepted++
		case model.StatusRejected:
			sum.Rejected++
		}
	}
	return sum
}
