// reports.go — PDF-отчёт по заявкам программы.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/report"
)

// StatusAll — значение фильтра отчёта «все статусы».
const StatusAll = "all"

// Report — сформированный отчёт.
type Report struct {
	FileName string
	Content  []byte
	Summary  report.Summary
}

// ReportService — сервис отчётов.
type ReportService struct {
	scholarships *ScholarshipService
	applications *ApplicationService
	users        *UserService
	now          func() time.Time
	logger       *slog.Logger
}

// NewReportService создаёт сервис отчётов. now == nil — time.Now.
func NewReportService(
	scholarships *ScholarshipService,
	applications *ApplicationService,
	users *UserService,
	now func() time.Time,
	logger *slog.Logger,
) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		scholarships: scholarships,
		applications: applications,
		users:        users,
		now:          now,
		logger:       logger.With(slog.String("component", "report_service")),
	}
}

// ScholarshipReport формирует PDF по заявкам программы.
// status "" или "all" — без фильтра.
func (s *ReportService) ScholarshipReport(ctx context.Context, actor Actor, scholarshipID, status string) (*Report, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	filter := model.ReviewStatus(strings.TrimSpace(status))
	if filter == StatusAll {
		filter = ""
	}
	if filter != "" && !filter.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — all, pending, accepted, rejected")
	}

	sch, err := s.scholarships.Get(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}
	apps, err := s.applications.ForScholarship(ctx, sch.ID, filter)
	if err != nil {
		return nil, err
	}

	generatedBy := actor.UserID
	if admin, err := s.users.Get(ctx, actor.UserID); err == nil {
		generatedBy = admin.Name
	}

	now := s.now()
	var buf bytes.Buffer
	if err := report.Render(&buf, report.Data{
		Scholarship:  sch,
		Applications: apps,
		Status:       filter,
		GeneratedAt:  now,
		GeneratedBy:  generatedBy,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Отчёт сформирован",
		slog.String("scholarship_id", sch.ID),
		slog.String("status", string(filter)),
		slog.Int("applications", len(apps)),
		slog.Int("bytes", buf.Len()),
	)
	return &Report{
		FileName: report.FileName(sch.Name, now),
		Content:  buf.Bytes(),
		Summary:  report.Summarize(apps),
	}, nil
}
