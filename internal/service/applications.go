// applications.go — подача и рассмотрение заявок на стипендии.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// applicationsTotal — поданные заявки и решения по ним.
var applicationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sibo_applications_total",
		Help: "Количество поданных и рассмотренных заявок",
	},
	[]string{"event"},
)

// ApplyInput — данные заявки студента.
type ApplyInput struct {
	ScholarshipID string   `json:"scholarshipId"`
	GPA           *float64 `json:"gpa"`
	Reason        string   `json:"reason"`
}

// ApplicationView — заявка с названием программы для списков.
type ApplicationView struct {
	*model.Application
	ScholarshipName string `json:"scholarshipName,omitempty"`
}

// ApplicationService — сервис заявок.
type ApplicationService struct {
	apps          repository.ApplicationRepository
	users         repository.UserRepository
	scholarships  *ScholarshipService
	notifications *NotificationService
	now           func() time.Time
	logger        *slog.Logger

	// submitMu сериализует проверку дубликата и вставку заявки
	submitMu sync.Mutex
}

// NewApplicationService создаёт сервис заявок. now == nil — time.Now.
func NewApplicationService(
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	scholarships *ScholarshipService,
	notifications *NotificationService,
	now func() time.Time,
	logger *slog.Logger,
) *ApplicationService {
	if now == nil {
		now = time.Now
	}
	return &ApplicationService{
		apps:          apps,
		users:         users,
		scholarships:  scholarships,
		notifications: notifications,
		now:           now,
		logger:        logger.With(slog.String("component", "application_service")),
	}
}

// Submit подаёт заявку студента. При любой ошибке проверки ничего не записывается.
func (s *ApplicationService) Submit(ctx context.Context, actor Actor, in ApplyInput) (*ApplicationView, error) {
	if actor.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: подавать заявки могут только студенты", ErrForbidden)
	}

	in.ScholarshipID = strings.TrimSpace(in.ScholarshipID)
	in.Reason = strings.TrimSpace(in.Reason)
	switch {
	case in.ScholarshipID == "":
		return nil, validationf("поле scholarshipId обязательно")
	case in.GPA == nil:
		return nil, validationf("поле gpa обязательно")
	case in.Reason == "":
		return nil, validationf("поле reason обязательно")
	case *in.GPA < 0 || *in.GPA > model.MaxGPA:
		return nil, validationf("GPA должен быть в диапазоне 0–4")
	}

	sch, err := s.scholarships.Get(ctx, in.ScholarshipID)
	if err != nil {
		return nil, err
	}
	if !sch.AcceptsApplications(s.now()) {
		return nil, validationf("программа «%s» сейчас не принимает заявки", sch.Name)
	}
	if *in.GPA < sch.MinGPA {
		return nil, validationf("минимальный GPA для программы — %.2f", sch.MinGPA)
	}

	student, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь сессии не найден", ErrUnauthenticated)
		}
		return nil, storeErr("получение студента", err)
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	existing, err := s.apps.Find(ctx, repository.ApplicationFilter{UserID: actor.UserID, ScholarshipID: sch.ID})
	if err != nil {
		return nil, storeErr("поиск заявок", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: заявка на эту программу уже подана", ErrConflict)
	}

	app, err := s.apps.Create(ctx, &model.Application{
		UserID:        actor.UserID,
		ScholarshipID: sch.ID,
		StudentName:   student.Name,
		StudentNumber: student.StudentNumber,
		GPA:           *in.GPA,
		Reason:        in.Reason,
		Status:        model.StatusPending,
	})
	if err != nil {
		return nil, storeErr("создание заявки", err)
	}
	applicationsTotal.WithLabelValues("submitted").Inc()

	s.logger.Info("Заявка подана",
		slog.String("application_id", app.ID),
		slog.String("user_id", app.UserID),
		slog.String("scholarship_id", app.ScholarshipID),
	)

	if err := s.notifications.notify(ctx, submittedNotification(app, sch.Name)); err != nil {
		return nil, err
	}
	return &ApplicationView{Application: app, ScholarshipName: sch.Name}, nil
}

// List возвращает заявки: студенту — только свои, администратору — по фильтру.
func (s *ApplicationService) List(ctx context.Context, actor Actor, f repository.ApplicationFilter) ([]*ApplicationView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — pending, accepted, rejected")
	}
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}

	apps, err := s.apps.Find(ctx, f)
	if err != nil {
		return nil, storeErr("список заявок", err)
	}

	views := make([]*ApplicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, s.view(ctx, a))
	}
	return views, nil
}

// Get возвращает заявку владельцу или администратору.
func (s *ApplicationService) Get(ctx context.Context, actor Actor, id string) (*ApplicationView, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.owns(app.UserID) {
		return nil, fmt.Errorf("%w: заявка принадлежит другому студенту", ErrForbidden)
	}
	return s.view(ctx, app), nil
}

// Review записывает решение администратора. Решения accepted и rejected
// порождают уведомление студенту.
func (s *ApplicationService) Review(ctx context.Context, actor Actor, id string, status model.ReviewStatus, note string) (*ApplicationView, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: рассматривать заявки может только администратор", ErrForbidden)
	}
	if !status.Valid() {
		return nil, validationf("некорректный статус: допустимые значения — pending, accepted, rejected")
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	app, err := s.apps.SetStatus(ctx, id, status, strings.TrimSpace(note), actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка", ErrNotFound)
		}
		return nil, storeErr("обновление заявки", err)
	}
	applicationsTotal.WithLabelValues(string(status)).Inc()

	s.logger.Info("Заявка рассмотрена",
		slog.String("application_id", app.ID),
		slog.String("status", string(app.Status)),
		slog.String("reviewed_by", actor.UserID),
	)

	if status.IsDecision() {
		if err := s.notifications.notify(ctx, reviewedNotification(app)); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, app), nil
}

// ForScholarship возвращает заявки программы, опционально по статусу.
func (s *ApplicationService) ForScholarship(ctx context.Context, scholarshipID string, status model.ReviewStatus) ([]*model.Application, error) {
	apps, err := s.apps.Find(ctx, repository.ApplicationFilter{ScholarshipID: scholarshipID, Status: status})
	if err != nil {
		return nil, storeErr("список заявок программы", err)
	}
	return apps, nil
}

// load читает заявку по ID.
func (s *ApplicationService) load(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка", ErrNotFound)
		}
		return nil, storeErr("получение заявки", err)
	}
	return app, nil
}

// view дополняет заявку названием программы. Удалённая программа — пустое название.
func (s *ApplicationService) view(ctx context.Context, app *model.Application) *ApplicationView {
	v := &ApplicationView{Application: app}
	sch, err := s.scholarships.Get(ctx, app.ScholarshipID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Не удалось получить программу для заявки",
				slog.String("application_id", app.ID),
				slog.String("error", err.Error()),
			)
		}
		return v
	}
	v.ScholarshipName = sch.Name
	return v
}
