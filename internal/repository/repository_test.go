package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/store"
)

// TestUserRepository проверяет поиск пользователей.
func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.NewMemoryStore())

	created, err := repo.Create(ctx, &model.User{
		Name: "Siti", Email: "Siti@Student.ac.id", PasswordHash: "hash",
		Role: model.RoleStudent, StudentNumber: "2021001", EnrollmentYear: 2021,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id/createdAt не присвоены: %+v", created)
	}
	if created.EnrollmentYear != 2021 {
		t.Errorf("EnrollmentYear = %d, ожидался 2021", created.EnrollmentYear)
	}

	got, err := repo.GetByEmail(ctx, "siti@student.AC.ID")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID || got.PasswordHash != "hash" {
		t.Errorf("GetByEmail вернул %+v", got)
	}

	if _, err := repo.GetByStudentNumber(ctx, "2021001"); err != nil {
		t.Errorf("GetByStudentNumber: %v", err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}

	n, err := repo.CountByRole(ctx, model.RoleStudent)
	if err != nil || n != 1 {
		t.Errorf("CountByRole = %d, %v", n, err)
	}
}

// TestScholarshipRepository проверяет список, обновление и удаление программ.
func TestScholarshipRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewScholarshipRepository(store.NewMemoryStore())
	opens := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := repo.Create(ctx, &model.Scholarship{
		Name: "Prestasi", Quota: 10, MinGPA: 3.5, OpensAt: opens, ClosesAt: opens.AddDate(0, 3, 0),
		Status: model.ScholarshipActive,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, &model.Scholarship{Name: "KIP", Status: model.ScholarshipInactive}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, _ := repo.List(ctx, "")
	active, _ := repo.List(ctx, model.ScholarshipActive)
	if len(all) != 2 || len(active) != 1 {
		t.Fatalf("List: всего %d, активных %d", len(all), len(active))
	}
	if !active[0].OpensAt.Equal(opens) || active[0].MinGPA != 3.5 {
		t.Errorf("поля не сохранились: %+v", active[0])
	}

	a.Quota = 20
	a.Status = model.ScholarshipInactive
	updated, err := repo.Update(ctx, a)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Quota != 20 || updated.UpdatedAt == nil {
		t.Errorf("Update вернул %+v", updated)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Error("createdAt изменён")
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete: ожидалась ErrNotFound, получено %v", err)
	}
}

// TestApplicationRepository_Find проверяет фильтры заявок.
func TestApplicationRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo := NewApplicationRepository(store.NewMemoryStore())

	for _, a := range []*model.Application{
		{UserID: "u1", ScholarshipID: "s1", GPA: 3.6, Status: model.StatusPending},
		{UserID: "u1", ScholarshipID: "s2", GPA: 3.6, Status: model.StatusAccepted},
		{UserID: "u2", ScholarshipID: "s1", GPA: 3.1, Status: model.StatusPending},
	} {
		if _, err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ApplicationFilter
		want   int
	}{
		{"без фильтра", ApplicationFilter{}, 3},
		{"по пользователю", ApplicationFilter{UserID: "u1"}, 2},
		{"по стипендии", ApplicationFilter{ScholarshipID: "s1"}, 2},
		{"по статусу", ApplicationFilter{Status: model.StatusPending}, 2},
		{"комбинация", ApplicationFilter{UserID: "u1", ScholarshipID: "s1"}, 1},
		{"нет совпадений", ApplicationFilter{UserID: "u3"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Find(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Find(%+v) = %d, ожидалось %d", tt.filter, len(got), tt.want)
			}
		})
	}
}

// TestApplicationRepository_SetStatus проверяет запись решения.
func TestApplicationRepository_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewApplicationRepository(store.NewMemoryStore())

	a, _ := repo.Create(ctx, &model.Application{UserID: "u1", ScholarshipID: "s1", Status: model.StatusPending})

	got, err := repo.SetStatus(ctx, a.ID, model.StatusAccepted, "selamat", "admin-1")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != model.StatusAccepted || got.Note != "selamat" || got.ReviewedBy != "admin-1" {
		t.Errorf("SetStatus вернул %+v", got)
	}
	if _, err := repo.SetStatus(ctx, "missing", model.StatusRejected, "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestNotificationRepository проверяет выборку непрочитанных и отметку о прочтении.
func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(store.NewMemoryStore())

	n1, _ := repo.Create(ctx, &model.Notification{UserID: "u1", ApplicationID: "a1", Title: "t1"})
	_, _ = repo.Create(ctx, &model.Notification{UserID: "u1", ApplicationID: "a1", Title: "t2"})
	_, _ = repo.Create(ctx, &model.Notification{UserID: "u2", ApplicationID: "a2", Title: "t3"})

	if _, err := repo.MarkRead(ctx, n1.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	all, _ := repo.ListByUser(ctx, "u1", false)
	unread, _ := repo.ListByUser(ctx, "u1", true)
	if len(all) != 2 || len(unread) != 1 {
		t.Errorf("всего %d, непрочитанных %d; ожидалось 2 и 1", len(all), len(unread))
	}
}

// TestDocumentRepository проверяет фильтр по типу и смену статуса.
func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(store.NewMemoryStore())

	d, _ := repo.Create(ctx, &model.Document{
		ApplicationID: "a1", UserID: "u1", Type: model.DocTranscript, Size: 2048, Status: model.StatusPending,
	})
	_, _ = repo.Create(ctx, &model.Document{ApplicationID: "a1", UserID: "u1", Type: model.DocFamilyCard, Status: model.StatusPending})

	got, err := repo.Find(ctx, DocumentFilter{ApplicationID: "a1", Type: model.DocTranscript})
	if err != nil || len(got) != 1 {
		t.Fatalf("Find: %v, %d документов", err, len(got))
	}
	if got[0].Size != 2048 {
		t.Errorf("Size = %d, ожидался 2048", got[0].Size)
	}

	updated, err := repo.SetStatus(ctx, d.ID, model.StatusRejected, "buram")
	if err != nil || updated.Status != model.StatusRejected || updated.Note != "buram" {
		t.Errorf("SetStatus: %+v, %v", updated, err)
	}
}
