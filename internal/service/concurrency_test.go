package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

// slowHasher растягивает хеширование, как bcrypt.
type slowHasher struct{ delay time.Duration }

func (h slowHasher) HashPassword(p string) (string, error) {
	time.Sleep(h.delay)
	return "hashed:" + p, nil
}

// runConcurrently запускает fn в n горутинах одновременно и собирает ошибки.
func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

// countOutcomes делит ошибки на успехи и конфликты. Прочие ошибки — провал теста.
func countOutcomes(t *testing.T, errs []error) (ok, conflicts int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	return ok, conflicts
}

// TestRegister_Concurrent проверяет уникальность email и номера студента
// при одновременной регистрации.
func TestRegister_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	users := NewUserService(env.userRepo, slowHasher{delay: 20 * time.Millisecond}, testLogger())
	ctx := context.Background()

	const n = 8
	errs := runConcurrently(n, func(int) error {
		_, err := users.Register(ctx, RegisterInput{
			Name: "Dup", Email: "dup@x.id", Password: "rahasia123",
			StudentNumber: "M999", Faculty: "Teknik", Department: "Informatika",
		})
		return err
	})

	ok, conflicts := countOutcomes(t, errs)
	if ok != 1 || conflicts != n-1 {
		t.Errorf("успешно %d, конфликтов %d, ожидалось 1 и %d", ok, conflicts, n-1)
	}
	if got := env.countRecords(t, repository.CollectionUsers); got != 1 {
		t.Errorf("пользователей = %d, ожидался 1", got)
	}
}

// TestSubmit_Concurrent проверяет одну заявку на программу при одновременной подаче.
func TestSubmit_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "budi@student.ac.id", "M1")
	sch := env.openScholarship(t, 0)

	const n = 8
	errs := runConcurrently(n, func(int) error {
		_, err := env.applications.Submit(ctx, student, ApplyInput{ScholarshipID: sch.ID, GPA: gpa(3.5), Reason: "r"})
		return err
	})

	ok, conflicts := countOutcomes(t, errs)
	if ok != 1 || conflicts != n-1 {
		t.Errorf("успешно %d, конфликтов %d, ожидалось 1 и %d", ok, conflicts, n-1)
	}
	if got := env.countRecords(t, repository.CollectionApplications); got != 1 {
		t.Errorf("заявок = %d, ожидалась 1", got)
	}
}

// TestUpload_Concurrent проверяет один документ каждого типа при одновременной загрузке.
func TestUpload_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "budi@student.ac.id", "M1")
	sch := env.openScholarship(t, 0)
	app, err := env.applications.Submit(ctx, student, ApplyInput{ScholarshipID: sch.ID, GPA: gpa(3.5), Reason: "r"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	const n = 8
	errs := runConcurrently(n, func(int) error {
		_, err := env.documents.Upload(ctx, student, pdfUpload(app.ID, model.DocTranscript))
		return err
	})

	ok, conflicts := countOutcomes(t, errs)
	if ok != 1 || conflicts != n-1 {
		t.Errorf("успешно %d, конфликтов %d, ожидалось 1 и %d", ok, conflicts, n-1)
	}
	if got := env.countRecords(t, repository.CollectionDocuments); got != 1 {
		t.Errorf("документов = %d, ожидался 1", got)
	}
}
