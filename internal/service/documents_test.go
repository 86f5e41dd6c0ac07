package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bigkaa/sibo/internal/domain/model"
	"github.com/bigkaa/sibo/internal/repository"
)

var testPDF = []byte("%PDF-1.4\n%%EOF\n")

func pdfUpload(appID string, typ model.DocumentType) UploadInput {
	return UploadInput{ApplicationID: appID, Type: typ, FileName: "dokumen.pdf", Content: bytes.NewReader(testPDF)}
}

// TestDocumentUpload проверяет правила загрузки.
func TestDocumentUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budi := env.student(t, "budi@student.ac.id", "M1")
	siti := env.student(t, "siti@student.ac.id", "M2")
	admin := env.admin(t)
	sch := env.openScholarship(t, 0)
	app, _ := env.applications.Submit(ctx, budi, ApplyInput{ScholarshipID: sch.ID, GPA: gpa(3.5), Reason: "r"})

	tests := []struct {
		name    string
		actor   Actor
		in      UploadInput
		wantErr error
	}{
		{"администратор не загружает", admin, pdfUpload(app.ID, model.DocTranscript), ErrForbidden},
		{"чужая заявка", siti, pdfUpload(app.ID, model.DocTranscript), ErrNotFound},
		{"нет заявки", budi, pdfUpload("missing", model.DocTranscript), ErrNotFound},
		{"неизвестный тип", budi, pdfUpload(app.ID, "passport"), ErrValidation},
		{"не PDF по расширению", budi, UploadInput{
			ApplicationID: app.ID, Type: model.DocTranscript, FileName: "foto.jpg", Content: bytes.NewReader(testPDF),
		}, ErrValidation},
		{"не PDF по содержимому", budi, UploadInput{
			ApplicationID: app.ID, Type: model.DocTranscript, FileName: "x.pdf", Content: strings.NewReader("GIF89a"),
		}, ErrValidation},
		{"слишком большой", budi, UploadInput{
			ApplicationID: app.ID, Type: model.DocTranscript, FileName: "x.pdf",
			Content: io.MultiReader(bytes.NewReader(testPDF), bytes.NewReader(make([]byte, 2048))),
		}, ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.documents.Upload(ctx, tt.actor, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, ожидалась %v", err, tt.wantErr)
			}
		})
	}
	if n := env.countRecords(t, repository.CollectionDocuments); n != 0 {
		t.Fatalf("отклонённые документы записаны: %d", n)
	}

	doc, err := env.documents.Upload(ctx, budi, UploadInput{
		ApplicationID: app.ID, Type: model.DocTranscript, FileName: "TRANSKRIP.PDF", Content: bytes.NewReader(testPDF),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != model.StatusPending || doc.Size != int64(len(testPDF)) || doc.Checksum == "" || doc.StudentName == "" {
		t.Errorf("документ = %+v", doc)
	}
	if !strings.HasPrefix(doc.FileName, budi.UserID+"_"+app.ID+"_transcript_") {
		t.Errorf("FileName = %q", doc.FileName)
	}

	if _, err := env.documents.Upload(ctx, budi, pdfUpload(app.ID, model.DocTranscript)); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный тип: ожидалась ErrConflict, получено %v", err)
	}
	if _, err := env.documents.Upload(ctx, budi, pdfUpload(app.ID, model.DocFamilyCard)); err != nil {
		t.Errorf("другой тип: %v", err)
	}
}

// TestDocumentVerifyAndOpen проверяет проверку документа и доступ к файлу.
func TestDocumentVerifyAndOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budi := env.student(t, "budi@student.ac.id", "M1")
	siti := env.student(t, "siti@student.ac.id", "M2")
	admin := env.admin(t)
	sch := env.openScholarship(t, 0)
	app, _ := env.applications.Submit(ctx, budi, ApplyInput{ScholarshipID: sch.ID, GPA: gpa(3.5), Reason: "r"})
	doc, err := env.documents.Upload(ctx, budi, pdfUpload(app.ID, model.DocStudentIDCard))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.documents.Verify(ctx, budi, doc.ID, model.StatusAccepted, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("студент проверяет: ожидалась ErrForbidden, получено %v", err)
	}
	verified, err := env.documents.Verify(ctx, admin, doc.ID, model.StatusRejected, "buram")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Status != model.StatusRejected || verified.Note != "buram" {
		t.Errorf("документ = %+v", verified)
	}

	notes, _ := env.notifications.List(ctx, budi, false)
	if len(notes) != 2 || notes[0].Kind != model.NotifyDocumentReviewed || notes[0].DocumentID != doc.ID {
		t.Errorf("уведомления = %+v", notes)
	}

	if _, _, err := env.documents.Open(ctx, siti, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("чужой документ: ожидалась ErrForbidden, получено %v", err)
	}
	for _, actor := range []Actor{budi, admin} {
		_, f, err := env.documents.Open(ctx, actor, doc.ID)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		data, _ := io.ReadAll(f)
		f.Close()
		if !bytes.Equal(data, testPDF) {
			t.Error("содержимое файла отличается")
		}
	}

	listed, _ := env.documents.List(ctx, siti, repository.DocumentFilter{})
	if len(listed) != 0 {
		t.Errorf("студент видит чужие документы: %d", len(listed))
	}
	listed, _ = env.documents.List(ctx, admin, repository.DocumentFilter{Status: model.StatusRejected})
	if len(listed) != 1 {
		t.Errorf("администратор по статусу rejected: %d", len(listed))
	}
}
