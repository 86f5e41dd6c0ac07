// Пакет report — PDF-отчёт по заявкам одной программы стипендии.
// Вёрстка простая: сведения о программе, сводка по статусам и таблица заявок.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/bigkaa/sibo/internal/domain/model"
)

// Data — входные данные отчёта.
type Data struct {
	Scholarship  *model.Scholarship
	Applications []*model.Application
	// Status — фильтр, применённый к заявкам ("" — все).
	Status      model.ReviewStatus
	GeneratedAt time.Time
	GeneratedBy string
}

// Summary — количество заявок по статусам.
type Summary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Summarize считает заявки по статусам.
func Summarize(apps []*model.Application) Summary {
	s := Summary{Total: len(apps)}
	for _, a := range apps {
		switch a.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusAccepted:
			s.Accepted++
		case model.StatusRejected:
			s.Rejected++
		}
	}
	return s
}

// FileName возвращает имя файла отчёта: Laporan_{программа}_{дата}.pdf.
func FileName(scholarshipName string, at time.Time) string {
	name := strings.Join(strings.Fields(scholarshipName), "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, name)
	if name == "" {
		name = "Beasiswa"
	}
	return fmt.Sprintf("Laporan_%s_%s.pdf", name, at.UTC().Format("2006-01-02"))
}

// Ширины колонок таблицы заявок, мм.
var columnWidths = []float64{12, 68, 40, 22, 38}

// Render записывает PDF-отчёт в w.
func Render(w io.Writer, d Data) error {
	if d.Scholarship == nil {
		return fmt.Errorf("отчёт без программы стипендии")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Laporan Beasiswa "+d.Scholarship.Name, true)
	pdf.SetCreator("SIBO", true)
	pdf.SetCreationDate(d.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Laporan Pendaftaran Beasiswa"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Dicetak %s oleh %s", d.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), d.GeneratedBy)),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Сведения о программе
	sch := d.Scholarship
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(sch.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if sch.Description != "" {
		pdf.MultiCell(0, 5, tr(sch.Description), "", "L", false)
	}
	info := [][2]string{
		{"Kuota", fmt.Sprintf("%d", sch.Quota)},
		{"IPK minimum", fmt.Sprintf("%.2f", sch.MinGPA)},
		{"Periode", fmt.Sprintf("%s s.d. %s", sch.OpensAt.UTC().Format("2006-01-02"), sch.ClosesAt.UTC().Format("2006-01-02"))},
		{"Status program", string(sch.Status)},
		{"Filter status", statusLabel(d.Status)},
	}
	for _, row := range info {
		pdf.CellFormat(40, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(": "+row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Сводка
	sum := Summarize(d.Applications)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Ringkasan", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %d   Menunggu: %d   Diterima: %d   Ditolak: %d",
		sum.Total, sum.Pending, sum.Accepted, sum.Rejected), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Таблица заявок
	headers := []string{"No", "Nama", "NIM", "IPK", "Status"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(columnWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	if len(d.Applications) == 0 {
		pdf.CellFormat(sumWidths(), 7, "Tidak ada pendaftaran", "1", 1, "C", false, 0, "")
	}
	for i, a := range d.Applications {
		cells := []string{
			fmt.Sprintf("%d", i+1),
			tr(a.StudentName),
			tr(a.StudentNumber),
			fmt.Sprintf("%.2f", a.GPA),
			statusLabel(a.Status),
		}
		for j, c := range cells {
			align := "L"
			if j == 0 || j == 3 {
				align = "C"
			}
			pdf.CellFormat(columnWidths[j], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("ошибка формирования PDF: %w", err)
	}
	return nil
}

// statusLabel возвращает подпись статуса для отчёта.
func statusLabel(s model.ReviewStatus) string {
	switch s {
	case "":
		return "Semua"
	case model.StatusPending:
		return "Menunggu"
	case model.StatusAccepted:
		return "Diterima"
	case model.StatusRejected:
		return "Ditolak"
	}
	return string(s)
}

func sumWidths() float64 {
	var total float64
	for _, w := range columnWidths {
		total += w
	}
	return total
}
