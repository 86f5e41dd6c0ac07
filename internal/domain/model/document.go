package model

import "time"

// DocumentType — тип подтверждающего документа. Набор закрыт.
type DocumentType string

const (
	DocStudentIDCard               DocumentType = "student_id_card"
	DocTranscript                  DocumentType = "transcript"
	DocGPACertificate              DocumentType = "gpa_certificate"
	DocNoOtherScholarshipStatement DocumentType = "no_other_scholarship_statement"
	DocFamilyCard                  DocumentType = "family_card"
	DocLowIncomeCertificate        DocumentType = "low_income_certificate"
	DocOtherSupporting             DocumentType = "other_supporting"
)

// documentTitles — человекочитаемые названия для уведомлений и отчётов.
var documentTitles = map[DocumentType]string{
	DocStudentIDCard:               "Kartu Tanda Mahasiswa",
	DocTranscript:                  "Transkrip Nilai",
	DocGPACertificate:              "Surat Keterangan IPK",
	DocNoOtherScholarshipStatement: "Surat Pernyataan Tidak Menerima Beasiswa Lain",
	DocFamilyCard:                  "Kartu Keluarga",
	DocLowIncomeCertificate:        "Surat Keterangan Tidak Mampu",
	DocOtherSupporting:             "Dokumen Pendukung Lainnya",
}

// DocumentTypes возвращает все допустимые типы в фиксированном порядке.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocStudentIDCard,
		DocTranscript,
		DocGPACertificate,
		DocNoOtherScholarshipStatement,
		DocFamilyCard,
		DocLowIncomeCertificate,
		DocOtherSupporting,
	}
}

// Valid проверяет, что тип из закрытого набора.
func (t DocumentType) Valid() bool {
	_, ok := documentTitles[t]
	return ok
}

// Title возвращает название типа документа.
func (t DocumentType) Title() string {
	if title, ok := documentTitles[t]; ok {
		return title
	}
	return string(t)
}

// Document — загруженный PDF-документ, привязанный к заявке.
type Document struct {
	ID            string       `json:"id,omitempty"`
	ApplicationID string       `json:"applicationId"`
	UserID        string       `json:"userId"`
	StudentName   string       `json:"studentName"`
	Type          DocumentType `json:"type"`
	FileName      string       `json:"fileName"`
	FilePath      string       `json:"filePath"`
	Size          int64        `json:"size"`
	Checksum      string       `json:"checksum"`
	Status        ReviewStatus `json:"status"`
	Note          string       `json:"note,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     *time.Time   `json:"updatedAt,omitempty"`
}
