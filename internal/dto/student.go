package dto

import "github.com/noah-isme/alumnos-api/internal/models"

// StudentRequest is the payload accepted when creating or updating a student.
// RegistrationDate is honoured on create only.
type StudentRequest struct {
	Name             string       `json:"name" validate:"notblank,max=100"`
	Email            string       `json:"email" validate:"notblank,email,max=150"`
	RegistrationDate *models.Date `json:"registration_date,omitempty"`
}

// ExportFormat selects the rendering of a student export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
