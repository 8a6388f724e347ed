package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-api/internal/dto"
	"github.com/noah-isme/alumnos-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
	"github.com/noah-isme/alumnos-api/pkg/export"
)

type studentLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var studentExportHeaders = []string{"id", "name", "email", "registration_date"}

// ExportService renders the student roster into downloadable files.
type ExportService struct {
	students studentLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService wires the export service with its renderers.
func NewExportService(students studentLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export renders every student in the requested format.
func (s *ExportService) Export(ctx context.Context, format dto.ExportFormat) (*dto.ExportFile, error) {
	if !format.Valid() {
		err := appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
		err.Fields = map[string]string{"format": "must be one of csv, pdf"}
		return nil, err
	}

	students, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	data := studentDataset(students)

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(data, "Alumnos")
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(data)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to render export")
	}

	s.logger.Info("students exported", zap.String("format", string(format)), zap.Int("rows", len(students)))
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("alumnos-%s.%s", s.now().UTC().Format("20060102"), format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func studentDataset(students []models.Student) export.Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"id":                strconv.FormatInt(st.ID, 10),
			"name":              st.Name,
			"email":             st.Email,
			"registration_date": st.RegistrationDate.String(),
		})
	}
	return export.Dataset{Headers: studentExportHeaders, Rows: rows, Widths: []float64{1, 4, 5, 3}}
}
