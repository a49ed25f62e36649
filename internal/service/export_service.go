package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/export"
)

// ReportFormat selects the rendering for a session report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportRepository interface {
	SessionReport(ctx context.Context, sessionID string) ([]models.AttendanceReportRow, error)
}

type reportSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
}

type reportClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered session report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders attendance session reports.
type ExportService struct {
	attendance reportRepository
	sessions   reportSessionReader
	classes    reportClassReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(attendance reportRepository, sessions reportSessionReader, classes reportClassReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		attendance: attendance,
		sessions:   sessions,
		classes:    classes,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
	}
}

// SessionReport renders the attendance report of one session. Teachers may
// export only their own classes; admins may export any.
func (s *ExportService) SessionReport(ctx context.Context, actorID string, actorRole models.UserRole, sessionID string, format ReportFormat) (*ExportFile, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}

	class, err := s.classes.FindByID(ctx, session.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if actorRole != models.RoleAdmin && class.TeacherID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not own this class")
	}

	rows, err := s.attendance.SessionReport(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build report")
	}

	dataset := buildSessionDataset(rows)
	title := fmt.Sprintf("Attendance Report - %s (%s)", class.Name, session.StartTime.Format("2006-01-02"))

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	s.logger.Info("session report rendered",
		zap.String("session_id", sessionID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return &ExportFile{
		Filename:    buildReportFilename(class.Code, format),
		ContentType: contentTypeFor(format),
		Payload:     payload,
	}, nil
}

func buildSessionDataset(rows []models.AttendanceReportRow) export.Dataset {
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		confidence := ""
		if row.ConfidenceScore != nil {
			confidence = fmt.Sprintf("%.4f", *row.ConfidenceScore)
		}
		dataRows = append(dataRows, map[string]string{
			"Student ID": row.StudentID,
			"Name":       row.StudentName,
			"Marked At":  row.Timestamp.UTC().Format(time.RFC3339),
			"Status":     string(row.Status),
			"Confidence": confidence,
		})
	}
	return export.Dataset{
		Headers: []string{"Student ID", "Name", "Marked At", "Status", "Confidence"},
		Rows:    dataRows,
	}
}

func buildReportFilename(classCode string, format ReportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	code := strings.ToLower(strings.TrimSpace(classCode))
	if code == "" {
		code = "session"
	}
	return fmt.Sprintf("attendance_%s_%s.%s", code, timestamp, format)
}

func contentTypeFor(format ReportFormat) string {
	if format == ReportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
