package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type mockReportRepo struct {
	rows []models.AttendanceReportRow
}

func (m *mockReportRepo) SessionReport(ctx context.Context, sessionID string) ([]models.AttendanceReportRow, error) {
	return m.rows, nil
}

func reportFixtures() (*mockReportRepo, *mockSessionRepo, *mockClassReaderByOwner) {
	confidence := 0.9876
	reports := &mockReportRepo{rows: []models.AttendanceReportRow{
		{StudentID: "s1", StudentName: "Jane Doe", Timestamp: time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC), Status: models.AttendanceStatusPresent, ConfidenceScore: &confidence},
	}}
	sessions := &mockSessionRepo{sessions: map[string]*models.AttendanceSession{
		"sess1": {ID: "sess1", ClassID: "c1", StartTime: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), IsActive: true},
	}}
	classes := &mockClassReaderByOwner{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Algebra II", Code: "AB12CD34", TeacherID: "t1"},
	}}
	return reports, sessions, classes
}

func TestSessionReportCSV(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	file, err := svc.SessionReport(context.Background(), "t1", models.RoleTeacher, "sess1", ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "attendance_ab12cd34_"))

	body := string(file.Payload)
	assert.Contains(t, body, "Student ID")
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, "0.9876")
}

func TestSessionReportPDF(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	file, err := svc.SessionReport(context.Background(), "t1", models.RoleTeacher, "sess1", ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Payload), "%PDF"))
}

func TestSessionReportForbiddenForOtherTeacher(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	_, err := svc.SessionReport(context.Background(), "t2", models.RoleTeacher, "sess1", ReportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSessionReportAdminBypassesOwnership(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	_, err := svc.SessionReport(context.Background(), "a1", models.RoleAdmin, "sess1", ReportFormatCSV)
	require.NoError(t, err)
}

func TestSessionReportUnknownFormat(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	_, err := svc.SessionReport(context.Background(), "t1", models.RoleTeacher, "sess1", ReportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionReportUnknownSession(t *testing.T) {
	reports, sessions, classes := reportFixtures()
	svc := NewExportService(reports, sessions, classes, zap.NewNop(), nil, nil)

	_, err := svc.SessionReport(context.Background(), "t1", models.RoleTeacher, "ghost", ReportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}
