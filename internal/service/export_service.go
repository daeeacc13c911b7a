package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/repository"
)

// ErrUnsupportedExportFormat indicates a format the exporter cannot produce.
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

var marksSheetHeader = []string{"Student Name", "Roll Number", "Score", "Percentage", "Status", "Evaluation Status", "Remarks"}

// ExportFile is a rendered marks sheet ready for download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders assignment marks sheets.
type ExportService interface {
	MarksSheet(ctx context.Context, assignmentID, teacherID uint, format string) (ExportFile, error)
}

type exportService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	evaluations repository.EvaluationRepository
	logger      zerolog.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(assignmentRepo repository.AssignmentRepository, submissionRepo repository.SubmissionRepository, evaluationRepo repository.EvaluationRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		assignments: assignmentRepo,
		submissions: submissionRepo,
		evaluations: evaluationRepo,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

// MarksSheet renders the marks sheet for an assignment in the requested
// format. Unevaluated submissions appear with N/A marks so the roster stays
// complete.
func (s *exportService) MarksSheet(ctx context.Context, assignmentID, teacherID uint, format string) (ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return ExportFile{}, fmt.Errorf("%w: %s", ErrUnsupportedExportFormat, format)
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExportFile{}, ErrAssignmentNotFound
		}
		return ExportFile{}, err
	}

	if assignment.TeacherID != teacherID {
		return ExportFile{}, ErrAssignmentForbidden
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return ExportFile{}, err
	}

	ids := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		ids = append(ids, submission.ID)
	}

	evaluations, err := s.evaluations.ListBySubmissionIDs(ctx, ids)
	if err != nil {
		return ExportFile{}, err
	}

	rows := make([][]string, 0, len(submissions))
	for _, submission := range submissions {
		evaluation, ok := evaluations[submission.ID]
		if ok {
			rows = append(rows, marksRow(submission, &evaluation))
		} else {
			rows = append(rows, marksRow(submission, nil))
		}
	}

	var data []byte
	switch format {
	case ExportFormatCSV:
		data, err = renderCSV(rows)
	case ExportFormatXLSX:
		data, err = renderXLSX(rows)
	}
	if err != nil {
		return ExportFile{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Str("format", format).
		Int("rows", len(rows)).
		Msg("rendered marks sheet")

	return ExportFile{
		FileName:    fmt.Sprintf("assignment_%d_marks.%s", assignmentID, format),
		ContentType: exportContentType(format),
		Data:        data,
	}, nil
}

func marksRow(submission models.Submission, evaluation *models.EvaluationResult) []string {
	if evaluation == nil {
		remarks := ""
		switch submission.SubmissionStatus {
		case models.SubmissionStatusUnreadable:
			remarks = "Document could not be read"
		case models.SubmissionStatusEvaluationError:
			remarks = "Automatic evaluation failed"
		}
		return []string{
			submission.StudentName,
			submission.StudentRollNumber,
			"N/A",
			"N/A",
			"PENDING",
			submission.SubmissionStatus,
			remarks,
		}
	}

	status := "FAIL"
	if evaluation.Passed {
		status = "PASS"
	}

	return []string{
		submission.StudentName,
		submission.StudentRollNumber,
		fmt.Sprintf("%.1f", evaluation.Score),
		fmt.Sprintf("%.2f%%", evaluation.PercentageScore),
		status,
		submission.SubmissionStatus,
		evaluation.Remarks,
	}
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(marksSheetHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Marks"
	index, err := file.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := file.SetSheetRow(sheet, "A1", &marksSheetHeader); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func exportContentType(format string) string {
	if format == ExportFormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}
