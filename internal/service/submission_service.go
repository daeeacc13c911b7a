package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/observability"
	"github.com/noah-isme/grader-go-api/internal/repository"
	"github.com/noah-isme/grader-go-api/internal/worker"
	"github.com/noah-isme/grader-go-api/pkg/extract"
)

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAssignmentNotFound indicates an assignment could not be found.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrAssignmentForbidden indicates the caller does not own the assignment.
var ErrAssignmentForbidden = errors.New("assignment belongs to another teacher")

// ErrAssignmentNotAcceptingUploads indicates the assignment is not active.
var ErrAssignmentNotAcceptingUploads = errors.New("assignment is not accepting submissions")

// ErrSubmissionUnreadable indicates the submission has no usable text to score.
var ErrSubmissionUnreadable = errors.New("submission is unreadable and cannot be evaluated")

// ErrNoFilesProvided indicates an upload request without documents.
var ErrNoFilesProvided = errors.New("no files provided")

// BatchCompletedSubject is the NATS subject batch completion events are
// published on.
const BatchCompletedSubject = "grader.evaluation.batch.completed"

// BatchCompletedEvent signals that a batch evaluation run has finished,
// successfully or otherwise.
type BatchCompletedEvent struct {
	BatchID      string    `json:"batch_id"`
	AssignmentID uint      `json:"assignment_id"`
	Total        int       `json:"total"`
	Evaluated    int       `json:"evaluated"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	CompletedAt  time.Time `json:"completed_at"`
}

// FileArchiver stores the original uploaded document and returns its URL.
type FileArchiver interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmissionService orchestrates batch ingestion and the background
// evaluation pipeline.
type SubmissionService interface {
	UploadAndProcess(ctx context.Context, assignmentID, teacherID uint, files []*multipart.FileHeader) (dto.UploadSubmissionsResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint, filter dto.SubmissionListFilter) ([]dto.SubmissionResponse, error)
	GetByID(ctx context.Context, id uint) (dto.SubmissionDetailResponse, error)
	ReEvaluate(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error)
}

// SubmissionConfig carries upload-boundary limits.
type SubmissionConfig struct {
	MaxFileSize  int64
	MaxBatchSize int
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	evaluations EvaluationService
	evalRecords repository.EvaluationRepository
	extractor   extract.Extractor
	archiver    FileArchiver
	pool        *worker.Pool
	events      *nats.Conn
	config      SubmissionConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. The archiver
// and events connection are optional; nil disables the feature.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, evaluations EvaluationService, evaluationRepo repository.EvaluationRepository, extractor extract.Extractor, archiver FileArchiver, pool *worker.Pool, events *nats.Conn, cfg SubmissionConfig, logger zerolog.Logger) SubmissionService {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}

	return &submissionService{
		submissions: submissionRepo,
		assignments: assignmentRepo,
		evaluations: evaluations,
		evalRecords: evaluationRepo,
		extractor:   extractor,
		archiver:    archiver,
		pool:        pool,
		events:      events,
		config:      cfg,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// UploadAndProcess ingests a batch of documents for an assignment. Every
// accepted document is persisted in pending (or unreadable) state before the
// call returns; scoring runs as a detached background phase.
func (s *submissionService) UploadAndProcess(ctx context.Context, assignmentID, teacherID uint, files []*multipart.FileHeader) (dto.UploadSubmissionsResponse, error) {
	if len(files) == 0 {
		return dto.UploadSubmissionsResponse{}, ErrNoFilesProvided
	}
	if len(files) > s.config.MaxBatchSize {
		files = files[:s.config.MaxBatchSize]
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UploadSubmissionsResponse{}, ErrAssignmentNotFound
		}
		return dto.UploadSubmissionsResponse{}, err
	}

	if assignment.TeacherID != teacherID {
		return dto.UploadSubmissionsResponse{}, ErrAssignmentForbidden
	}

	if !assignment.AcceptsSubmissions() {
		return dto.UploadSubmissionsResponse{}, fmt.Errorf("%w: status is %s", ErrAssignmentNotAcceptingUploads, assignment.Status)
	}

	created := make([]models.Submission, 0, len(files))

	for _, file := range files {
		submission, ok := s.ingestFile(ctx, assignment, file)
		if !ok {
			continue
		}
		created = append(created, submission)
	}

	batchID := uuid.NewString()

	if len(created) > 0 {
		batch := make([]models.Submission, len(created))
		copy(batch, created)
		s.pool.Go(func() {
			// Detached from the request context: the caller's response
			// must not gate the scoring phase.
			s.evaluateBatch(context.Background(), batchID, assignment, batch)
		})
	}

	return dto.UploadSubmissionsResponse{
		UploadedCount:     len(created),
		ProcessingStarted: len(created) > 0,
		BatchID:           batchID,
		Submissions:       dto.NewSubmissionResponseSlice(created, nil),
	}, nil
}

// ingestFile runs the per-document ingestion steps. Non-document mime types
// and oversized files are skipped silently; extraction failure routes the
// submission straight to unreadable.
func (s *submissionService) ingestFile(ctx context.Context, assignment models.Assignment, file *multipart.FileHeader) (models.Submission, bool) {
	logger := s.logger.With().Str("file_name", file.Filename).Logger()

	if file.Size > s.config.MaxFileSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		logger.Warn().Int64("size", file.Size).Msg("file exceeds size cap, skipping")
		return models.Submission{}, false
	}

	data, err := readFile(file)
	if err != nil {
		observability.UploadsRejected().WithLabelValues("read").Inc()
		logger.Warn().Err(err).Msg("failed to read uploaded file, skipping")
		return models.Submission{}, false
	}

	mime := mimetype.Detect(data)
	if !mime.Is("application/pdf") && !mime.Is("text/plain") {
		observability.UploadsRejected().WithLabelValues("type").Inc()
		logger.Debug().Str("mime", mime.String()).Msg("non-document mime type, skipping")
		return models.Submission{}, false
	}

	identity := ResolveStudentIdentity(file.Filename)
	result := s.extractor.Extract(file.Filename, data)

	submission := models.Submission{
		AssignmentID:      assignment.ID,
		StudentName:       identity.Name,
		StudentRollNumber: identity.RollNumber,
		FileName:          file.Filename,
		FileContent:       result.Text,
		SubmissionStatus:  models.SubmissionStatusPending,
	}

	if !result.Readable {
		submission.SubmissionStatus = models.SubmissionStatusUnreadable
		submission.FileContent = models.UnreadableContent
	}

	if s.archiver != nil {
		url, err := s.archiver.Upload(ctx, file.Filename, bytes.NewReader(data))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to archive original document")
		} else {
			submission.FileURL = url
		}
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		logger.Error().Err(err).Msg("failed to persist submission")
		return models.Submission{}, false
	}

	observability.UploadsAccepted().WithLabelValues(submission.SubmissionStatus).Inc()

	return submission, true
}

// evaluateBatch is the background scoring phase. The assignment's processing
// flag is held for the whole run and released on every exit path; one
// submission's failure never aborts its siblings.
func (s *submissionService) evaluateBatch(ctx context.Context, batchID string, assignment models.Assignment, submissions []models.Submission) {
	logger := s.logger.With().
		Str("batch_id", batchID).
		Uint("assignment_id", assignment.ID).
		Logger()

	start := s.now()

	if err := s.assignments.SetProcessing(ctx, assignment.ID, true); err != nil {
		logger.Error().Err(err).Msg("failed to set processing flag")
	}

	var evaluated, failed, skipped int

	defer func() {
		if err := s.assignments.SetProcessing(ctx, assignment.ID, false); err != nil {
			logger.Error().Err(err).Msg("failed to clear processing flag")
		}

		observability.BatchDuration().Observe(s.now().Sub(start).Seconds())

		s.publishBatchCompleted(BatchCompletedEvent{
			BatchID:      batchID,
			AssignmentID: assignment.ID,
			Total:        len(submissions),
			Evaluated:    evaluated,
			Failed:       failed,
			Skipped:      skipped,
			CompletedAt:  s.now(),
		})

		logger.Info().
			Int("evaluated", evaluated).
			Int("failed", failed).
			Int("skipped", skipped).
			Msg("batch evaluation finished")
	}()

	for i := range submissions {
		submission := submissions[i]

		if submission.SubmissionStatus == models.SubmissionStatusUnreadable {
			skipped++
			logger.Warn().Uint("submission_id", submission.ID).Msg("skipping unreadable submission")
			continue
		}

		if _, err := s.evaluations.Create(ctx, assignment, submission, 1); err != nil {
			failed++
			observability.EvaluationsTotal().WithLabelValues("error").Inc()
			logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to evaluate submission")
			submission.SubmissionStatus = models.SubmissionStatusEvaluationError
			submission.IsEvaluated = false
		} else {
			evaluated++
			observability.EvaluationsTotal().WithLabelValues("evaluated").Inc()
			submission.SubmissionStatus = models.SubmissionStatusEvaluated
			submission.IsEvaluated = true
		}

		if err := s.submissions.Update(ctx, &submission); err != nil {
			logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to update submission status")
		}
	}
}

func (s *submissionService) publishBatchCompleted(event BatchCompletedEvent) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode batch event")
		return
	}

	if err := s.events.Publish(BatchCompletedSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish batch completion event")
	}
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint, filter dto.SubmissionListFilter) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignmentID,
		Evaluated:    filter.Evaluated,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		ids = append(ids, submission.ID)
	}

	evaluations, err := s.evalRecords.ListBySubmissionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions, evaluations), nil
}

// GetByID assembles the submission with its assignment and evaluation by
// manual lookup; the three entities are independently owned.
func (s *submissionService) GetByID(ctx context.Context, id uint) (dto.SubmissionDetailResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetailResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionDetailResponse{}, err
	}

	detail := dto.SubmissionDetailResponse{
		SubmissionResponse: dto.NewSubmissionResponse(submission),
		FileContent:        submission.FileContent,
	}

	if assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID); err == nil {
		response := dto.NewAssignmentResponse(assignment)
		detail.Assignment = &response
	}

	if evaluation, err := s.evalRecords.GetBySubmissionID(ctx, submission.ID); err == nil {
		response := dto.NewEvaluationResponse(evaluation)
		detail.Evaluation = &response
	}

	return detail, nil
}

// ReEvaluate rescores one submission on demand, bumping the evaluation
// version. Unreadable submissions are rejected until re-extracted.
func (s *submissionService) ReEvaluate(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrSubmissionNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	if !submission.IsReadable() {
		return dto.EvaluationResponse{}, ErrSubmissionUnreadable
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrAssignmentNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	evaluation, err := s.evaluations.ReEvaluate(ctx, assignment, submission)
	if err != nil {
		submission.SubmissionStatus = models.SubmissionStatusEvaluationError
		submission.IsEvaluated = false
		if updateErr := s.submissions.Update(ctx, &submission); updateErr != nil {
			s.logger.Error().Err(updateErr).Uint("submission_id", submission.ID).Msg("failed to record evaluation error")
		}
		return dto.EvaluationResponse{}, err
	}

	submission.SubmissionStatus = models.SubmissionStatusEvaluated
	submission.IsEvaluated = true
	if err := s.submissions.Update(ctx, &submission); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to update submission status")
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	return io.ReadAll(handle)
}
