package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/repository"
)

// ErrAssignmentProcessing indicates a mutation was rejected because a batch
// evaluation is still running for the assignment.
var ErrAssignmentProcessing = errors.New("assignment has an evaluation batch in progress")

// ErrInvalidStatusTransition indicates the requested status change is not
// allowed from the assignment's current status.
var ErrInvalidStatusTransition = errors.New("invalid assignment status transition")

// AssignmentService manages the assignment lifecycle and assignment-wide
// evaluation operations.
type AssignmentService interface {
	Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error)
	GetOverview(ctx context.Context, id, teacherID uint) (dto.AssignmentOverviewResponse, error)
	UpdateStatus(ctx context.Context, id, teacherID uint, status string) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id, teacherID uint) error
	ReEvaluateAll(ctx context.Context, id, teacherID uint) (int, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	evalRecords repository.EvaluationRepository
	evaluations EvaluationService
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService. The cache client is
// optional; nil disables overview caching.
func NewAssignmentService(assignmentRepo repository.AssignmentRepository, submissionRepo repository.SubmissionRepository, evaluationRepo repository.EvaluationRepository, evaluations EvaluationService, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AssignmentService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &assignmentService{
		assignments: assignmentRepo,
		submissions: submissionRepo,
		evalRecords: evaluationRepo,
		evaluations: evaluations,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	assignment := models.Assignment{
		Title:          payload.Title,
		Instructions:   payload.Instructions,
		MinWords:       500,
		MarkingMode:    models.MarkingModeStrict,
		TotalMarks:     100,
		PassPercentage: 0.6,
		TeacherID:      teacherID,
		Status:         models.AssignmentStatusDraft,
		Deadline:       payload.Deadline,
	}

	if payload.MinWords > 0 {
		assignment.MinWords = payload.MinWords
	}
	if payload.MarkingMode != "" {
		assignment.MarkingMode = models.MarkingMode(payload.MarkingMode)
	}
	if payload.TotalMarks > 0 {
		assignment.TotalMarks = payload.TotalMarks
	}
	if payload.PassPercentage > 0 {
		assignment.PassPercentage = payload.PassPercentage
	}

	criteria := models.DefaultGradingCriteria()
	if payload.GradingCriteria != nil {
		criteria = gradingCriteriaFromPayload(*payload.GradingCriteria)
	}
	assignment.GradingCriteria = datatypes.NewJSONType(criteria)

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment))
	}

	return responses, nil
}

// GetOverview returns the assignment together with its submissions and their
// latest evaluations. Results are cached briefly; the cache is dropped on any
// mutation through this service.
func (s *assignmentService) GetOverview(ctx context.Context, id, teacherID uint) (dto.AssignmentOverviewResponse, error) {
	cacheKey := overviewCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.AssignmentOverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				if response.TeacherID != teacherID {
					return dto.AssignmentOverviewResponse{}, ErrAssignmentForbidden
				}
				s.logger.Debug().Uint("assignment_id", id).Msg("overview cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read overview cache")
		}
	}

	assignment, err := s.getOwned(ctx, id, teacherID)
	if err != nil {
		return dto.AssignmentOverviewResponse{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &id})
	if err != nil {
		return dto.AssignmentOverviewResponse{}, err
	}

	ids := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		ids = append(ids, submission.ID)
	}

	evaluations, err := s.evalRecords.ListBySubmissionIDs(ctx, ids)
	if err != nil {
		return dto.AssignmentOverviewResponse{}, err
	}

	response := dto.AssignmentOverviewResponse{
		AssignmentResponse: dto.NewAssignmentResponse(assignment),
		Submissions:        dto.NewSubmissionResponseSlice(submissions, evaluations),
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(response); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store overview cache")
			}
		}
	}

	return response, nil
}

// UpdateStatus moves the assignment through its lifecycle. The first
// transition to active stamps publishedAt; the first transition to closed
// stamps closedAt.
func (s *assignmentService) UpdateStatus(ctx context.Context, id, teacherID uint, status string) (dto.AssignmentResponse, error) {
	assignment, err := s.getOwned(ctx, id, teacherID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if !validStatusTransition(assignment.Status, status) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, assignment.Status, status)
	}

	assignment.Status = status

	switch status {
	case models.AssignmentStatusActive:
		if assignment.PublishedAt == nil {
			now := s.now()
			assignment.PublishedAt = &now
		}
	case models.AssignmentStatusClosed:
		if assignment.ClosedAt == nil {
			now := s.now()
			assignment.ClosedAt = &now
		}
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.dropOverviewCache(ctx, id)

	return dto.NewAssignmentResponse(assignment), nil
}

// Delete removes the assignment and all dependent submissions and
// evaluations. Deletion is refused while a batch is processing.
func (s *assignmentService) Delete(ctx context.Context, id, teacherID uint) error {
	assignment, err := s.getOwned(ctx, id, teacherID)
	if err != nil {
		return err
	}

	if assignment.IsProcessing {
		return ErrAssignmentProcessing
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.dropOverviewCache(ctx, id)

	return nil
}

// ReEvaluateAll rescores every readable submission of the assignment and
// returns how many were rescored successfully. Unreadable submissions are
// skipped; one failure never stops the rest.
func (s *assignmentService) ReEvaluateAll(ctx context.Context, id, teacherID uint) (int, error) {
	assignment, err := s.getOwned(ctx, id, teacherID)
	if err != nil {
		return 0, err
	}

	if assignment.IsProcessing {
		return 0, ErrAssignmentProcessing
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &id})
	if err != nil {
		return 0, err
	}

	var count int

	for i := range submissions {
		submission := submissions[i]

		if !submission.IsReadable() {
			continue
		}

		if _, err := s.evaluations.ReEvaluate(ctx, assignment, submission); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to re-evaluate submission")
			submission.SubmissionStatus = models.SubmissionStatusEvaluationError
			submission.IsEvaluated = false
		} else {
			count++
			submission.SubmissionStatus = models.SubmissionStatusEvaluated
			submission.IsEvaluated = true
		}

		if err := s.submissions.Update(ctx, &submission); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to update submission status")
		}
	}

	s.dropOverviewCache(ctx, id)

	return count, nil
}

func (s *assignmentService) getOwned(ctx context.Context, id, teacherID uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if assignment.TeacherID != teacherID {
		return models.Assignment{}, ErrAssignmentForbidden
	}

	return assignment, nil
}

func (s *assignmentService) dropOverviewCache(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, overviewCacheKey(id)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop overview cache")
	}
}

func gradingCriteriaFromPayload(payload dto.GradingCriteriaPayload) models.GradingCriteria {
	return models.GradingCriteria{
		TopicRelevance: models.CriterionConfig(payload.TopicRelevance),
		Structure:      models.CriterionConfig(payload.Structure),
		ContentQuality: models.CriterionConfig(payload.ContentQuality),
		Grammar:        models.CriterionConfig(payload.Grammar),
		Length:         models.CriterionConfig(payload.Length),
	}
}

func overviewCacheKey(id uint) string {
	return fmt.Sprintf("assignment:overview:%d", id)
}

func validStatusTransition(from, to string) bool {
	if from == to {
		return true
	}

	switch from {
	case models.AssignmentStatusDraft:
		return to == models.AssignmentStatusActive || to == models.AssignmentStatusArchived
	case models.AssignmentStatusActive:
		return to == models.AssignmentStatusClosed || to == models.AssignmentStatusArchived
	case models.AssignmentStatusClosed:
		return to == models.AssignmentStatusActive || to == models.AssignmentStatusArchived
	case models.AssignmentStatusArchived:
		return false
	default:
		return false
	}
}
