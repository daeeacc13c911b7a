package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/repository"
	"github.com/noah-isme/grader-go-api/pkg/ai"
)

// ErrEvaluationNotFound indicates an evaluation record could not be found.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// EvaluationService owns the create/override/re-evaluate lifecycle of
// evaluation results, including versioning.
type EvaluationService interface {
	Create(ctx context.Context, assignment models.Assignment, submission models.Submission, version int) (models.EvaluationResult, error)
	ReEvaluate(ctx context.Context, assignment models.Assignment, submission models.Submission) (models.EvaluationResult, error)
	GetBySubmission(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error)
	ManualOverride(ctx context.Context, evaluationID uint, reviewerID uint, payload dto.ManualOverrideRequest) (dto.EvaluationResponse, error)
	DirectUpdate(ctx context.Context, evaluationID uint, payload dto.EvaluationUpdateRequest) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	evaluator   ai.Evaluator
	sanitizer   *bluemonday.Policy
	locks       *keyedMutex
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEvaluationService constructs an EvaluationService instance.
func NewEvaluationService(evaluationRepo repository.EvaluationRepository, assignmentRepo repository.AssignmentRepository, submissionRepo repository.SubmissionRepository, evaluator ai.Evaluator, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		evaluations: evaluationRepo,
		assignments: assignmentRepo,
		submissions: submissionRepo,
		evaluator:   evaluator,
		sanitizer:   bluemonday.StrictPolicy(),
		locks:       newKeyedMutex(),
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         time.Now,
	}
}

// Create scores the submission and persists a fresh evaluation record at the
// given version. Scoring failures propagate untouched so the caller decides
// the submission-status transition.
func (s *evaluationService) Create(ctx context.Context, assignment models.Assignment, submission models.Submission, version int) (models.EvaluationResult, error) {
	result, err := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		Instructions:   assignment.Instructions,
		StudentContent: submission.FileContent,
		MinWords:       assignment.MinWords,
		MarkingMode:    string(assignment.MarkingMode),
		TotalMarks:     assignment.TotalMarks,
		PassPercentage: assignment.PassPercentage,
		Rubric:         rubricWeights(assignment.GradingCriteria.Data()),
	})
	if err != nil {
		return models.EvaluationResult{}, err
	}

	percentage := percentageScore(result.Score, assignment.TotalMarks)

	evaluation := models.EvaluationResult{
		SubmissionID:    submission.ID,
		AIScore:         result.Score,
		Score:           result.Score,
		PercentageScore: percentage,
		Passed:          percentage >= assignment.PassMark(),
		Remarks:         result.Remarks,
		Version:         version,
		DetailedFeedback: datatypes.NewJSONType(models.DetailedFeedback{
			TopicRelevance: result.Feedback.TopicRelevance,
			Structure:      result.Feedback.Structure,
			ContentQuality: result.Feedback.ContentQuality,
			WordCount:      result.Feedback.WordCount,
			Recommendation: result.Feedback.Recommendation,
		}),
	}

	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		return models.EvaluationResult{}, err
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("version", version).
		Float64("score", evaluation.Score).
		Bool("passed", evaluation.Passed).
		Msg("evaluation created")

	return evaluation, nil
}

// ReEvaluate replaces any existing evaluation for the submission with a fresh
// one at version+1. With no prior record the version simply starts at 1.
// Concurrent re-evaluations of the same submission are serialized.
func (s *evaluationService) ReEvaluate(ctx context.Context, assignment models.Assignment, submission models.Submission) (models.EvaluationResult, error) {
	unlock := s.locks.Lock(submission.ID)
	defer unlock()

	version := 1
	existing, err := s.evaluations.GetBySubmissionID(ctx, submission.ID)
	switch {
	case err == nil:
		version = existing.Version + 1
		if err := s.evaluations.Delete(ctx, existing.ID); err != nil {
			return models.EvaluationResult{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First evaluation for this submission.
	default:
		return models.EvaluationResult{}, err
	}

	return s.Create(ctx, assignment, submission, version)
}

func (s *evaluationService) GetBySubmission(ctx context.Context, submissionID uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

// ManualOverride records a teacher correction. The review fields are stamped
// on every call, even when only comments change.
func (s *evaluationService) ManualOverride(ctx context.Context, evaluationID uint, reviewerID uint, payload dto.ManualOverrideRequest) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	if payload.TeacherScore != nil {
		score := *payload.TeacherScore
		evaluation.TeacherScore = &score
		evaluation.Score = score
		if err := s.recomputeDerived(ctx, &evaluation); err != nil {
			return dto.EvaluationResponse{}, err
		}
	}

	if payload.TeacherComments != nil {
		evaluation.TeacherComments = s.sanitizer.Sanitize(*payload.TeacherComments)
	}

	evaluation.IsManuallyReviewed = true
	evaluation.ReviewedBy = &reviewerID
	reviewedAt := s.now()
	evaluation.ReviewedAt = &reviewedAt

	if err := s.evaluations.Update(ctx, &evaluation); err != nil {
		return dto.EvaluationResponse{}, err
	}

	s.logger.Info().
		Uint("evaluation_id", evaluation.ID).
		Uint("reviewer_id", reviewerID).
		Msg("evaluation manually overridden")

	return dto.NewEvaluationResponse(evaluation), nil
}

// DirectUpdate patches score or remarks without touching teacher score or the
// manual-review flags.
func (s *evaluationService) DirectUpdate(ctx context.Context, evaluationID uint, payload dto.EvaluationUpdateRequest) (dto.EvaluationResponse, error) {
	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	if payload.Score != nil {
		evaluation.Score = *payload.Score
		if err := s.recomputeDerived(ctx, &evaluation); err != nil {
			return dto.EvaluationResponse{}, err
		}
	}

	if payload.Remarks != nil {
		evaluation.Remarks = s.sanitizer.Sanitize(*payload.Remarks)
	}

	if err := s.evaluations.Update(ctx, &evaluation); err != nil {
		return dto.EvaluationResponse{}, err
	}

	return dto.NewEvaluationResponse(evaluation), nil
}

// recomputeDerived refreshes percentage and pass state from the current
// authoritative score against the owning assignment's rubric.
func (s *evaluationService) recomputeDerived(ctx context.Context, evaluation *models.EvaluationResult) error {
	submission, err := s.submissions.GetByID(ctx, evaluation.SubmissionID)
	if err != nil {
		return err
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}

	evaluation.PercentageScore = percentageScore(evaluation.Score, assignment.TotalMarks)
	evaluation.Passed = evaluation.PercentageScore >= assignment.PassMark()

	return nil
}

func percentageScore(score, totalMarks float64) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return math.Round(score/totalMarks*100*100) / 100
}

func rubricWeights(criteria models.GradingCriteria) ai.RubricWeights {
	return ai.RubricWeights{
		TopicRelevance: ai.CriterionWeight(criteria.TopicRelevance),
		Structure:      ai.CriterionWeight(criteria.Structure),
		ContentQuality: ai.CriterionWeight(criteria.ContentQuality),
		Grammar:        ai.CriterionWeight(criteria.Grammar),
		Length:         ai.CriterionWeight(criteria.Length),
	}
}
