package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/models"
)

// EvaluationRepository defines data operations for evaluation results.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.EvaluationResult, error)
	GetBySubmissionID(ctx context.Context, submissionID uint) (models.EvaluationResult, error)
	ListBySubmissionIDs(ctx context.Context, submissionIDs []uint) (map[uint]models.EvaluationResult, error)
	Create(ctx context.Context, evaluation *models.EvaluationResult) error
	Update(ctx context.Context, evaluation *models.EvaluationResult) error
	Delete(ctx context.Context, id uint) error
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.EvaluationResult, error) {
	var evaluation models.EvaluationResult
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return models.EvaluationResult{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) GetBySubmissionID(ctx context.Context, submissionID uint) (models.EvaluationResult, error) {
	var evaluation models.EvaluationResult
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&evaluation).Error; err != nil {
		return models.EvaluationResult{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListBySubmissionIDs(ctx context.Context, submissionIDs []uint) (map[uint]models.EvaluationResult, error) {
	if len(submissionIDs) == 0 {
		return map[uint]models.EvaluationResult{}, nil
	}

	var evaluations []models.EvaluationResult
	if err := r.db.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	bySubmission := make(map[uint]models.EvaluationResult, len(evaluations))
	for _, evaluation := range evaluations {
		bySubmission[evaluation.SubmissionID] = evaluation
	}

	return bySubmission, nil
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.EvaluationResult) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) Update(ctx context.Context, evaluation *models.EvaluationResult) error {
	return r.db.WithContext(ctx).Save(evaluation).Error
}

func (r *evaluationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.EvaluationResult{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
