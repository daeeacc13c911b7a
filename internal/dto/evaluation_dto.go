package dto

import (
	"time"

	"github.com/noah-isme/grader-go-api/internal/models"
)

// ManualOverrideRequest is a teacher correction of an automated evaluation.
// Score and comments can be supplied independently.
type ManualOverrideRequest struct {
	TeacherScore    *float64 `json:"teacher_score" validate:"omitempty,gte=0"`
	TeacherComments *string  `json:"teacher_comments" validate:"omitempty,min=1"`
}

// EvaluationUpdateRequest is a narrow partial patch of score or remarks that
// leaves the manual-review fields untouched.
type EvaluationUpdateRequest struct {
	Score   *float64 `json:"score" validate:"omitempty,gte=0"`
	Remarks *string  `json:"remarks" validate:"omitempty,min=1"`
}

// EvaluationResponse is returned to API clients when viewing an evaluation.
type EvaluationResponse struct {
	ID                 uint                    `json:"id"`
	SubmissionID       uint                    `json:"submission_id"`
	AIScore            float64                 `json:"ai_score"`
	TeacherScore       *float64                `json:"teacher_score"`
	Score              float64                 `json:"score"`
	PercentageScore    float64                 `json:"percentage_score"`
	Passed             bool                    `json:"passed"`
	Remarks            string                  `json:"remarks"`
	TeacherComments    string                  `json:"teacher_comments"`
	ReviewedBy         *uint                   `json:"reviewed_by"`
	ReviewedAt         *time.Time              `json:"reviewed_at"`
	IsManuallyReviewed bool                    `json:"is_manually_reviewed"`
	Version            int                     `json:"version"`
	DetailedFeedback   models.DetailedFeedback `json:"detailed_feedback"`
	EvaluatedAt        time.Time               `json:"evaluated_at"`
}

// NewEvaluationResponse converts an EvaluationResult model into a DTO.
func NewEvaluationResponse(model models.EvaluationResult) EvaluationResponse {
	return EvaluationResponse{
		ID:                 model.ID,
		SubmissionID:       model.SubmissionID,
		AIScore:            model.AIScore,
		TeacherScore:       model.TeacherScore,
		Score:              model.Score,
		PercentageScore:    model.PercentageScore,
		Passed:             model.Passed,
		Remarks:            model.Remarks,
		TeacherComments:    model.TeacherComments,
		ReviewedBy:         model.ReviewedBy,
		ReviewedAt:         model.ReviewedAt,
		IsManuallyReviewed: model.IsManuallyReviewed,
		Version:            model.Version,
		DetailedFeedback:   model.DetailedFeedback.Data(),
		EvaluatedAt:        model.CreatedAt,
	}
}
