package dto

import (
	"time"

	"github.com/noah-isme/grader-go-api/internal/models"
)

// CriterionConfigPayload configures one rubric criterion.
type CriterionConfigPayload struct {
	Weight  float64 `json:"weight" validate:"gte=0,lte=100"`
	Enabled bool    `json:"enabled"`
}

// GradingCriteriaPayload configures the full rubric.
type GradingCriteriaPayload struct {
	TopicRelevance CriterionConfigPayload `json:"topic_relevance"`
	Structure      CriterionConfigPayload `json:"structure"`
	ContentQuality CriterionConfigPayload `json:"content_quality"`
	Grammar        CriterionConfigPayload `json:"grammar"`
	Length         CriterionConfigPayload `json:"length"`
}

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	Title           string                  `json:"title" validate:"required,min=3,max=255"`
	Instructions    string                  `json:"instructions" validate:"required,min=10"`
	MinWords        int                     `json:"min_words" validate:"omitempty,gt=0"`
	MarkingMode     string                  `json:"marking_mode" validate:"omitempty,oneof=strict loose"`
	TotalMarks      float64                 `json:"total_marks" validate:"omitempty,gt=0"`
	PassPercentage  float64                 `json:"pass_percentage" validate:"omitempty,gt=0,lte=1"`
	Deadline        *time.Time              `json:"deadline"`
	GradingCriteria *GradingCriteriaPayload `json:"grading_criteria"`
}

// AssignmentStatusRequest moves an assignment through its lifecycle.
type AssignmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active closed archived"`
}

// AssignmentResponse is returned to API clients when viewing an assignment.
type AssignmentResponse struct {
	ID              uint                   `json:"id"`
	Title           string                 `json:"title"`
	Instructions    string                 `json:"instructions"`
	MinWords        int                    `json:"min_words"`
	MarkingMode     string                 `json:"marking_mode"`
	TotalMarks      float64                `json:"total_marks"`
	PassPercentage  float64                `json:"pass_percentage"`
	TeacherID       uint                   `json:"teacher_id"`
	Status          string                 `json:"status"`
	Deadline        *time.Time             `json:"deadline"`
	PublishedAt     *time.Time             `json:"published_at"`
	ClosedAt        *time.Time             `json:"closed_at"`
	IsProcessing    bool                   `json:"is_processing"`
	GradingCriteria models.GradingCriteria `json:"grading_criteria"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// AssignmentOverviewResponse is the read-side composition of an assignment
// with its submissions and their evaluations.
type AssignmentOverviewResponse struct {
	AssignmentResponse
	Submissions []SubmissionResponse `json:"submissions"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Instructions:    model.Instructions,
		MinWords:        model.MinWords,
		MarkingMode:     string(model.MarkingMode),
		TotalMarks:      model.TotalMarks,
		PassPercentage:  model.PassPercentage,
		TeacherID:       model.TeacherID,
		Status:          model.Status,
		Deadline:        model.Deadline,
		PublishedAt:     model.PublishedAt,
		ClosedAt:        model.ClosedAt,
		IsProcessing:    model.IsProcessing,
		GradingCriteria: model.GradingCriteria.Data(),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
