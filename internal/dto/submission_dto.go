package dto

import (
	"time"

	"github.com/noah-isme/grader-go-api/internal/models"
)

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                uint                `json:"id"`
	AssignmentID      uint                `json:"assignment_id"`
	StudentName       string              `json:"student_name"`
	StudentRollNumber string              `json:"student_roll_number"`
	FileName          string              `json:"file_name"`
	FileURL           string              `json:"file_url,omitempty"`
	SubmissionStatus  string              `json:"submission_status"`
	IsEvaluated       bool                `json:"is_evaluated"`
	UploadedAt        time.Time           `json:"uploaded_at"`
	Evaluation        *EvaluationResponse `json:"evaluation,omitempty"`
}

// SubmissionDetailResponse includes the extracted content alongside the
// composed assignment and evaluation references.
type SubmissionDetailResponse struct {
	SubmissionResponse
	FileContent string              `json:"file_content"`
	Assignment  *AssignmentResponse `json:"assignment,omitempty"`
}

// UploadSubmissionsResponse is the ingestion result returned before batch
// scoring has finished.
type UploadSubmissionsResponse struct {
	UploadedCount     int                  `json:"uploaded_count"`
	ProcessingStarted bool                 `json:"processing_started"`
	BatchID           string               `json:"batch_id"`
	Submissions       []SubmissionResponse `json:"submissions"`
}

// SubmissionListFilter narrows assignment submission listings.
type SubmissionListFilter struct {
	Evaluated *bool
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:                model.ID,
		AssignmentID:      model.AssignmentID,
		StudentName:       model.StudentName,
		StudentRollNumber: model.StudentRollNumber,
		FileName:          model.FileName,
		FileURL:           model.FileURL,
		SubmissionStatus:  model.SubmissionStatus,
		IsEvaluated:       model.IsEvaluated,
		UploadedAt:        model.CreatedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs, attaching
// the matching evaluation when one exists.
func NewSubmissionResponseSlice(submissions []models.Submission, evaluations map[uint]models.EvaluationResult) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response := NewSubmissionResponse(submission)
		if evaluation, ok := evaluations[submission.ID]; ok {
			e := NewEvaluationResponse(evaluation)
			response.Evaluation = &e
		}
		responses = append(responses, response)
	}

	return responses
}
