package models

import "time"

// Submission statuses. All but pending are terminal until an explicit
// re-evaluation or re-extraction request.
const (
	// SubmissionStatusPending indicates the document is ingested but not yet scored.
	SubmissionStatusPending = "pending"
	// SubmissionStatusUnreadable indicates text extraction yielded no usable content.
	SubmissionStatusUnreadable = "unreadable"
	// SubmissionStatusEvaluated indicates automated scoring succeeded.
	SubmissionStatusEvaluated = "evaluated"
	// SubmissionStatusEvaluationError indicates automated scoring failed.
	SubmissionStatusEvaluationError = "evaluation_error"
)

// UnreadableContent is stored in place of extracted text when a document
// parses to nothing useful, so a teacher opening the submission sees why.
const UnreadableContent = "ERROR: Could not extract text from this document. " +
	"It appears to be image-only or corrupted. Please provide a text-based document."

// Submission is one uploaded document tied to an assignment.
type Submission struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	AssignmentID      uint       `gorm:"not null;index" json:"assignment_id"`
	StudentName       string     `gorm:"size:255;not null" json:"student_name"`
	StudentRollNumber string     `gorm:"size:64;not null" json:"student_roll_number"`
	FileContent       string     `gorm:"type:text" json:"-"`
	FileName          string     `gorm:"size:512" json:"file_name"`
	FileURL           string     `gorm:"size:512" json:"file_url"`
	SubmissionStatus  string     `gorm:"size:32;not null;default:pending" json:"submission_status"`
	IsEvaluated       bool       `gorm:"not null;default:false" json:"is_evaluated"`
	CreatedAt         time.Time  `json:"uploaded_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Assignment        Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsReadable reports whether the submission carries usable extracted text.
func (s Submission) IsReadable() bool {
	return s.SubmissionStatus != SubmissionStatusUnreadable
}
