package models

import (
	"time"

	"gorm.io/datatypes"
)

// DetailedFeedback is the fixed per-criterion feedback shape produced by the evaluator.
type DetailedFeedback struct {
	TopicRelevance string `json:"topic_relevance"`
	Structure      string `json:"structure"`
	ContentQuality string `json:"content_quality"`
	WordCount      int    `json:"word_count"`
	Recommendation string `json:"recommendation"`
}

// EvaluationResult is the single live evaluation record of a submission.
// Re-evaluation replaces the record and bumps Version; a manual override
// mutates it in place.
type EvaluationResult struct {
	ID                 uint                                 `gorm:"primaryKey" json:"id"`
	SubmissionID       uint                                 `gorm:"not null;index" json:"submission_id"`
	AIScore            float64                              `gorm:"not null" json:"ai_score"`
	TeacherScore       *float64                             `json:"teacher_score"`
	Score              float64                              `gorm:"not null" json:"score"`
	PercentageScore    float64                              `gorm:"not null" json:"percentage_score"`
	Passed             bool                                 `gorm:"not null;default:false" json:"passed"`
	Remarks            string                               `gorm:"type:text" json:"remarks"`
	TeacherComments    string                               `gorm:"type:text" json:"teacher_comments"`
	ReviewedBy         *uint                                `json:"reviewed_by"`
	ReviewedAt         *time.Time                           `json:"reviewed_at"`
	IsManuallyReviewed bool                                 `gorm:"not null;default:false" json:"is_manually_reviewed"`
	Version            int                                  `gorm:"not null;default:1" json:"version"`
	DetailedFeedback   datatypes.JSONType[DetailedFeedback] `json:"detailed_feedback"`
	CreatedAt          time.Time                            `json:"evaluated_at"`
	UpdatedAt          time.Time                            `json:"updated_at"`
	Submission         Submission                           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
