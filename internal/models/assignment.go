package models

import (
	"time"

	"gorm.io/datatypes"
)

// MarkingMode controls how demanding the automated evaluator is.
type MarkingMode string

const (
	// MarkingModeStrict penalizes off-topic and short content.
	MarkingModeStrict MarkingMode = "strict"
	// MarkingModeLoose rewards effort and partial relevance.
	MarkingModeLoose MarkingMode = "loose"
)

// Assignment lifecycle statuses.
const (
	AssignmentStatusDraft    = "draft"
	AssignmentStatusActive   = "active"
	AssignmentStatusClosed   = "closed"
	AssignmentStatusArchived = "archived"
)

// CriterionConfig is the weight and enabled flag for a single rubric criterion.
type CriterionConfig struct {
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// GradingCriteria is the fixed five-criterion rubric of an assignment.
type GradingCriteria struct {
	TopicRelevance CriterionConfig `json:"topic_relevance"`
	Structure      CriterionConfig `json:"structure"`
	ContentQuality CriterionConfig `json:"content_quality"`
	Grammar        CriterionConfig `json:"grammar"`
	Length         CriterionConfig `json:"length"`
}

// DefaultGradingCriteria returns the rubric applied when a teacher does not supply one.
func DefaultGradingCriteria() GradingCriteria {
	return GradingCriteria{
		TopicRelevance: CriterionConfig{Weight: 30, Enabled: true},
		Structure:      CriterionConfig{Weight: 20, Enabled: true},
		ContentQuality: CriterionConfig{Weight: 30, Enabled: true},
		Grammar:        CriterionConfig{Weight: 10, Enabled: true},
		Length:         CriterionConfig{Weight: 10, Enabled: true},
	}
}

// Assignment defines the rubric and lifecycle for a batch of graded submissions.
type Assignment struct {
	ID              uint                                `gorm:"primaryKey" json:"id"`
	Title           string                              `gorm:"size:255;not null" json:"title"`
	Instructions    string                              `gorm:"type:text" json:"instructions"`
	MinWords        int                                 `gorm:"not null;default:500" json:"min_words"`
	MarkingMode     MarkingMode                         `gorm:"size:16;not null;default:strict" json:"marking_mode"`
	TotalMarks      float64                             `gorm:"not null;default:100" json:"total_marks"`
	PassPercentage  float64                             `gorm:"not null;default:0.6" json:"pass_percentage"`
	TeacherID       uint                                `gorm:"not null;index" json:"teacher_id"`
	Status          string                              `gorm:"size:16;not null;default:draft" json:"status"`
	Deadline        *time.Time                          `json:"deadline"`
	PublishedAt     *time.Time                          `json:"published_at"`
	ClosedAt        *time.Time                          `json:"closed_at"`
	IsProcessing    bool                                `gorm:"not null;default:false" json:"is_processing"`
	GradingCriteria datatypes.JSONType[GradingCriteria] `json:"grading_criteria"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
	Teacher         Teacher                             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions     []Submission                        `json:"-"`
}

// AcceptsSubmissions reports whether the assignment can receive new uploads.
func (a Assignment) AcceptsSubmissions() bool {
	return a.Status == AssignmentStatusActive
}

// PassMark returns the minimum percentage score required to pass.
func (a Assignment) PassMark() float64 {
	return a.PassPercentage * 100
}
