package ai

import "context"

// Marking modes accepted by the evaluator prompt.
const (
	ModeStrict = "strict"
	ModeLoose  = "loose"
)

// CriterionWeight mirrors one rubric criterion's configuration.
type CriterionWeight struct {
	Weight  float64
	Enabled bool
}

// RubricWeights carries the assignment's five-criterion rubric into the prompt.
type RubricWeights struct {
	TopicRelevance CriterionWeight
	Structure      CriterionWeight
	ContentQuality CriterionWeight
	Grammar        CriterionWeight
	Length         CriterionWeight
}

// EvaluationInput contains the artefacts needed to score a submission.
type EvaluationInput struct {
	Instructions   string
	StudentContent string
	MinWords       int
	MarkingMode    string
	TotalMarks     float64
	PassPercentage float64
	Rubric         RubricWeights
}

// DetailedFeedback is the structured per-criterion assessment.
type DetailedFeedback struct {
	TopicRelevance string `json:"topic_relevance"`
	Structure      string `json:"structure"`
	ContentQuality string `json:"content_quality"`
	WordCount      int    `json:"word_count"`
	Recommendation string `json:"recommendation"`
}

// EvaluationResult is the normalized evaluator output. Score is already
// rescaled to the assignment's total marks, rounded to one decimal place.
type EvaluationResult struct {
	Score    float64                `json:"score"`
	Remarks  string                 `json:"remarks"`
	Feedback DetailedFeedback       `json:"feedback"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of scoring assignment submissions.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}
