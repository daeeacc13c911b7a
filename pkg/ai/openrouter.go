package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterConfig defines configuration options for the OpenRouter evaluator.
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenRouterEvaluator implements Evaluator against the OpenRouter chat completion API.
type OpenRouterEvaluator struct {
	client *openai.Client
	cfg    OpenRouterConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenRouterEvaluator builds a new evaluator using the provided configuration.
func NewOpenRouterEvaluator(cfg OpenRouterConfig) (*OpenRouterEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = "google/gemini-flash-1.5"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	tracer := otel.Tracer("github.com/noah-isme/grader-go-api/pkg/ai/openrouter")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	client := openai.NewClientWithConfig(config)

	return &OpenRouterEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openrouter_evaluator").Logger(),
	}, nil
}

// Evaluate sends the scoring request and normalizes the response.
func (e *OpenRouterEvaluator) Evaluate(parent context.Context, input EvaluationInput) (EvaluationResult, error) {
	ctx, span := e.tracer.Start(parent, "openrouter.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.String("marking_mode", input.MarkingMode),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildSystemPrompt(input.MarkingMode),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, fmt.Errorf("openrouter evaluate: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		err := fmt.Errorf("empty response from evaluator")
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := e.parseEvaluationResponse(content, input.TotalMarks)
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, err
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	span.SetAttributes(attribute.Float64("evaluation.score", result.Score))

	return result, nil
}

func buildSystemPrompt(markingMode string) string {
	base := `You are an expert assignment evaluator. Evaluate student submissions against the given instructions.

Evaluation Criteria:
1. Topic Relevance - How well does the submission address the assignment topic?
2. Structure - Does it have a clear introduction, body, and conclusion?
3. Content Quality - Is the content accurate, well-organized, and thoughtful?
4. Word Count - Does it meet the minimum word requirement?

Response Format:
Respond with ONLY a valid JSON object (no markdown, no code blocks) with this structure:
{
  "topic_relevance": "brief assessment",
  "structure": "brief assessment",
  "content_quality": "brief assessment",
  "word_count": numeric_value,
  "score": numeric_score_out_of_100,
  "remarks": "brief overall feedback",
  "recommendation": "PASS or FAIL"
}`

	if markingMode == ModeStrict {
		return base + `

STRICT MODE:
- Be demanding about topic alignment and quality
- Penalize off-topic or irrelevant content
- Require the minimum word count to be met
- Score: 80+ (Excellent), 60-79 (Good), 40-59 (Average), Below 40 (Poor)`
	}

	return base + `

LOOSE MODE:
- Reward effort and partial relevance
- Be flexible with structure if content is good
- Appreciate attempts at the topic
- Score: 70+ (Good), 50-69 (Acceptable), 30-49 (Needs Improvement), Below 30 (Poor)`
}

func buildUserPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Assignment Instructions:\n")
	builder.WriteString(input.Instructions)
	builder.WriteString(fmt.Sprintf("\n\nMinimum Word Count Required: %d", input.MinWords))
	builder.WriteString(fmt.Sprintf("\nTotal Marks: %g", input.TotalMarks))
	builder.WriteString(writeRubric(input.Rubric))
	builder.WriteString("\n\nStudent Submission:\n")
	builder.WriteString(input.StudentContent)
	builder.WriteString("\n\nEvaluate this submission and respond in the specified JSON format.")
	return builder.String()
}

func writeRubric(rubric RubricWeights) string {
	builder := strings.Builder{}
	builder.WriteString("\nRubric Weights:")
	appendCriterion(&builder, "Topic Relevance", rubric.TopicRelevance)
	appendCriterion(&builder, "Structure", rubric.Structure)
	appendCriterion(&builder, "Content Quality", rubric.ContentQuality)
	appendCriterion(&builder, "Grammar", rubric.Grammar)
	appendCriterion(&builder, "Length", rubric.Length)
	return builder.String()
}

func appendCriterion(builder *strings.Builder, name string, criterion CriterionWeight) {
	if !criterion.Enabled {
		builder.WriteString(fmt.Sprintf("\n- %s: disabled", name))
		return
	}
	builder.WriteString(fmt.Sprintf("\n- %s: %g%%", name, criterion.Weight))
}

// parseEvaluationResponse validates the evaluator's JSON and rescales the
// 0-100 score to the assignment's total marks, rounded to one decimal place.
// A missing or non-numeric score is a hard failure; an out-of-range numeric
// score is clamped with a warning.
func (e *OpenRouterEvaluator) parseEvaluationResponse(content string, totalMarks float64) (EvaluationResult, error) {
	type payload struct {
		TopicRelevance string   `json:"topic_relevance"`
		Structure      string   `json:"structure"`
		ContentQuality string   `json:"content_quality"`
		WordCount      int      `json:"word_count"`
		Score          *float64 `json:"score"`
		Remarks        string   `json:"remarks"`
		Recommendation string   `json:"recommendation"`
	}

	cleaned := stripCodeFences(content)

	var data payload
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return EvaluationResult{}, fmt.Errorf("parse evaluation json: %w", err)
	}

	if data.Score == nil {
		return EvaluationResult{}, fmt.Errorf("evaluation response missing score field")
	}

	score := *data.Score
	if score < 0 || score > 100 {
		e.logger.Warn().Float64("score", score).Msg("evaluator returned score out of range, clamping")
		score = math.Max(0, math.Min(100, score))
	}

	scaled := math.Round(score/100*totalMarks*10) / 10

	result := EvaluationResult{
		Score:   scaled,
		Remarks: data.Remarks,
		Feedback: DetailedFeedback{
			TopicRelevance: data.TopicRelevance,
			Structure:      data.Structure,
			ContentQuality: data.ContentQuality,
			WordCount:      data.WordCount,
			Recommendation: data.Recommendation,
		},
	}

	if result.Remarks == "" {
		result.Remarks = "Evaluation completed"
	}
	if result.Feedback.TopicRelevance == "" {
		result.Feedback.TopicRelevance = "Not provided"
	}
	if result.Feedback.Structure == "" {
		result.Feedback.Structure = "Not provided"
	}
	if result.Feedback.ContentQuality == "" {
		result.Feedback.ContentQuality = "Not provided"
	}
	if result.Feedback.Recommendation == "" {
		result.Feedback.Recommendation = "PENDING"
	}

	return result, nil
}

func stripCodeFences(content string) string {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
