package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-go-api/internal/config"
	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/handler"
	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/router"
	"github.com/noah-isme/grader-go-api/internal/service"
)

type stubSubmissionService struct {
	upload dto.UploadSubmissionsResponse
	listed []dto.SubmissionResponse
	err    error
}

func (s stubSubmissionService) UploadAndProcess(context.Context, uint, uint, []*multipart.FileHeader) (dto.UploadSubmissionsResponse, error) {
	return s.upload, s.err
}

func (s stubSubmissionService) ListByAssignment(context.Context, uint, dto.SubmissionListFilter) ([]dto.SubmissionResponse, error) {
	return s.listed, s.err
}

func (s stubSubmissionService) GetByID(context.Context, uint) (dto.SubmissionDetailResponse, error) {
	return dto.SubmissionDetailResponse{}, s.err
}

func (s stubSubmissionService) ReEvaluate(context.Context, uint) (dto.EvaluationResponse, error) {
	return dto.EvaluationResponse{}, s.err
}

type stubEvaluationService struct {
	response dto.EvaluationResponse
	err      error
}

func (s stubEvaluationService) Create(context.Context, models.Assignment, models.Submission, int) (models.EvaluationResult, error) {
	return models.EvaluationResult{}, s.err
}

func (s stubEvaluationService) ReEvaluate(context.Context, models.Assignment, models.Submission) (models.EvaluationResult, error) {
	return models.EvaluationResult{}, s.err
}

func (s stubEvaluationService) GetBySubmission(context.Context, uint) (dto.EvaluationResponse, error) {
	return s.response, s.err
}

func (s stubEvaluationService) ManualOverride(context.Context, uint, uint, dto.ManualOverrideRequest) (dto.EvaluationResponse, error) {
	return s.response, s.err
}

func (s stubEvaluationService) DirectUpdate(context.Context, uint, dto.EvaluationUpdateRequest) (dto.EvaluationResponse, error) {
	return s.response, s.err
}

func setupApp(t *testing.T, submissions service.SubmissionService, evaluations service.EvaluationService) *fiber.App {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	app := fiber.New()

	deps := router.Dependencies{
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("teacher_id", uint(7))
			return c.Next()
		},
	}
	if submissions != nil {
		deps.SubmissionHandler = handler.NewSubmissionHandler(submissions, validate, logger)
	}
	if evaluations != nil {
		deps.EvaluationHandler = handler.NewEvaluationHandler(evaluations, validate, logger)
	}

	router.Register(app, config.Config{AppName: "Test"}, deps)

	return app
}

const evaluationEnvelopeSchema = `{
  "type": "object",
  "required": ["success", "message", "data"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["id", "submission_id", "ai_score", "score", "percentage_score", "passed", "version", "evaluated_at"],
      "properties": {
        "id": {"type": "integer"},
        "submission_id": {"type": "integer"},
        "ai_score": {"type": "number"},
        "teacher_score": {"type": ["number", "null"]},
        "score": {"type": "number"},
        "percentage_score": {"type": "number", "minimum": 0, "maximum": 100},
        "passed": {"type": "boolean"},
        "remarks": {"type": "string"},
        "is_manually_reviewed": {"type": "boolean"},
        "version": {"type": "integer", "minimum": 1},
        "detailed_feedback": {"type": "object"}
      }
    }
  }
}`

func TestEvaluationResponseMatchesContract(t *testing.T) {
	schema, err := jsonschema.CompileString("evaluation.schema.json", evaluationEnvelopeSchema)
	require.NoError(t, err)

	now := time.Now().UTC()
	score := 85.0
	app := setupApp(t, nil, stubEvaluationService{response: dto.EvaluationResponse{
		ID:                 1,
		SubmissionID:       2,
		AIScore:            72,
		TeacherScore:       &score,
		Score:              85,
		PercentageScore:    85,
		Passed:             true,
		Remarks:            "Solid work",
		IsManuallyReviewed: true,
		Version:            2,
		EvaluatedAt:        now,
	}})

	request := httptest.NewRequest(fiber.MethodGet, "/api/v1/evaluations/submission/2", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NoError(t, schema.Validate(decoded))
}

func TestEvaluationHandlerNotFound(t *testing.T) {
	app := setupApp(t, nil, stubEvaluationService{err: service.ErrEvaluationNotFound})

	request := httptest.NewRequest(fiber.MethodGet, "/api/v1/evaluations/submission/99", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)
}

func TestSubmissionHandlerListByAssignment(t *testing.T) {
	app := setupApp(t, stubSubmissionService{listed: []dto.SubmissionResponse{
		{ID: 1, AssignmentID: 3, StudentName: "Amy", SubmissionStatus: "evaluated", IsEvaluated: true},
	}}, nil)

	request := httptest.NewRequest(fiber.MethodGet, "/api/v1/submissions/assignment/3?evaluated=true", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"student_name":"Amy"`)
}

func TestSubmissionHandlerUploadRejectsMissingForm(t *testing.T) {
	app := setupApp(t, stubSubmissionService{}, nil)

	request := httptest.NewRequest(fiber.MethodPost, "/api/v1/submissions/upload/1", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)
}

func TestSubmissionHandlerInvalidID(t *testing.T) {
	app := setupApp(t, stubSubmissionService{}, nil)

	request := httptest.NewRequest(fiber.MethodGet, "/api/v1/submissions/abc", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, response.StatusCode)
}

func TestSubmissionHandlerUnreadableConflict(t *testing.T) {
	app := setupApp(t, stubSubmissionService{err: service.ErrSubmissionUnreadable}, nil)

	request := httptest.NewRequest(fiber.MethodPost, "/api/v1/submissions/5/re-evaluate", nil)
	response, err := app.Test(request)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, response.StatusCode)
}
