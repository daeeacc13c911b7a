package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/models"
	"github.com/noah-isme/grader-go-api/internal/repository"
	"github.com/noah-isme/grader-go-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type assignmentRepoStub struct {
	mu          sync.Mutex
	assignments map[uint]models.Assignment
	processing  []bool
	nextID      uint
}

func newAssignmentRepoStub(assignments ...models.Assignment) *assignmentRepoStub {
	stub := &assignmentRepoStub{assignments: map[uint]models.Assignment{}, nextID: 1}
	for _, assignment := range assignments {
		if assignment.ID == 0 {
			assignment.ID = stub.nextID
		}
		if assignment.ID >= stub.nextID {
			stub.nextID = assignment.ID + 1
		}
		stub.assignments[assignment.ID] = assignment
	}
	return stub
}

func (s *assignmentRepoStub) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Assignment
	for _, assignment := range s.assignments {
		if assignment.TeacherID == teacherID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (s *assignmentRepoStub) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (s *assignmentRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment.ID = s.nextID
	s.nextID++
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *assignmentRepoStub) Update(ctx context.Context, assignment *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.assignments[assignment.ID] = *assignment
	return nil
}

func (s *assignmentRepoStub) SetProcessing(ctx context.Context, id uint, processing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.IsProcessing = processing
	s.assignments[id] = assignment
	s.processing = append(s.processing, processing)
	return nil
}

func (s *assignmentRepoStub) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.assignments, id)
	return nil
}

func (s *assignmentRepoStub) processingHistory() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]bool, len(s.processing))
	copy(history, s.processing)
	return history
}

type submissionRepoStub struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	order       []uint
	nextID      uint
}

func newSubmissionRepoStub(submissions ...models.Submission) *submissionRepoStub {
	stub := &submissionRepoStub{submissions: map[uint]models.Submission{}, nextID: 1}
	for _, submission := range submissions {
		if submission.ID == 0 {
			submission.ID = stub.nextID
		}
		if submission.ID >= stub.nextID {
			stub.nextID = submission.ID + 1
		}
		stub.submissions[submission.ID] = submission
		stub.order = append(stub.order, submission.ID)
	}
	return stub
}

func (s *submissionRepoStub) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Submission
	for _, id := range s.order {
		submission := s.submissions[id]
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.Status != nil && submission.SubmissionStatus != *filter.Status {
			continue
		}
		if filter.Evaluated != nil && submission.IsEvaluated != *filter.Evaluated {
			continue
		}
		result = append(result, submission)
	}
	return result, nil
}

func (s *submissionRepoStub) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *submissionRepoStub) Create(ctx context.Context, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission.ID = s.nextID
	s.nextID++
	submission.CreatedAt = time.Now()
	s.submissions[submission.ID] = *submission
	s.order = append(s.order, submission.ID)
	return nil
}

func (s *submissionRepoStub) Update(ctx context.Context, submission *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.submissions[submission.ID] = *submission
	return nil
}

type evaluationRepoStub struct {
	mu          sync.Mutex
	evaluations map[uint]models.EvaluationResult
	nextID      uint
}

func newEvaluationRepoStub() *evaluationRepoStub {
	return &evaluationRepoStub{evaluations: map[uint]models.EvaluationResult{}, nextID: 1}
}

func (s *evaluationRepoStub) GetByID(ctx context.Context, id uint) (models.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evaluation, ok := s.evaluations[id]
	if !ok {
		return models.EvaluationResult{}, gorm.ErrRecordNotFound
	}
	return evaluation, nil
}

func (s *evaluationRepoStub) GetBySubmissionID(ctx context.Context, submissionID uint) (models.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evaluation := range s.evaluations {
		if evaluation.SubmissionID == submissionID {
			return evaluation, nil
		}
	}
	return models.EvaluationResult{}, gorm.ErrRecordNotFound
}

func (s *evaluationRepoStub) ListBySubmissionIDs(ctx context.Context, submissionIDs []uint) (map[uint]models.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := map[uint]models.EvaluationResult{}
	for _, evaluation := range s.evaluations {
		for _, id := range submissionIDs {
			if evaluation.SubmissionID == id {
				result[id] = evaluation
			}
		}
	}
	return result, nil
}

func (s *evaluationRepoStub) Create(ctx context.Context, evaluation *models.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evaluation.ID = s.nextID
	s.nextID++
	evaluation.CreatedAt = time.Now()
	s.evaluations[evaluation.ID] = *evaluation
	return nil
}

func (s *evaluationRepoStub) Update(ctx context.Context, evaluation *models.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evaluations[evaluation.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.evaluations[evaluation.ID] = *evaluation
	return nil
}

func (s *evaluationRepoStub) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evaluations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.evaluations, id)
	return nil
}

func (s *evaluationRepoStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evaluations)
}

// evaluatorStub returns a fixed score, or an error for contents listed in
// failFor.
type evaluatorStub struct {
	mu      sync.Mutex
	score   float64
	remarks string
	failFor map[string]bool
	inputs  []ai.EvaluationInput
}

func (e *evaluatorStub) Evaluate(ctx context.Context, input ai.EvaluationInput) (ai.EvaluationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, input)
	if e.failFor[input.StudentContent] {
		return ai.EvaluationResult{}, errors.New("model unavailable")
	}
	remarks := e.remarks
	if remarks == "" {
		remarks = "Evaluation completed"
	}
	return ai.EvaluationResult{
		Score:   e.score,
		Remarks: remarks,
		Feedback: ai.DetailedFeedback{
			TopicRelevance: "Good",
			Structure:      "Good",
			ContentQuality: "Good",
			WordCount:      520,
			Recommendation: "Keep it up",
		},
	}, nil
}

func (e *evaluatorStub) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inputs)
}

func activeAssignment(id, teacherID uint) models.Assignment {
	return models.Assignment{
		ID:             id,
		Title:          "Essay on Rivers",
		Instructions:   "Write about the rivers of your region.",
		MinWords:       500,
		MarkingMode:    models.MarkingModeStrict,
		TotalMarks:     100,
		PassPercentage: 0.6,
		TeacherID:      teacherID,
		Status:         models.AssignmentStatusActive,
	}
}
