package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/grader-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Teacher{}, &models.Assignment{}, &models.Submission{}, &models.EvaluationResult{}))
	return db
}

func seedAssignment(t *testing.T, db *gorm.DB, teacherID uint) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		Title:          "Essay on Rivers",
		Instructions:   "Write about rivers.",
		MinWords:       500,
		MarkingMode:    models.MarkingModeStrict,
		TotalMarks:     100,
		PassPercentage: 0.6,
		TeacherID:      teacherID,
		Status:         models.AssignmentStatusActive,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func TestAssignmentRepositorySetProcessingTouchesOnlyFlag(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	assignment := seedAssignment(t, db, 7)

	require.NoError(t, repo.SetProcessing(context.Background(), assignment.ID, true))

	stored, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.True(t, stored.IsProcessing)
	require.Equal(t, "Essay on Rivers", stored.Title)

	require.NoError(t, repo.SetProcessing(context.Background(), assignment.ID, false))

	stored, err = repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.False(t, stored.IsProcessing)
}

func TestAssignmentRepositoryListByTeacher(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	seedAssignment(t, db, 7)
	seedAssignment(t, db, 7)
	seedAssignment(t, db, 8)

	mine, err := repo.ListByTeacher(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	theirs, err := repo.ListByTeacher(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
}

func TestAssignmentRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	assignment := seedAssignment(t, db, 7)

	submission := models.Submission{AssignmentID: assignment.ID, StudentName: "Amy", StudentRollNumber: "101", SubmissionStatus: models.SubmissionStatusEvaluated}
	require.NoError(t, db.Create(&submission).Error)
	evaluation := models.EvaluationResult{SubmissionID: submission.ID, Score: 70, Version: 1}
	require.NoError(t, db.Create(&evaluation).Error)

	require.NoError(t, repo.Delete(context.Background(), assignment.ID))

	var submissionCount, evaluationCount int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissionCount).Error)
	require.NoError(t, db.Model(&models.EvaluationResult{}).Count(&evaluationCount).Error)
	require.Zero(t, submissionCount)
	require.Zero(t, evaluationCount)

	err := repo.Delete(context.Background(), assignment.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	assignment := seedAssignment(t, db, 7)
	other := seedAssignment(t, db, 7)

	first := models.Submission{AssignmentID: assignment.ID, StudentName: "Amy", StudentRollNumber: "101", SubmissionStatus: models.SubmissionStatusEvaluated, IsEvaluated: true}
	second := models.Submission{AssignmentID: assignment.ID, StudentName: "Ben", StudentRollNumber: "102", SubmissionStatus: models.SubmissionStatusPending}
	elsewhere := models.Submission{AssignmentID: other.ID, StudentName: "Cara", StudentRollNumber: "103", SubmissionStatus: models.SubmissionStatusPending}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&elsewhere).Error)

	all, err := repo.List(context.Background(), SubmissionFilter{AssignmentID: &assignment.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)

	evaluated := true
	done, err := repo.List(context.Background(), SubmissionFilter{AssignmentID: &assignment.ID, Evaluated: &evaluated})
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.Equal(t, "Amy", done[0].StudentName)

	pending := models.SubmissionStatusPending
	waiting, err := repo.List(context.Background(), SubmissionFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, waiting, 2)
}

func TestEvaluationRepositoryListBySubmissionIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	assignment := seedAssignment(t, db, 7)

	first := models.Submission{AssignmentID: assignment.ID, StudentName: "Amy", StudentRollNumber: "101"}
	second := models.Submission{AssignmentID: assignment.ID, StudentName: "Ben", StudentRollNumber: "102"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	evaluation := models.EvaluationResult{SubmissionID: first.ID, Score: 70, Version: 1}
	require.NoError(t, repo.Create(context.Background(), &evaluation))

	bySubmission, err := repo.ListBySubmissionIDs(context.Background(), []uint{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, bySubmission, 1)
	require.Contains(t, bySubmission, first.ID)

	empty, err := repo.ListBySubmissionIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEvaluationRepositoryDeleteMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)

	err := repo.Delete(context.Background(), 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEvaluationRepositoryFeedbackRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	assignment := seedAssignment(t, db, 7)

	submission := models.Submission{AssignmentID: assignment.ID, StudentName: "Amy", StudentRollNumber: "101"}
	require.NoError(t, db.Create(&submission).Error)

	evaluation := models.EvaluationResult{SubmissionID: submission.ID, Score: 70, Version: 1}
	require.NoError(t, repo.Create(context.Background(), &evaluation))

	stored, err := repo.GetBySubmissionID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 70.0, stored.Score)
	require.Equal(t, 1, stored.Version)
}
