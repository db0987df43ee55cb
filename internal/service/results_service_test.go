package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/examly/exam-go-api/internal/models"
)

type resultsFixture struct {
	exams       *fakeExamRepo
	answers     *fakeAnswerRepo
	submissions *fakeSubmissionRepo
	redis       *miniredis.Miniredis
	service     ResultsService
}

func newResultsFixture(t *testing.T) *resultsFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &resultsFixture{
		exams:       newFakeExamRepo(),
		answers:     &fakeAnswerRepo{answers: map[uint]models.Answer{}},
		submissions: newFakeSubmissionRepo(),
		redis:       mr,
	}
	f.service = NewResultsService(f.exams, f.answers, f.submissions, client, time.Minute, testLogger())
	f.service.(*resultsService).now = func() time.Time { return testNow }
	return f
}

func (f *resultsFixture) seedEndedExam() {
	exam := endedExam(3, 99)
	exam.Questions = []models.Question{
		{ID: 30, ExamID: 3, Type: models.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: strPtr("true")},
		{ID: 31, ExamID: 3, Type: models.QuestionTypeShortAnswer, Points: 10},
	}
	f.exams.exams[3] = exam
}

func TestGetExamResultComputesAndCaches(t *testing.T) {
	f := newResultsFixture(t)
	f.seedEndedExam()
	f.answers.listed = []models.Answer{
		{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5)},
		{ID: 2, QuestionID: 31, StudentID: 7},
	}

	result, err := f.service.GetExamResult(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalQuestions)
	require.Equal(t, 2, result.AnsweredQuestions)
	require.Equal(t, 15.0, result.TotalPoints)
	require.Equal(t, 5.0, result.ObtainedScore)
	require.Equal(t, 1, result.PendingGrading)
	require.False(t, result.Finalized)

	require.True(t, f.redis.Exists("results:exam:3:student:7"))

	// Served from cache: a changed backing store is not reflected.
	f.answers.listed = nil
	cached, err := f.service.GetExamResult(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Equal(t, 2, cached.AnsweredQuestions)
}

func TestGetExamResultPrefersLedgerTotal(t *testing.T) {
	f := newResultsFixture(t)
	f.seedEndedExam()
	f.answers.listed = []models.Answer{{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5)}}
	f.submissions.existing[submissionKey{3, 7}] = models.ExamSubmission{ExamID: 3, StudentID: 7, TotalScore: 13}

	result, err := f.service.GetExamResult(context.Background(), 7, 3)
	require.NoError(t, err)
	require.True(t, result.Finalized)
	require.Equal(t, 13.0, result.ObtainedScore, "ledger total wins over the raw sum")
}

func TestGetExamResultRejectsOpenExam(t *testing.T) {
	f := newResultsFixture(t)
	f.exams.exams[1] = activeExam(1, 99)

	_, err := f.service.GetExamResult(context.Background(), 7, 1)
	require.ErrorIs(t, err, ErrExamNotEnded)

	_, err = f.service.GetExamResult(context.Background(), 7, 404)
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestInvalidateResultDropsCacheEntry(t *testing.T) {
	f := newResultsFixture(t)
	f.seedEndedExam()

	_, err := f.service.GetExamResult(context.Background(), 7, 3)
	require.NoError(t, err)
	require.True(t, f.redis.Exists("results:exam:3:student:7"))

	f.service.InvalidateResult(context.Background(), 7, 3)
	require.False(t, f.redis.Exists("results:exam:3:student:7"))
}
