package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
)

type teacherFixture struct {
	exams       *fakeExamRepo
	questions   *fakeQuestionRepo
	answers     *fakeAnswerRepo
	submissions *fakeSubmissionRepo
	activity    *fakeActivityRecorder
	service     TeacherExamService
}

func newTeacherFixture(t *testing.T) *teacherFixture {
	t.Helper()

	f := &teacherFixture{
		exams:       newFakeExamRepo(),
		questions:   &fakeQuestionRepo{questions: map[uint]models.Question{}},
		answers:     &fakeAnswerRepo{answers: map[uint]models.Answer{}},
		submissions: newFakeSubmissionRepo(),
		activity:    &fakeActivityRecorder{},
	}
	f.service = NewTeacherExamService(f.exams, f.questions, f.answers, f.submissions, validator.New(), f.activity, testLogger())
	f.service.(*teacherExamService).now = func() time.Time { return testNow }
	return f
}

func TestCreateExamValidatesWindow(t *testing.T) {
	f := newTeacherFixture(t)

	resp, err := f.service.CreateExam(context.Background(), 42, dto.ExamCreateRequest{
		Title:     "Midterm",
		StartTime: testNow.Add(time.Hour).Format(time.RFC3339),
		EndTime:   testNow.Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, models.ExamStatusUpcoming, resp.Status)
	require.Equal(t, uint(42), resp.TeacherID)

	_, err = f.service.CreateExam(context.Background(), 42, dto.ExamCreateRequest{
		Title:     "Backwards",
		StartTime: testNow.Add(2 * time.Hour).Format(time.RFC3339),
		EndTime:   testNow.Add(time.Hour).Format(time.RFC3339),
	})
	require.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestUpdateExamLockedOnceStarted(t *testing.T) {
	f := newTeacherFixture(t)
	f.exams.exams[1] = activeExam(1, 42)
	f.exams.exams[2] = upcomingExam(2, 42)

	title := "Renamed"
	_, err := f.service.UpdateExam(context.Background(), 42, 1, dto.ExamUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrExamLocked)

	resp, err := f.service.UpdateExam(context.Background(), 42, 2, dto.ExamUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", resp.Title)

	_, err = f.service.UpdateExam(context.Background(), 13, 2, dto.ExamUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrNotExamOwner)
}

func TestDeleteExamOnlyBeforeStart(t *testing.T) {
	f := newTeacherFixture(t)
	f.exams.exams[1] = endedExam(1, 42)
	f.exams.exams[2] = upcomingExam(2, 42)

	require.ErrorIs(t, f.service.DeleteExam(context.Background(), 42, 1), ErrExamLocked)
	require.NoError(t, f.service.DeleteExam(context.Background(), 42, 2))
	require.NotContains(t, f.exams.exams, uint(2))
}

func TestAddQuestionRequiresReferenceAnswer(t *testing.T) {
	f := newTeacherFixture(t)
	f.exams.exams[2] = upcomingExam(2, 42)

	_, err := f.service.AddQuestion(context.Background(), 42, 2, dto.QuestionCreateRequest{
		Text: "Is water wet?", Type: models.QuestionTypeTrueFalse, Points: 5,
	})
	require.ErrorIs(t, err, ErrMissingCorrectAnswer)

	_, err = f.service.AddQuestion(context.Background(), 42, 2, dto.QuestionCreateRequest{
		Text: "Is water wet?", Type: models.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: strPtr("Maybe"),
	})
	require.ErrorIs(t, err, ErrMissingCorrectAnswer)

	resp, err := f.service.AddQuestion(context.Background(), 42, 2, dto.QuestionCreateRequest{
		Text: "Is water wet?", Type: models.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: strPtr("TRUE"),
	})
	require.NoError(t, err)
	require.Equal(t, "true", *resp.CorrectAnswer, "reference answers are stored lowercased")

	resp, err = f.service.AddQuestion(context.Background(), 42, 2, dto.QuestionCreateRequest{
		Text: "Explain entropy", Type: models.QuestionTypeShortAnswer, Points: 10, CorrectAnswer: strPtr("ignored"),
	})
	require.NoError(t, err)
	require.Nil(t, resp.CorrectAnswer, "manual questions carry no reference answer")
}

func TestQuestionMutationsLockedOnceStarted(t *testing.T) {
	f := newTeacherFixture(t)
	f.questions.questions[10] = models.Question{
		ID: 10, ExamID: 1, Exam: activeExam(1, 42), Type: models.QuestionTypeShortAnswer, Points: 5,
	}

	points := 7.0
	_, err := f.service.UpdateQuestion(context.Background(), 42, 10, dto.QuestionUpdateRequest{Points: &points})
	require.ErrorIs(t, err, ErrExamLocked)
	require.ErrorIs(t, f.service.DeleteQuestion(context.Background(), 42, 10), ErrExamLocked)
	require.ErrorIs(t, f.service.DeleteQuestion(context.Background(), 13, 10), ErrNotExamOwner)
}

func TestExamSummaryAggregatesLedger(t *testing.T) {
	f := newTeacherFixture(t)
	exam := endedExam(3, 42)
	exam.Questions = []models.Question{
		{ID: 30, ExamID: 3, Points: 5},
		{ID: 31, ExamID: 3, Points: 10},
	}
	f.exams.exams[3] = exam
	f.submissions.existing[submissionKey{3, 7}] = models.ExamSubmission{
		ExamID: 3, StudentID: 7, TotalScore: 9,
		Student: models.User{ID: 7, Name: "Riley"},
	}
	f.answers.listed = []models.Answer{
		{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5)},
		{ID: 2, QuestionID: 31, StudentID: 7},
	}

	summary, err := f.service.ExamSummary(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalQuestions)
	require.Len(t, summary.Rows, 1)
	require.Equal(t, "Riley", summary.Rows[0].StudentName)
	require.Equal(t, 9.0, summary.Rows[0].TotalScore)
	require.Equal(t, 15.0, summary.Rows[0].MaxScore)
	require.Equal(t, 2, summary.Rows[0].AnsweredCount)
	require.Equal(t, 1, summary.Rows[0].PendingCount)

	_, err = f.service.ExamSummary(context.Background(), 13, 3)
	require.ErrorIs(t, err, ErrNotExamOwner)
}

// The owner's detail view always reveals reference answers, even while the
// exam is active and the student view redacts them.
func TestGetExamRevealsAnswersAndAggregatesStats(t *testing.T) {
	f := newTeacherFixture(t)
	exam := activeExam(3, 42)
	exam.Questions = []models.Question{
		{ID: 30, ExamID: 3, Type: models.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: strPtr("true")},
		{ID: 31, ExamID: 3, Type: models.QuestionTypeShortAnswer, Points: 10},
	}
	f.exams.exams[3] = exam
	f.submissions.existing[submissionKey{3, 7}] = models.ExamSubmission{ExamID: 3, StudentID: 7, TotalScore: 9}
	f.submissions.existing[submissionKey{3, 8}] = models.ExamSubmission{ExamID: 3, StudentID: 8, TotalScore: 3}
	f.answers.listed = []models.Answer{
		{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5)},
		{ID: 2, QuestionID: 31, StudentID: 7},
	}

	detail, err := f.service.GetExam(context.Background(), 42, 3)
	require.NoError(t, err)
	require.Equal(t, models.ExamStatusActive, detail.Status)
	require.Len(t, detail.Questions, 2)
	require.Equal(t, "true", *detail.Questions[0].CorrectAnswer)
	require.Equal(t, 2, detail.Statistics.TotalQuestions)
	require.Equal(t, 2, detail.Statistics.TotalSubmissions)
	require.Equal(t, 1, detail.Statistics.PendingGrading)
	require.NotNil(t, detail.Statistics.AverageScore)
	require.Equal(t, 6.0, *detail.Statistics.AverageScore)

	_, err = f.service.GetExam(context.Background(), 13, 3)
	require.ErrorIs(t, err, ErrNotExamOwner)

	_, err = f.service.GetExam(context.Background(), 42, 999)
	require.ErrorIs(t, err, ErrExamNotFound)
}

func TestDashboardStatsRollsUpPortfolio(t *testing.T) {
	f := newTeacherFixture(t)
	f.exams.exams[1] = upcomingExam(1, 42)
	f.exams.exams[2] = activeExam(2, 42)
	f.exams.exams[3] = endedExam(3, 42)
	f.questions.questions[30] = models.Question{ID: 30, ExamID: 3, Points: 5}
	f.questions.questions[31] = models.Question{ID: 31, ExamID: 3, Points: 10}
	f.submissions.existing[submissionKey{2, 7}] = models.ExamSubmission{ExamID: 2, StudentID: 7}
	f.submissions.existing[submissionKey{3, 7}] = models.ExamSubmission{ExamID: 3, StudentID: 7}
	f.submissions.existing[submissionKey{3, 8}] = models.ExamSubmission{ExamID: 3, StudentID: 8}
	f.answers.listed = []models.Answer{
		{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5)},
		{ID: 2, QuestionID: 31, StudentID: 7},
		{ID: 3, QuestionID: 30, StudentID: 8},
	}

	stats, err := f.service.DashboardStats(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalExams)
	require.Equal(t, 1, stats.UpcomingExams)
	require.Equal(t, 1, stats.ActiveExams)
	require.Equal(t, 1, stats.EndedExams)
	require.Equal(t, 2, stats.TotalQuestions)
	require.Equal(t, 3, stats.TotalSubmissions)
	require.Equal(t, 2, stats.TotalStudents, "students are counted once across exams")
	require.Equal(t, 1, stats.GradedAnswers)
	require.Equal(t, 2, stats.PendingGrading)
}

func TestSubmissionDetailUsesLedgerTotal(t *testing.T) {
	f := newTeacherFixture(t)
	f.exams.exams[3] = endedExam(3, 42)
	f.submissions.existing[submissionKey{3, 7}] = models.ExamSubmission{
		ExamID: 3, StudentID: 7, TotalScore: 12,
		Student: models.User{ID: 7, Name: "Riley"},
	}
	f.answers.listed = []models.Answer{
		{ID: 1, QuestionID: 30, StudentID: 7, Score: floatPtr(5), Question: models.Question{ID: 30, ExamID: 3, Points: 5}},
	}

	detail, err := f.service.SubmissionDetail(context.Background(), 42, 3, 7)
	require.NoError(t, err)
	require.Equal(t, 12.0, detail.TotalScore)
	require.Equal(t, "Riley", detail.StudentName)
	require.Len(t, detail.Answers, 1)
}
