package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// activeExam returns an exam whose window contains testNow.
func activeExam(id, teacherID uint) models.Exam {
	return models.Exam{
		ID:        id,
		TeacherID: teacherID,
		Title:     "Midterm",
		StartTime: testNow.Add(-time.Hour),
		EndTime:   testNow.Add(time.Hour),
	}
}

func upcomingExam(id, teacherID uint) models.Exam {
	return models.Exam{
		ID:        id,
		TeacherID: teacherID,
		Title:     "Final",
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	}
}

func endedExam(id, teacherID uint) models.Exam {
	return models.Exam{
		ID:        id,
		TeacherID: teacherID,
		Title:     "Quiz",
		StartTime: testNow.Add(-2 * time.Hour),
		EndTime:   testNow.Add(-time.Hour),
	}
}

type fakeQuestionRepo struct {
	questions map[uint]models.Question
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, id uint) (models.Question, error) {
	question, ok := f.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (f *fakeQuestionRepo) ListByExam(_ context.Context, examID uint) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) Create(_ context.Context, question *models.Question) error {
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeQuestionRepo) Update(_ context.Context, question *models.Question) error {
	f.questions[question.ID] = *question
	return nil
}

func (f *fakeQuestionRepo) Delete(_ context.Context, id uint) error {
	delete(f.questions, id)
	return nil
}

type fakeAnswerRepo struct {
	answers  map[uint]models.Answer
	listed   []models.Answer
	upserted []models.Answer
	applied  [][]repository.ScoreUpdate
	applyErr error
}

func (f *fakeAnswerRepo) GetByID(_ context.Context, id uint) (models.Answer, error) {
	answer, ok := f.answers[id]
	if !ok {
		return models.Answer{}, gorm.ErrRecordNotFound
	}
	return answer, nil
}

func (f *fakeAnswerRepo) ListByStudentAndExam(_ context.Context, _, _ uint) ([]models.Answer, error) {
	return f.listed, nil
}

func (f *fakeAnswerRepo) ListForTeacher(_ context.Context, _ uint, _ repository.AnswerFilter) ([]models.Answer, error) {
	return f.listed, nil
}

func (f *fakeAnswerRepo) Upsert(_ context.Context, answer *models.Answer) error {
	f.upserted = append(f.upserted, *answer)
	return nil
}

func (f *fakeAnswerRepo) ApplyScoreUpdates(_ context.Context, updates []repository.ScoreUpdate) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, updates)
	return nil
}

type submissionKey struct {
	examID    uint
	studentID uint
}

type fakeSubmissionRepo struct {
	existing         map[submissionKey]models.ExamSubmission
	finalizeErr      error
	finalizedAnswers [][]models.Answer
	nextID           uint
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{existing: map[submissionKey]models.ExamSubmission{}}
}

func (f *fakeSubmissionRepo) Exists(_ context.Context, examID, studentID uint) (bool, error) {
	_, ok := f.existing[submissionKey{examID, studentID}]
	return ok, nil
}

func (f *fakeSubmissionRepo) GetByExamAndStudent(_ context.Context, examID, studentID uint) (models.ExamSubmission, error) {
	sub, ok := f.existing[submissionKey{examID, studentID}]
	if !ok {
		return models.ExamSubmission{}, gorm.ErrRecordNotFound
	}
	return sub, nil
}

func (f *fakeSubmissionRepo) ListByExam(_ context.Context, examID uint) ([]models.ExamSubmission, error) {
	var out []models.ExamSubmission
	for key, sub := range f.existing {
		if key.examID == examID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) Finalize(_ context.Context, submission *models.ExamSubmission, answers []models.Answer) error {
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	key := submissionKey{submission.ExamID, submission.StudentID}
	if _, ok := f.existing[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	submission.ID = f.nextID
	f.existing[key] = *submission
	f.finalizedAnswers = append(f.finalizedAnswers, answers)
	return nil
}

func (f *fakeSubmissionRepo) RecalculateTotal(_ context.Context, examID, studentID uint) (float64, error) {
	sub, ok := f.existing[submissionKey{examID, studentID}]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return sub.TotalScore, nil
}

type fakeExamRepo struct {
	exams  map[uint]models.Exam
	nextID uint
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: map[uint]models.Exam{}}
}

func (f *fakeExamRepo) GetByID(_ context.Context, id uint) (models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return models.Exam{}, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (f *fakeExamRepo) GetWithQuestions(ctx context.Context, id uint) (models.Exam, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeExamRepo) ListOpenOrUpcoming(_ context.Context, now time.Time) ([]models.Exam, error) {
	var out []models.Exam
	for _, exam := range f.exams {
		if !now.After(exam.EndTime) {
			out = append(out, exam)
		}
	}
	return out, nil
}

func (f *fakeExamRepo) ListEnded(_ context.Context, now time.Time) ([]models.Exam, error) {
	var out []models.Exam
	for _, exam := range f.exams {
		if now.After(exam.EndTime) {
			out = append(out, exam)
		}
	}
	return out, nil
}

func (f *fakeExamRepo) ListByTeacher(_ context.Context, teacherID uint) ([]models.Exam, error) {
	var out []models.Exam
	for _, exam := range f.exams {
		if exam.TeacherID == teacherID {
			out = append(out, exam)
		}
	}
	return out, nil
}

func (f *fakeExamRepo) Create(_ context.Context, exam *models.Exam) error {
	f.nextID++
	exam.ID = f.nextID
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Update(_ context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Delete(_ context.Context, id uint) error {
	delete(f.exams, id)
	return nil
}

type fakeUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]models.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return nil
}

type fakeEventPublisher struct {
	events []ExamEvent
}

func (f *fakeEventPublisher) Publish(_ context.Context, event ExamEvent) {
	f.events = append(f.events, event)
}

type fakeActivityRecorder struct {
	entries []ActivityEntry
}

func (f *fakeActivityRecorder) Record(_ context.Context, entry ActivityEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}
