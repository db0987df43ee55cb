package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/config"
	"github.com/examly/exam-go-api/internal/handler"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
	"github.com/examly/exam-go-api/internal/router"
	"github.com/examly/exam-go-api/internal/service"
)

func setupAnswerApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.Answer{},
		&models.ExamSubmission{},
		&models.ActivityLog{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	events := service.NewEventPublisher(nil, nil, "test", logger)
	activity := service.NewActivityService(activityRepo, logger)
	submissionService := service.NewSubmissionService(
		questionRepo, answerRepo, submissionRepo,
		service.NewAnswerGrader(), validate, events, activity,
		time.Second, logger,
	)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		AnswerHandler: handler.NewAnswerHandler(submissionService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			c.Locals("user_role", models.RoleStudent)
			return c.Next()
		},
	})

	return app, db
}

func seedActiveExam(t *testing.T, db *gorm.DB) (models.Exam, []models.Question) {
	t.Helper()

	// The stubbed JWT middleware authenticates as user 1, so the student is
	// seeded first.
	student := models.User{Name: "Riley", Email: "riley@example.com", PasswordHash: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)
	teacher := models.User{Name: "Prof", Email: "prof@example.com", PasswordHash: "x", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&teacher).Error)

	exam := models.Exam{
		TeacherID: teacher.ID,
		Title:     "Midterm",
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&exam).Error)

	reference := "true"
	questions := []models.Question{
		{ExamID: exam.ID, Text: "2+2=4?", Type: models.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: &reference},
		{ExamID: exam.ID, Text: "Explain entropy", Type: models.QuestionTypeShortAnswer, Points: 10},
	}
	for i := range questions {
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	return exam, questions
}

func postJSON(t *testing.T, app *fiber.App, target string, body interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) {
	t.Helper()

	defer resp.Body.Close()
	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
}

func TestAnswerEndpointsFinalizeBatchOnce(t *testing.T) {
	app, db := setupAnswerApp(t)
	_, questions := seedActiveExam(t, db)

	// Autosave one answer.
	resp := postJSON(t, app, "/api/v1/student/answers", map[string]interface{}{
		"question_id": questions[0].ID,
		"answer_text": "TRUE",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var saved struct {
		AnswerText string `json:"answer_text"`
	}
	decodeEnvelope(t, resp, &saved)
	require.Equal(t, "true", saved.AnswerText)

	// Finalize with a batch.
	resp = postJSON(t, app, "/api/v1/student/answers/batch", map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions[0].ID, "answer_text": "true"},
			{"question_id": questions[1].ID, "answer_text": "Entropy always grows"},
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var batch struct {
		Finalized  bool    `json:"finalized"`
		TotalScore float64 `json:"total_score"`
	}
	decodeEnvelope(t, resp, &batch)
	require.True(t, batch.Finalized)
	require.Equal(t, 5.0, batch.TotalScore)

	// The second finalize hits the ledger's unique constraint.
	resp = postJSON(t, app, "/api/v1/student/answers/batch", map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": questions[0].ID, "answer_text": "false"},
		},
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.ExamSubmission{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAnswerEndpointsRejectUnknownQuestion(t *testing.T) {
	app, _ := setupAnswerApp(t)

	resp := postJSON(t, app, "/api/v1/student/answers", map[string]interface{}{
		"question_id": 9999,
		"answer_text": "true",
	})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
