package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/service"
	"github.com/examly/exam-go-api/internal/utils"
)

// TeacherExamHandler manages the teacher's exam and question endpoints.
type TeacherExamHandler struct {
	service service.TeacherExamService
	logger  zerolog.Logger
}

// NewTeacherExamHandler builds a teacher exam handler instance.
func NewTeacherExamHandler(service service.TeacherExamService, logger zerolog.Logger) *TeacherExamHandler {
	return &TeacherExamHandler{
		service: service,
		logger:  logger.With().Str("component", "teacher_exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *TeacherExamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	// The literal route must precede the :id routes or fiber never reaches it.
	router.Get("/stats", h.dashboardStats)
	router.Get("/:id", h.getExam)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/questions", h.addQuestion)
	router.Put("/questions/:questionId", h.updateQuestion)
	router.Delete("/questions/:questionId", h.deleteQuestion)
	router.Get("/:id/summary", h.summary)
	router.Get("/:id/submissions/:studentId", h.submissionDetail)
}

func (h *TeacherExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.service.ListExams(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *TeacherExamHandler) getExam(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exam, err := h.service.GetExam(c.Context(), userIDFromContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *TeacherExamHandler) dashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.DashboardStats(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "dashboard statistics retrieved", stats)
}

func (h *TeacherExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.service.CreateExam(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *TeacherExamHandler) update(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.service.UpdateExam(c.Context(), userIDFromContext(c), examID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *TeacherExamHandler) delete(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteExam(c.Context(), userIDFromContext(c), examID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam deleted", nil)
}

func (h *TeacherExamHandler) addQuestion(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.AddQuestion(c.Context(), userIDFromContext(c), examID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *TeacherExamHandler) updateQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.service.UpdateQuestion(c.Context(), userIDFromContext(c), questionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *TeacherExamHandler) deleteQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteQuestion(c.Context(), userIDFromContext(c), questionID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question deleted", nil)
}

func (h *TeacherExamHandler) summary(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.ExamSummary(c.Context(), userIDFromContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "summary retrieved", summary)
}

func (h *TeacherExamHandler) submissionDetail(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.SubmissionDetail(c.Context(), userIDFromContext(c), examID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", detail)
}

func (h *TeacherExamHandler) handleError(c *fiber.Ctx, err error) error {
	var parseErr *time.ParseError
	switch {
	case errors.As(err, &parseErr):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid timestamp format")
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrNotExamOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not the owner of this exam")
	case errors.Is(err, service.ErrExamLocked):
		return utils.SendError(c, fiber.StatusConflict, "exam can no longer be modified")
	case errors.Is(err, service.ErrInvalidTimeWindow), errors.Is(err, service.ErrMissingCorrectAnswer):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
