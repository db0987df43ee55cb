package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/service"
	"github.com/examly/exam-go-api/internal/utils"
)

// GradingHandler serves the teacher's grading endpoints.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("/:id", h.regrade)
	router.Put("", h.bulkRegrade)
}

func (h *GradingHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionListFilter{Status: c.Query("status")}
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ExamID = examID

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.StudentID = studentID

	answers, err := h.service.ListAnswers(c.Context(), userIDFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *GradingHandler) regrade(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RegradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.Regrade(c.Context(), userIDFromContext(c), answerID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer regraded", answer)
}

func (h *GradingHandler) bulkRegrade(c *fiber.Ctx) error {
	var payload dto.BulkRegradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.BulkRegrade(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grades applied", result)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found")
	case errors.Is(err, service.ErrNotExamOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not the owner of this exam")
	case errors.Is(err, service.ErrInvalidScore):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
