package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/service"
	"github.com/examly/exam-go-api/internal/utils"
)

// AuthHandler manages registration, login and the token lifecycle endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler builds an auth handler instance.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the public routes to the provided router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
	router.Post("/refresh", h.refresh)
}

// RegisterProtected attaches the routes that require an access token.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/logout", h.logout)
	router.Get("/profile", h.profile)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Register(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", pair)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Login(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "login successful", pair)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pair, err := h.service.Refresh(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "token refreshed", pair)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	token := accessTokenFromContext(c)
	if token == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
	}

	if err := h.service.Logout(c.Context(), token); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) profile(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *AuthHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return utils.SendError(c, fiber.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
