package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/internal/utils"
)

// JudgeHandler exposes the judge intake and submission read endpoints.
type JudgeHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewJudgeHandler constructs the handler.
func NewJudgeHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *JudgeHandler {
	return &JudgeHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "judge_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group. Guards apply to
// the submit endpoint only, so verdict polling stays unthrottled.
func (h *JudgeHandler) Register(router fiber.Router, submitGuards ...fiber.Handler) {
	router.Post("", append(submitGuards, h.submit)...)
	router.Get("/submissions", h.list)
	router.Get("/submissions/:id", h.get)
}

func (h *JudgeHandler) submit(c *fiber.Ctx) error {
	var payload dto.JudgeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	ack, err := h.service.Submit(c.Context(), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", ack)
}

func (h *JudgeHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.Context(), id, userIDFromContext(c), userRoleFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", response)
}

func (h *JudgeHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := repository.SubmissionQuery{
		ProblemID: parseQueryUint(c, "problem_id"),
		Status:    models.SubmissionStatus(c.Query("status")),
		Page:      parseQueryInt(c, "page"),
		PageSize:  parseQueryInt(c, "page_size"),
	}

	response, err := h.service.List(c.Context(), userID, query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", response)
}

func (h *JudgeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case errors.Is(err, service.ErrProblemNotFound), errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSubmissionForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrJudgeBusy):
		c.Set(fiber.HeaderRetryAfter, "5")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "judge is busy, retry later")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("judge operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
