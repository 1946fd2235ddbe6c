package message

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"askline/internal/board"
	"askline/internal/logger"
	"askline/pkg/errors"
	"askline/pkg/models"
)

type Handler struct {
	service Service
	logger  logger.Logger
	// submitMiddleware guards the audience-facing submit route only; the
	// instructor routes stay unthrottled.
	submitMiddleware []gin.HandlerFunc
}

func NewHandler(service Service, log logger.Logger, submitMiddleware ...gin.HandlerFunc) *Handler {
	return &Handler{
		service:          service,
		logger:           log,
		submitMiddleware: submitMiddleware,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		bySession := v1.Group("/sessions/:code")
		{
			submit := append([]gin.HandlerFunc{}, h.submitMiddleware...)
			submit = append(submit, h.SubmitMessage)
			bySession.POST("/messages", submit...)

			bySession.GET("/messages", h.ListMessages)
			bySession.GET("/stats", h.GetStats)
			bySession.DELETE("/messages", h.ClearMessages)
		}

		byID := v1.Group("/messages/:id")
		{
			byID.POST("/read", h.MarkRead)
			byID.POST("/answered", h.ToggleAnswered)
			byID.DELETE("", h.DeleteMessage)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// SubmitMessage godoc
// @Summary      Submit an audience message
// @Description  Post a question or feedback to a live session
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        code     path      string                true  "Join code"
// @Param        message  body      SubmitMessageRequest  true  "Message data"
// @Success      201      {object}  models.Message
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      410      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Router       /sessions/{code}/messages [post]
func (h *Handler) SubmitMessage(c *gin.Context) {
	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	msg, err := h.service.Submit(c.Request.Context(), c.Param("code"), req, c.ClientIP())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages godoc
// @Summary      List session messages
// @Description  List a session's messages, optionally filtered by type
// @Tags         messages
// @Produce      json
// @Param        code    path      string  true   "Join code"
// @Param        filter  query     string  false  "Filter (all, question, feedback)"  default(all)
// @Success      200     {array}   models.Message
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Router       /sessions/{code}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	filter, err := board.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	msgs, err := h.service.List(c.Request.Context(), c.Param("code"), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// GetStats godoc
// @Summary      Get session statistics
// @Description  Aggregate counts over the full, unfiltered message list
// @Tags         messages
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  board.Stats
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /sessions/{code}/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkRead godoc
// @Summary      Mark a message as read
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  models.Message
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /messages/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	msg, err := h.service.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// ToggleAnswered godoc
// @Summary      Toggle a question's answered state
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  models.Message
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /messages/{id}/answered [post]
func (h *Handler) ToggleAnswered(c *gin.Context) {
	msg, err := h.service.ToggleAnswered(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary      Delete a message
// @Tags         messages
// @Param        id   path  string  true  "Message ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearMessages godoc
// @Summary      Clear all session messages
// @Tags         messages
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  ClearResult
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /sessions/{code}/messages [delete]
func (h *Handler) ClearMessages(c *gin.Context) {
	result, err := h.service.Clear(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
