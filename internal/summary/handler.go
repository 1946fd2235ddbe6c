package summary

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"askline/internal/logger"
	"askline/pkg/errors"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/sessions/:code/summary", h.GetSummary)
	}
}

// GetSummary godoc
// @Summary      Get the AI summary for a session
// @Description  Summarize the session's messages; cached until the board changes
// @Tags         summary
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  Summary
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      503   {object}  errors.ErrorResponse
// @Router       /sessions/{code}/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, result)
}
