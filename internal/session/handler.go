package session

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"askline/internal/logger"
	"askline/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("", h.ListSessions)
			sessions.GET("/:code", h.GetSession)
			sessions.POST("/:code/end", h.EndSession)
			sessions.DELETE("/:code", h.DeleteSession)
			sessions.GET("/:code/join", h.GetJoinInfo)
			sessions.GET("/:code/qr", h.GetJoinQR)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// CreateSession godoc
// @Summary      Create a new session
// @Description  Create a live Q&A session with a fresh join code
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        session  body      CreateSessionRequest  true  "Session data"
// @Success      201      {object}  Session
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      500      {object}  errors.ErrorResponse
// @Router       /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	sess, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// ListSessions godoc
// @Summary      List sessions
// @Description  List all sessions, newest first
// @Tags         sessions
// @Produce      json
// @Success      200  {array}   Session
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.service.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Get a session by join code
// @Tags         sessions
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  Session
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /sessions/{code} [get]
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EndSession godoc
// @Summary      End a session
// @Description  Mark a session as ended; audience submissions are rejected afterwards
// @Tags         sessions
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  Session
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      410   {object}  errors.ErrorResponse
// @Router       /sessions/{code}/end [post]
func (h *Handler) EndSession(c *gin.Context) {
	sess, err := h.service.End(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession godoc
// @Summary      Delete a session
// @Description  Delete a session and its messages
// @Tags         sessions
// @Param        code  path  string  true  "Join code"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /sessions/{code} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetJoinInfo godoc
// @Summary      Get the join panel info
// @Description  Get the canonical join URL and code for a session
// @Tags         sessions
// @Produce      json
// @Param        code  path      string  true  "Join code"
// @Success      200   {object}  JoinInfo
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /sessions/{code}/join [get]
func (h *Handler) GetJoinInfo(c *gin.Context) {
	info, err := h.service.JoinInfo(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetJoinQR godoc
// @Summary      Get the join QR code
// @Description  Render the session's join URL as a PNG QR code
// @Tags         sessions
// @Produce      png
// @Param        code  path   string  true   "Join code"
// @Param        size  query  int     false  "Image size in pixels"
// @Success      200  {file}    binary
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /sessions/{code}/qr [get]
func (h *Handler) GetJoinQR(c *gin.Context) {
	size := 0
	if sizeStr := c.Query("size"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil && parsed > 0 && parsed <= 1024 {
			size = parsed
		}
	}

	png, err := h.service.QRCodePNG(c.Request.Context(), c.Param("code"), size)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
