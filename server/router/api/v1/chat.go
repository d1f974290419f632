package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/router/api/v1/tutor"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Message string `json:"message"`
	Audio   string `json:"audio,omitempty"`
	Success bool   `json:"success"`
}

// Chat runs one tutor turn.
func (s *APIV1Service) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ChatResponse{Message: "invalid request body"})
	}
	if req.Message == nil || strings.TrimSpace(*req.Message) == "" {
		return c.JSON(http.StatusBadRequest, ChatResponse{Message: "message is required"})
	}

	result, err := s.TurnService.HandleTurn(c.Request().Context(), SessionIDFromContext(c), *req.Message)
	if err != nil {
		status := aierrors.HTTPStatus(aierrors.GetCodeFromError(err, aierrors.ErrCodeExternalAPIFailure))
		if status == http.StatusInternalServerError {
			return c.JSON(status, ChatResponse{Message: tutor.ApologyMessage})
		}
		return c.JSON(status, ChatResponse{Message: http.StatusText(status)})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Message: result.Message,
		Audio:   result.Audio,
		Success: true,
	})
}
