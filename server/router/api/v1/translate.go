package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tutorvoice/server/router/api/v1/tutor"
)

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text *string `json:"text"`
}

// TranslateResponse is the body returned by POST /translate.
type TranslateResponse struct {
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Translate translates Korean text to English. It neither reads nor writes the session.
func (s *APIV1Service) Translate(c echo.Context) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, TranslateResponse{Error: "invalid request body"})
	}
	if req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		return c.JSON(http.StatusBadRequest, TranslateResponse{Error: "text is required"})
	}

	translation, err := s.Translator.Translate(c.Request().Context(), *req.Text)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, TranslateResponse{Error: tutor.TranslationFailedMessage})
	}
	return c.JSON(http.StatusOK, TranslateResponse{Translation: translation})
}
