package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shoplens/shoplens/internal/chat"
	"github.com/shoplens/shoplens/internal/identity"
	"github.com/shoplens/shoplens/models"
)

type ChatHandler struct {
	Chat *chat.Manager
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	if len(secret) > 0 {
		g.Use(authMiddleware(secret))
	}
	g.POST("/ask", h.ask)
	g.GET("/history/:session_id", h.history)
	g.POST("/clear", h.clear)
}

func (h *ChatHandler) ask(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" || req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url and question are required")
	}

	key, err := identity.Resolve(req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, answer, err := h.Chat.Ask(c.Request().Context(), req.SessionID, key, req.Question)
	switch {
	case errors.Is(err, models.ErrNotCached):
		return echo.NewHTTPError(http.StatusConflict, "product not analyzed yet, call /analyze first")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ChatResponse{SessionID: session, Answer: answer})
}

func (h *ChatHandler) history(c echo.Context) error {
	session := c.Param("session_id")
	msgs, err := h.Chat.History(c.Request().Context(), session)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return c.JSON(http.StatusOK, ChatHistoryResponse{SessionID: session, Messages: msgs})
}

func (h *ChatHandler) clear(c echo.Context) error {
	var req ClearChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	if err := h.Chat.Clear(c.Request().Context(), req.SessionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
