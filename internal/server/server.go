package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/liao/bookchat/internal/answer"
	"github.com/liao/bookchat/internal/chat"
)

type Answerer interface {
	Answer(ctx context.Context, bookID, question string, sink answer.Sink) (answer.Result, error)
}

// Server HTTP 入口：SSE 问答和历史读写
type Server struct {
	e       *echo.Echo
	addr    string
	answers Answerer
	history chat.Store
}

func New(addr string, answers Answerer, history chat.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{e: e, addr: addr, answers: answers, history: history}
	e.GET("/chat/stream", s.handleStream)
	e.GET("/chat/history/:book_id", s.handleHistory)
	e.DELETE("/chat/history/:book_id", s.handleClear)
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

// Start 阻塞直到 Shutdown
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.addr)
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleStream(c echo.Context) error {
	question := strings.TrimSpace(c.QueryParam("question"))
	bookID := strings.TrimSpace(c.QueryParam("book_id"))
	if question == "" || bookID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and book_id are required")
	}

	w := c.Response().Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("response writer doesn't support flushing")
		return c.String(http.StatusInternalServerError, "Streaming not supported")
	}

	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	sink := &sseSink{w: c.Response(), flusher: flusher}
	// 失败已经通过事件流告知客户端
	_, _ = s.answers.Answer(c.Request().Context(), bookID, question, sink)
	return nil
}

func (s *Server) handleHistory(c echo.Context) error {
	turns, err := s.history.History(c.Request().Context(), c.Param("book_id"))
	if err != nil {
		return historyError(err)
	}
	items := make([]historyItem, 0, len(turns))
	for _, t := range turns {
		items = append(items, historyItem{Role: t.Role, Content: t.Content})
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleClear(c echo.Context) error {
	if err := s.history.Clear(c.Request().Context(), c.Param("book_id")); err != nil {
		return historyError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func historyError(err error) error {
	if errors.Is(err, chat.ErrInvalidBookID) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slog.Error("history request failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "An error occurred.")
}
