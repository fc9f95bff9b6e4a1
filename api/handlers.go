package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/session"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleUploadStatus reports whether a session exists and which file it holds.
func (s *Server) handleUploadStatus(c *fiber.Ctx) error {
	sess, err := s.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.sessionError(c, err)
	}

	return c.JSON(chat.UploadStatus{
		SessionID: sess.ID,
		Status:    sess.Status,
		FileInfo:  sess.File,
	})
}

// handleHistory returns every message of a session, oldest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	sess, err := s.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.sessionError(c, err)
	}

	return c.JSON(chat.HistoryResponse{
		SessionID: sess.ID,
		Messages:  sess.Messages,
		FileInfo:  sess.File,
	})
}

// handleDeleteSession removes a session and its uploaded file.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	sess, err := s.store.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return s.sessionError(c, err)
	}

	s.ReleaseSession(sess)
	s.logger.Info("session deleted", "session_id", sess.ID)

	return c.JSON(chat.MessageResponse{Message: "session deleted"})
}

// handleListSessions returns a summary of every session.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions, err := s.store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(chat.ErrorResponse{Error: "failed to list sessions"})
	}

	out := make([]chat.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, summarize(sess))
	}

	return c.JSON(chat.SessionsResponse{Sessions: out})
}

func summarize(sess transcript.Session) chat.SessionSummary {
	return chat.SessionSummary{
		ID:           sess.ID,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		Status:       sess.Status,
		FileInfo:     sess.File,
		MessageCount: len(sess.Messages),
	}
}

// sessionError maps store errors onto HTTP responses.
func (s *Server) sessionError(c *fiber.Ctx, err error) error {
	if session.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(chat.ErrorResponse{Error: "session not found"})
	}

	s.logger.Error("session store failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(chat.ErrorResponse{Error: "internal error"})
}
