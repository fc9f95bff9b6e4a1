package api

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/tablechat/api/worker"
	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/eventstream"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

const serviceName = "tablechat"

// turnJob is everything the stream goroutine needs once the handler returned.
type turnJob struct {
	path        string
	sessionID   string
	file        *transcript.FileInfo
	question    transcript.Message
	placeholder transcript.Message
	prompt      assistant.Prompt
	startedAt   time.Time
}

// handleChatStream answers a question about a session's table as a stream of
// data frames ending in [DONE], or in a single error frame when the
// assistant fails.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	var req chat.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{Error: "message is required"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(chat.ErrorResponse{Error: "session_id is required"})
	}

	ctx := c.Context()
	sess, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return s.sessionError(c, err)
	}

	t, err := s.tables.load(sess)
	if err != nil {
		s.logger.Error("failed to load session table", "session_id", sess.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(chat.ErrorResponse{
			Error:  "failed to load table",
			Detail: err.Error(),
		})
	}

	job := turnJob{
		path:        strings.Clone(c.Path()),
		sessionID:   sess.ID,
		file:        sess.File,
		question:    transcript.NewUserMessage(req.Message),
		placeholder: transcript.NewAssistantPlaceholder(),
		startedAt:   s.now(),
	}
	job.prompt = assistant.Prompt{
		Question: req.Message,
		History:  sess.Messages,
		File:     sess.File,
		Table:    t,
	}

	if err := s.store.Append(ctx, sess.ID, job.question); err != nil {
		return s.sessionError(c, err)
	}
	if err := s.store.Append(ctx, sess.ID, job.placeholder); err != nil {
		return s.sessionError(c, err)
	}

	s.logger.Debug("starting chat stream",
		"session_id", sess.ID,
		"message_id", job.placeholder.ID,
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Stream through an io.Pipe so every frame is flushed to the client as it
	// is written.
	pr, pw := io.Pipe()
	go s.streamTurn(job, pw)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamTurn runs the assistant, writes its events as frames and folds the
// same events into the stored assistant message.
func (s *Server) streamTurn(job turnJob, pw *io.PipeWriter) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	w := sse.NewWriter(pw)
	acc := transcript.NewAccumulator(job.placeholder)
	count := 0

	emit := func(ev sse.ChatEvent) error {
		if err := w.WriteEvent(ev); err != nil {
			return fmt.Errorf("writing to client: %w", err)
		}
		count++

		if msg, changed := acc.Apply(ev); changed {
			s.storeMessage(ctx, job.sessionID, msg)
		}
		return nil
	}

	err := s.assistant.Stream(ctx, job.prompt, emit)
	if err != nil {
		s.logger.Error("assistant failed",
			"session_id", job.sessionID,
			"assistant", s.assistant.Name(),
			"error", err,
		)
		if emitErr := emit(sse.Error("failed to process message: " + err.Error())); emitErr != nil {
			s.logger.Debug("could not deliver error frame", "session_id", job.sessionID, "error", emitErr)
		}
	} else if err := emit(sse.Done()); err != nil {
		s.logger.Debug("could not deliver done frame", "session_id", job.sessionID, "error", err)
	}

	answer := acc.Finish(err)
	s.storeMessage(ctx, job.sessionID, answer)

	turn := acc.Turn()
	s.logger.Info("chat turn finished",
		"session_id", job.sessionID,
		"outcome", turn.Outcome.String(),
		"events", count,
		"duration", s.now().Sub(job.startedAt),
	)

	s.publishTurn(job, answer, turn, count)
}

// storeMessage mirrors msg into the session. The session may have been deleted
// while the stream was running.
func (s *Server) storeMessage(ctx context.Context, sessionID string, msg transcript.Message) {
	if err := s.store.ReplaceMessage(ctx, sessionID, msg); err != nil {
		s.logger.Debug("could not update streamed message",
			"session_id", sessionID,
			"message_id", msg.ID,
			"error", err,
		)
	}
}

func (s *Server) publishTurn(job turnJob, answer transcript.Message, turn transcript.Turn, count int) {
	if s.pool == nil {
		return
	}

	completed := s.now()
	s.pool.Enqueue(worker.Job{Event: &eventstream.TurnCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     completed,
		Source: eventstream.EventSource{
			Service:  serviceName,
			Provider: s.assistant.Name(),
			Model:    s.assistant.Model(),
		},
		SessionID: job.sessionID,
		File:      job.file,
		RequestMeta: eventstream.TurnRequestMeta{
			Path:        job.path,
			StartedAt:   job.startedAt,
			CompletedAt: completed,
			DurationMs:  completed.Sub(job.startedAt).Milliseconds(),
			Outcome:     turn.Outcome.String(),
			Error:       turn.Err,
			EventCount:  count,
		},
		Question: job.question,
		Answer:   answer,
	}})
}
