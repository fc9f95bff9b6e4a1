package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/tablechat/api/worker"
	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/session"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

// multipartOverhead is added to the upload limit for the body limit so that
// form boundaries and headers never trip it.
const multipartOverhead = 1024 * 1024

// Server is the API server for uploading tables and chatting about them.
type Server struct {
	config    Config
	store     *session.Store
	assistant assistant.Assistant
	pool      *worker.Pool
	tables    *tableCache
	logger    *slog.Logger
	app       *fiber.App
	now       func() time.Time

	// baseCtx outlives individual requests; streams run on it because fasthttp
	// recycles the request context once the handler returns.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer creates a new API server.
// The store is injected so that it can be shared with the session janitor.
// pool may be nil, in which case no turn events are published.
func NewServer(config Config, store *session.Store, asst assistant.Assistant, pool *worker.Pool, log *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if asst == nil {
		return nil, fmt.Errorf("assistant is required")
	}

	config.applyDefaults()
	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(config.MaxUploadBytes + multipartOverhead),
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    config,
		store:     store,
		assistant: asst,
		pool:      pool,
		tables:    newTableCache(),
		logger:    logger.OrNop(log),
		app:       app,
		now:       func() time.Time { return time.Now().UTC() },
		baseCtx:   ctx,
		cancel:    cancel,
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: config.AllowedOrigins}))

	app.Get("/ping", s.handlePing)

	api := app.Group("/api")
	api.Post("/upload", s.handleUpload)
	api.Get("/upload/status/:id", s.handleUploadStatus)
	api.Post("/chat/stream", s.handleChatStream)
	api.Get("/chat/history/:id", s.handleHistory)
	api.Delete("/chat/session/:id", s.handleDeleteSession)
	api.Get("/chat/sessions", s.handleListSessions)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"assistant", s.assistant.Name(),
		"model", s.assistant.Model(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown cancels in-flight streams and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}

// Handler exposes the server as a net/http handler. Streamed bodies are
// buffered by the bridge, so use it for tests and embedding, not for
// latency sensitive serving.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// ReleaseSession forgets the cached table of a removed session and deletes
// its uploaded file. It is used as the session janitor's removal hook.
func (s *Server) ReleaseSession(sess transcript.Session) {
	s.tables.drop(sess.ID)
	if sess.File == nil || sess.File.Filepath == "" {
		return
	}
	if err := os.Remove(sess.File.Filepath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove uploaded file",
			"session_id", sess.ID,
			"path", sess.File.Filepath,
			"error", err,
		)
	}
}
