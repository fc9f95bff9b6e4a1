// Package servecmder provides the serve command, which runs the tablechat API
// server together with its session janitor and turn publisher.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/tablechat/api"
	"github.com/papercomputeco/tablechat/api/worker"
	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	"github.com/papercomputeco/tablechat/pkg/assistant"
	assistantutils "github.com/papercomputeco/tablechat/pkg/assistant/utils"
	"github.com/papercomputeco/tablechat/pkg/config"
	eventstreamutils "github.com/papercomputeco/tablechat/pkg/eventstream/utils"
	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/session"
)

const serveLongDesc string = `Run the tablechat API server.

The server accepts table uploads, streams assistant replies over
server-sent events and keeps sessions in memory. Idle sessions are removed
after --session-ttl together with their uploaded files.

Completed turns can be published to Kafka with --eventstream-provider kafka.

Examples:
  tablechat serve
  tablechat serve --assistant-provider echo
  tablechat serve --model llama3.2 --assistant-target http://gpu-box:11434
  OPENAI_API_KEY=... tablechat serve --assistant-provider openai --assistant-target https://api.openai.com --model gpt-4o
  tablechat serve --eventstream-provider kafka --eventstream-brokers kafka:9092`

const serveShortDesc string = "Run the tablechat API server"

var serverFlagKeys = []string{
	config.FlagListen,
	config.FlagUploadDir,
	config.FlagMaxUploadMB,
	config.FlagSessionTTL,
	config.FlagAssistantProvider,
	config.FlagAssistantTarget,
	config.FlagAssistantModel,
	config.FlagThinkingBudget,
	config.FlagEventStreamProv,
	config.FlagEventStreamBroker,
	config.FlagEventStreamTopic,
}

type serveCommander struct {
	listen      string
	uploadDir   string
	maxUploadMB uint
	sessionTTL  string

	assistantProvider string
	assistantTarget   string
	model             string
	thinkingBudget    uint

	eventStreamProvider string
	eventStreamBrokers  string
	eventStreamTopic    string

	logFile string
	workers uint
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdutil.ResolveConfig(cmd, config.ServerFlags, serverFlagKeys)
			if err != nil {
				return err
			}

			log, closeLog, err := cmder.newLogger(cmdutil.Debug(cmd))
			if err != nil {
				return err
			}
			defer closeLog()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Debug("resolved server config",
				"listen", cfg.Server.Listen,
				"upload_dir", cfg.Server.UploadDir,
				"max_upload_mb", cfg.Server.MaxUploadMB,
				"session_ttl", cfg.Server.SessionTTL,
				"assistant", cfg.Assistant.Provider,
				"model", cfg.Assistant.Model,
				"eventstream", cfg.EventStream.Provider,
			)

			svc, err := newServices(cfg, cmder.workers, log)
			if err != nil {
				return err
			}
			return svc.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.ServerFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagUploadDir, &cmder.uploadDir)
	config.AddUintFlag(cmd, config.ServerFlags, config.FlagMaxUploadMB, &cmder.maxUploadMB)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagSessionTTL, &cmder.sessionTTL)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagAssistantProvider, &cmder.assistantProvider)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagAssistantTarget, &cmder.assistantTarget)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagAssistantModel, &cmder.model)
	config.AddUintFlag(cmd, config.ServerFlags, config.FlagThinkingBudget, &cmder.thinkingBudget)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagEventStreamProv, &cmder.eventStreamProvider)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagEventStreamBroker, &cmder.eventStreamBrokers)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagEventStreamTopic, &cmder.eventStreamTopic)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().UintVar(&cmder.workers, "publish-workers", 0, "Number of turn publishing workers (0 uses the default)")

	return cmd
}

// newLogger returns the pretty stderr logger, fanned out to a JSON log file
// when --log-file is set. The returned func closes the file.
func (c *serveCommander) newLogger(debug bool) (*slog.Logger, func(), error) {
	pretty := cmdutil.NewLogger(debug)
	if c.logFile == "" {
		return pretty, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(pretty, file), func() { f.Close() }, nil
}

// services is everything "tablechat serve" runs.
type services struct {
	server  *api.Server
	pool    *worker.Pool
	janitor *session.Janitor
	logger  *slog.Logger
}

func newServices(cfg *config.Config, workers uint, log *slog.Logger) (*services, error) {
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return nil, err
	}

	asst, err := newAssistant(cfg, log)
	if err != nil {
		return nil, err
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.BrokerList(),
		Topic:        cfg.EventStream.Topic,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating turn publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: workers,
		Logger:     log,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating worker pool: %w", err), publisher.Close())
	}

	store := session.NewStore()
	server, err := api.NewServer(api.Config{
		ListenAddr:     cfg.Server.Listen,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		SessionTTL:     ttl,
	}, store, asst, pool, log)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating api server: %w", err), pool.Close())
	}

	return &services{
		server: server,
		pool:   pool,
		janitor: &session.Janitor{
			Store:    store,
			MaxAge:   ttl,
			Logger:   log,
			OnRemove: server.ReleaseSession,
		},
		logger: log,
	}, nil
}

func newAssistant(cfg *config.Config, log *slog.Logger) (assistant.Assistant, error) {
	asst, err := assistantutils.NewAssistant(&assistantutils.NewAssistantOpts{
		ProviderType:   cfg.Assistant.Provider,
		TargetURL:      cfg.Assistant.Target,
		ThinkingBudget: int(cfg.Assistant.ThinkingBudget),
		Model:          cfg.Assistant.Model,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}
	return asst, nil
}

// run serves until ctx is cancelled or the listener fails, then shuts the
// server down before draining the publisher.
func (s *services) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.server.Run(); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.janitor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		err := errors.Join(s.server.Shutdown(), s.pool.Close())
		published, failed := s.pool.Stats()
		s.logger.Info("stopped", "turns_published", published, "turns_failed", failed)
		return err
	})

	return g.Wait()
}
