// Package ollama implements an Assistant backed by Ollama's streaming chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
	"github.com/papercomputeco/tablechat/pkg/utils"
)

const (
	// DefaultModel is the default model used for answers.
	DefaultModel = "qwen3:latest"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	maxChunkSize = 1024 * 1024
)

// Config holds configuration for the Ollama assistant.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	// Think asks Ollama to return reasoning in a separate field. Leave it off
	// for models without thinking support; inline <think> tags are still split
	// out of the content.
	Think bool

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Assistant streams answers from an Ollama server.
type Assistant struct {
	baseURL    string
	model      string
	think      bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAssistant creates an Ollama assistant.
func NewAssistant(cfg Config) (*Assistant, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Assistant{
		baseURL:    baseURL,
		model:      model,
		think:      cfg.Think,
		httpClient: hc,
		logger:     logger.OrNop(cfg.Logger),
	}, nil
}

func (a *Assistant) Name() string {
	return "ollama"
}

func (a *Assistant) Model() string {
	return a.model
}

// Stream sends the prompt to /api/chat and emits thinking and content deltas
// as they arrive.
func (a *Assistant) Stream(ctx context.Context, p assistant.Prompt, emit assistant.EmitFunc) error {
	req := chatRequest{
		Model:    a.model,
		Messages: buildMessages(p),
		Stream:   true,
	}
	if a.think {
		think := true
		req.Think = &think
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	a.logger.Debug("sending ollama chat request",
		"model", a.model,
		"messages", len(req.Messages),
	)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var splitter thinkSplitter
	send := func(thinking, response string) error {
		if thinking != "" {
			if err := emit(sse.Thinking(thinking)); err != nil {
				return err
			}
		}
		if response != "" {
			if err := emit(sse.Response(response)); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			a.logger.Debug("failed to parse ollama chunk",
				"error", err,
				"line", utils.Truncate(string(line), 120),
			)
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("ollama: %s", chunk.Error)
		}

		thinking, response := splitter.feed(chunk.Message.Content)
		thinking = chunk.Message.Thinking + thinking
		if err := send(thinking, response); err != nil {
			return err
		}

		if chunk.Done {
			a.logger.Debug("ollama stream done",
				"done_reason", chunk.DoneReason,
				"eval_count", chunk.EvalCount,
			)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ollama stream: %w", err)
	}

	return send(splitter.flush())
}

// buildMessages turns the prompt into Ollama chat messages: the table context
// as system message, then prior turns, then the question.
func buildMessages(p assistant.Prompt) []chatMessage {
	msgs := []chatMessage{{Role: "system", Content: p.SystemPrompt()}}
	for _, m := range p.History {
		if m.Content == "" {
			continue
		}
		role := "user"
		if m.Role == transcript.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	return append(msgs, chatMessage{Role: "user", Content: p.Question})
}

var _ assistant.Assistant = (*Assistant)(nil)
