// Package openai implements an Assistant backed by the OpenAI Chat Completions
// streaming API. Any server speaking the same protocol works as well.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
	"github.com/papercomputeco/tablechat/pkg/utils"
)

const (
	// DefaultModel is the default model used for answers.
	DefaultModel = "gpt-4o"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	// APIKeyEnv is read when Config.APIKey is empty.
	APIKeyEnv = "OPENAI_API_KEY"

	completionsPath = "/v1/chat/completions"
)

// Config holds configuration for the OpenAI assistant.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty. A trailing "/v1" is
	// accepted.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	// APIKey defaults to the OPENAI_API_KEY environment variable.
	APIKey string

	Temperature *float64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Assistant streams answers from the Chat Completions API.
type Assistant struct {
	baseURL     string
	model       string
	apiKey      string
	temperature *float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewAssistant creates an OpenAI assistant. It returns
// assistant.ErrMissingAPIKey when no key is configured.
func NewAssistant(cfg Config) (*Assistant, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w (set %s)", assistant.ErrMissingAPIKey, APIKeyEnv)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Assistant{
		baseURL:     baseURL,
		model:       model,
		apiKey:      apiKey,
		temperature: cfg.Temperature,
		httpClient:  hc,
		logger:      logger.OrNop(cfg.Logger),
	}, nil
}

func (a *Assistant) Name() string {
	return "openai"
}

func (a *Assistant) Model() string {
	return a.model
}

// Stream posts a streaming completion request and emits reasoning and content
// deltas as they arrive.
func (a *Assistant) Stream(ctx context.Context, p assistant.Prompt, emit assistant.EmitFunc) error {
	req := chatRequest{
		Model:         a.model,
		Messages:      buildMessages(p),
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
		Temperature:   a.temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	a.logger.Debug("sending openai chat request",
		"model", a.model,
		"messages", len(req.Messages),
	)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), sse.DefaultMaxLineSize)

	for scanner.Scan() {
		payload, ok := sse.DataPayload(scanner.Text())
		if !ok {
			continue
		}
		if payload == sse.DoneSentinel {
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			a.logger.Debug("failed to parse openai chunk",
				"error", err,
				"payload", utils.Truncate(payload, 120),
			)
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("openai: %s", chunk.Error.Message)
		}
		if chunk.Usage != nil {
			a.logger.Debug("openai usage",
				"prompt_tokens", chunk.Usage.PromptTokens,
				"completion_tokens", chunk.Usage.CompletionTokens,
			)
		}

		for _, c := range chunk.Choices {
			if err := emitDelta(c.Delta, emit); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading openai stream: %w", err)
	}

	return nil
}

func emitDelta(d chunkDelta, emit assistant.EmitFunc) error {
	if thinking := d.ReasoningContent + d.Reasoning; thinking != "" {
		if err := emit(sse.Thinking(thinking)); err != nil {
			return err
		}
	}
	if d.Content != "" {
		return emit(sse.Response(d.Content))
	}
	return nil
}

// statusError reads the error message out of a non-200 reply.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return fmt.Errorf("openai returned status %d: %s", resp.StatusCode, body.Error.Message)
	}
	return fmt.Errorf("openai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// buildMessages turns the prompt into chat messages: the table context as
// system message, then prior turns, then the question.
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
