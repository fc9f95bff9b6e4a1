// Package anthropic implements an Assistant backed by the Anthropic Messages
// streaming API.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	DefaultModel = "claude-sonnet-4-5"

	// DefaultBaseURL is the default Anthropic API URL.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens bounds the answer, thinking included.
	DefaultMaxTokens = 8192

	// APIKeyEnv is read when Config.APIKey is empty.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	apiVersion   = "2023-06-01"
	messagesPath = "/v1/messages"

	// minThinkingBudget is the smallest budget the API accepts.
	minThinkingBudget = 1024
)

// Config holds configuration for the Anthropic assistant.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	// APIKey defaults to the ANTHROPIC_API_KEY environment variable.
	APIKey string

	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens int

	// ThinkingBudget enables extended thinking with the given token budget.
	// Zero leaves it off. Values below 1024 are raised to 1024.
	ThinkingBudget int

	Temperature *float64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Assistant streams answers from the Messages API.
type Assistant struct {
	baseURL        string
	model          string
	apiKey         string
	maxTokens      int
	thinkingBudget int
	temperature    *float64
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewAssistant creates an Anthropic assistant. It returns
// assistant.ErrMissingAPIKey when no key is configured.
func NewAssistant(cfg Config) (*Assistant, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
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
		return nil, fmt.Errorf("anthropic: %w (set %s)", assistant.ErrMissingAPIKey, APIKeyEnv)
	}

	budget := cfg.ThinkingBudget
	if budget > 0 && budget < minThinkingBudget {
		budget = minThinkingBudget
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if budget > 0 && maxTokens <= budget {
		maxTokens = budget + DefaultMaxTokens
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Assistant{
		baseURL:        baseURL,
		model:          model,
		apiKey:         apiKey,
		maxTokens:      maxTokens,
		thinkingBudget: budget,
		temperature:    cfg.Temperature,
		httpClient:     hc,
		logger:         logger.OrNop(cfg.Logger),
	}, nil
}

func (a *Assistant) Name() string {
	return "anthropic"
}

func (a *Assistant) Model() string {
	return a.model
}

// Stream posts a streaming messages request and emits thinking and text
// deltas as they arrive.
func (a *Assistant) Stream(ctx context.Context, p assistant.Prompt, emit assistant.EmitFunc) error {
	req := messagesRequest{
		Model:     a.model,
		System:    p.SystemPrompt(),
		Messages:  buildMessages(p),
		MaxTokens: a.maxTokens,
		Stream:    true,
	}
	if a.thinkingBudget > 0 {
		// The API rejects a temperature alongside extended thinking.
		req.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: a.thinkingBudget}
	} else {
		req.Temperature = a.temperature
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Api-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	a.logger.Debug("sending anthropic messages request",
		"model", a.model,
		"messages", len(req.Messages),
		"thinking_budget", a.thinkingBudget,
	)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), sse.DefaultMaxLineSize)

	for scanner.Scan() {
		// The "event:" line repeats the payload's type field.
		payload, ok := sse.DataPayload(scanner.Text())
		if !ok {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			a.logger.Debug("failed to parse anthropic event",
				"error", err,
				"payload", utils.Truncate(payload, 120),
			)
			continue
		}

		switch ev.Type {
		case "content_block_start":
			if ev.ContentBlock != nil {
				if err := emitText(ev.ContentBlock.Thinking, ev.ContentBlock.Text, emit); err != nil {
					return err
				}
			}

		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			var thinking, text string
			switch ev.Delta.Type {
			case "thinking_delta":
				thinking = ev.Delta.Thinking
			case "text_delta":
				text = ev.Delta.Text
			}
			if err := emitText(thinking, text, emit); err != nil {
				return err
			}

		case "message_delta":
			if ev.Delta != nil && ev.Usage != nil {
				a.logger.Debug("anthropic message finished",
					"stop_reason", ev.Delta.StopReason,
					"output_tokens", ev.Usage.OutputTokens,
				)
			}

		case "message_stop":
			return nil

		case "error":
			if ev.Error != nil {
				return fmt.Errorf("anthropic: %s: %s", ev.Error.Type, ev.Error.Message)
			}
			return errors.New("anthropic: stream error")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading anthropic stream: %w", err)
	}

	return nil
}

func emitText(thinking, text string, emit assistant.EmitFunc) error {
	if thinking != "" {
		if err := emit(sse.Thinking(thinking)); err != nil {
			return err
		}
	}
	if text != "" {
		return emit(sse.Response(text))
	}
	return nil
}

// statusError reads the error message out of a non-200 reply.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, body.Error.Message)
	}
	return fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// buildMessages lists prior turns then the question. The table context goes
// in the top-level system field instead of a message.
func buildMessages(p assistant.Prompt) []message {
	var msgs []message
	for _, m := range p.History {
		if m.Content == "" {
			continue
		}
		role := "user"
		if m.Role == transcript.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, message{Role: role, Content: m.Content})
	}
	return append(msgs, message{Role: "user", Content: p.Question})
}

var _ assistant.Assistant = (*Assistant)(nil)
