package config

const (
	defaultAPITarget     = "http://localhost:8000/api"
	defaultClientTimeout = "5m"

	defaultListen      = ":8000"
	defaultUploadDir   = "uploads"
	defaultMaxUploadMB = 50
	defaultSessionTTL  = "24h"

	defaultAssistantProvider = "ollama"
	defaultAssistantTarget   = "http://localhost:11434"
	defaultAssistantModel    = "qwen3:latest"

	openAITarget    = "https://api.openai.com"
	openAIModel     = "gpt-4o"
	anthropicTarget = "https://api.anthropic.com"
	anthropicModel  = "claude-sonnet-4-5"
	anthropicBudget = 2048

	defaultEventStreamProvider = "nop"
	defaultEventStreamBrokers  = "localhost:9092"
	defaultEventStreamTopic    = "tablechat.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultAPITarget,
			Timeout:   defaultClientTimeout,
		},
		Server: ServerConfig{
			Listen:      defaultListen,
			UploadDir:   defaultUploadDir,
			MaxUploadMB: defaultMaxUploadMB,
			SessionTTL:  defaultSessionTTL,
		},
		Assistant: AssistantConfig{
			Provider: defaultAssistantProvider,
			Target:   defaultAssistantTarget,
			Model:    defaultAssistantModel,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Brokers:  defaultEventStreamBrokers,
			Topic:    defaultEventStreamTopic,
		},
	}
}
