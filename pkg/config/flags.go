package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "tablechat chat", "tablechat upload" and "tablechat history").
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPITarget         = "api-target"
	FlagTimeout           = "timeout"
	FlagListen            = "listen"
	FlagUploadDir         = "upload-dir"
	FlagMaxUploadMB       = "max-upload-mb"
	FlagSessionTTL        = "session-ttl"
	FlagAssistantProvider = "assistant-provider"
	FlagAssistantTarget   = "assistant-target"
	FlagAssistantModel    = "model"
	FlagThinkingBudget    = "thinking-budget"
	FlagEventStreamProv   = "eventstream-provider"
	FlagEventStreamBroker = "eventstream-brokers"
	FlagEventStreamTopic  = "eventstream-topic"
)

// ClientFlags are shared by every command that talks to a tablechat server.
var ClientFlags = FlagSet{
	FlagAPITarget: {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "tablechat API base URL"},
	FlagTimeout:   {Name: "timeout", ViperKey: "client.timeout", Description: "Request timeout, including the streamed response"},
}

// ServerFlags are registered on "tablechat serve".
var ServerFlags = FlagSet{
	FlagListen:            {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagUploadDir:         {Name: "upload-dir", ViperKey: "server.upload_dir", Description: "Directory uploaded tables are written to"},
	FlagMaxUploadMB:       {Name: "max-upload-mb", ViperKey: "server.max_upload_mb", Description: "Largest accepted upload in megabytes"},
	FlagSessionTTL:        {Name: "session-ttl", ViperKey: "server.session_ttl", Description: "Idle time after which a session is removed"},
	FlagAssistantProvider: {Name: "assistant-provider", ViperKey: "assistant.provider", Description: "Assistant backend (ollama, openai, anthropic, echo)"},
	FlagAssistantTarget:   {Name: "assistant-target", ViperKey: "assistant.target", Description: "Assistant backend URL"},
	FlagAssistantModel:    {Name: "model", Shorthand: "m", ViperKey: "assistant.model", Description: "Model name passed to the assistant backend"},
	FlagThinkingBudget:    {Name: "thinking-budget", ViperKey: "assistant.thinking_budget", Description: "Extended thinking token budget for anthropic, 0 to disable"},
	FlagEventStreamProv:   {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Where completed turns are published (nop, kafka)"},
	FlagEventStreamBroker: {Name: "eventstream-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventStreamTopic:  {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for completed turns"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
