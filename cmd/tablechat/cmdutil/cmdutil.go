// Package cmdutil holds the pieces shared by the tablechat client commands:
// resolving client configuration, building a chat.Client and locating the
// session a command should act on.
package cmdutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/config"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
	"github.com/papercomputeco/tablechat/pkg/logger"
)

// ErrNoSession is returned when no session id was given and none is saved.
var ErrNoSession = errors.New(`no session: pass a session id or upload a file with "tablechat upload <file>"`)

// ClientOptions are the flag targets shared by client commands.
type ClientOptions struct {
	APITarget string
	Timeout   string
}

// RegisterClientFlags adds --api-target and --timeout to cmd.
func RegisterClientFlags(cmd *cobra.Command, o *ClientOptions) {
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &o.APITarget)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &o.Timeout)
}

// ResolveConfig merges flags, environment, config file and defaults.
func ResolveConfig(cmd *cobra.Command, fs config.FlagSet, keys []string) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, fs, keys)
	return config.FromViper(v), nil
}

// ResolveClientConfig is ResolveConfig for the client flags.
func ResolveClientConfig(cmd *cobra.Command) (*config.Config, error) {
	return ResolveConfig(cmd, config.ClientFlags, []string{config.FlagAPITarget, config.FlagTimeout})
}

// ConfigDir returns the --config-dir flag value, empty when unset.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// Debug returns the --debug flag value.
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// NewLogger returns the pretty stderr logger used by CLI commands.
func NewLogger(debug bool) *slog.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
}

// NewClient builds a chat client from cfg. trace may be nil.
func NewClient(cfg *config.Config, log *slog.Logger, trace io.Writer) (*chat.Client, error) {
	timeout, err := cfg.ClientTimeout()
	if err != nil {
		return nil, err
	}

	opts := []chat.Option{
		chat.WithHTTPClient(&http.Client{Timeout: timeout}),
		chat.WithLogger(log),
	}
	if trace != nil {
		opts = append(opts, chat.WithTrace(trace))
	}

	return chat.NewClient(cfg.Client.APITarget, opts...), nil
}

// ResolveSessionID returns explicit when set, otherwise the session saved by
// the last upload.
func ResolveSessionID(explicit, configDir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return "", fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || state.SessionID == "" {
		return "", ErrNoSession
	}
	return state.SessionID, nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
