// Package chatcmder provides the chat command, an interactive session for
// asking questions about an uploaded table.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	uploadcmder "github.com/papercomputeco/tablechat/cmd/tablechat/upload"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/cliui"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

const chatLongDesc string = `Chat with the assistant about a table.

With a file argument the table is uploaded first and a new session starts.
Without one, the chat resumes the session saved by the last upload, or the
session given with --session.

The assistant's reasoning is streamed as it arrives. On a terminal the answer
is rendered as markdown when it is complete; with --raw, or when output is
piped, answer text is streamed as-is.

Press Ctrl-C while a reply is streaming to cancel it. Type /help for the
in-chat commands.

Examples:
  tablechat chat sales.csv
  tablechat chat sales.csv --watch
  tablechat chat --session 6f1c2a9e-...
  echo "Which region sold most?" | tablechat chat sales.csv --raw`

const chatShortDesc string = "Chat about an uploaded table"

var errWatchNeedsFile = errors.New("--watch needs a source file: pass one as an argument")

type chatCommander struct {
	client cmdutil.ClientOptions

	sessionID  string
	message    string
	raw        bool
	noThinking bool
	watch      bool
	trace      string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [file]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return cmder.run(cmd, path)
		},
	}

	cmdutil.RegisterClientFlags(cmd, &cmder.client)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Resume this session instead of the saved one")
	cmd.Flags().StringVarP(&cmder.message, "message", "m", "", "Ask a single question and exit")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Stream answer text without markdown rendering")
	cmd.Flags().BoolVar(&cmder.noThinking, "no-thinking", false, "Hide the assistant's reasoning")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Upload the file again whenever it changes")
	cmd.Flags().StringVar(&cmder.trace, "trace", "", "Append the raw response stream to this file")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command, path string) error {
	if path != "" && !table.IsSupported(path) {
		return fmt.Errorf("%w: %s (supported: %v)", table.ErrUnsupportedFormat, filepath.Ext(path), table.SupportedExtensions())
	}

	cfg, err := cmdutil.ResolveClientConfig(cmd)
	if err != nil {
		return err
	}

	log := cmdutil.NewLogger(cmdutil.Debug(cmd))

	var trace io.Writer
	if c.trace != "" {
		f, err := os.OpenFile(c.trace, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening trace file: %w", err)
		}
		defer f.Close()
		trace = f
	}

	client, err := cmdutil.NewClient(cfg, log, trace)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	configDir := cmdutil.ConfigDir(cmd)

	sess, source, err := c.openSession(ctx, out, client, configDir, path)
	if err != nil {
		return err
	}

	conv := transcript.NewConversation(client, sess, transcript.WithLogger(log))

	tty := isTerminal(out)
	opts := replOptions{
		Out:          out,
		Logger:       log,
		Interactive:  tty && c.message == "",
		Live:         c.raw || !tty,
		Render:       tty && !c.raw,
		Width:        cliui.WrapWidth(os.Stdout),
		ShowThinking: !c.noThinking,
		TurnContext: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
	if source != "" {
		opts.Reupload = func(ctx context.Context) (transcript.Session, error) {
			resp, err := uploadcmder.Upload(ctx, out, client, source)
			if err != nil {
				return transcript.Session{}, err
			}
			if err := uploadcmder.SaveSession(configDir, client.Target(), source, resp); err != nil {
				return transcript.Session{}, err
			}
			return sessionFromUpload(resp), nil
		}
	}

	r := newRepl(conv, opts)

	if c.message != "" {
		return r.Ask(ctx, c.message)
	}

	if c.watch {
		if source == "" {
			return errWatchNeedsFile
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		w, err := newFileWatcher(source, defaultDebounce, log, func() { r.FileChanged(watchCtx) })
		if err != nil {
			return err
		}
		go w.Run(watchCtx)
	}

	if opts.Interactive {
		printBanner(out, conv.Snapshot())
	}
	return r.Run(ctx, cmd.InOrStdin())
}

// openSession uploads path when given, otherwise loads the session named by
// --session or saved on disk. It returns the session and the local file it
// was created from, if known.
func (c *chatCommander) openSession(ctx context.Context, out io.Writer, client *chat.Client, configDir, path string) (transcript.Session, string, error) {
	if path != "" {
		resp, err := uploadcmder.Upload(ctx, out, client, path)
		if err != nil {
			return transcript.Session{}, "", err
		}
		if err := uploadcmder.SaveSession(configDir, client.Target(), path, resp); err != nil {
			return transcript.Session{}, "", err
		}
		return sessionFromUpload(resp), path, nil
	}

	id, err := cmdutil.ResolveSessionID(c.sessionID, configDir)
	if err != nil {
		return transcript.Session{}, "", err
	}

	history, err := client.History(ctx, id)
	if err != nil {
		return transcript.Session{}, "", fmt.Errorf("loading session %s: %w", id, err)
	}

	var source string
	if state, err := dotdir.NewManager().LoadSessionState(configDir); err == nil && state != nil && state.SessionID == id {
		source = state.SourcePath
	}

	return transcript.Session{
		ID:       history.SessionID,
		Status:   transcript.StatusActive,
		File:     history.FileInfo,
		Messages: history.Messages,
	}, source, nil
}

func sessionFromUpload(resp *chat.UploadResponse) transcript.Session {
	file := resp.FileInfo
	return transcript.Session{
		ID:     resp.SessionID,
		Status: transcript.StatusActive,
		File:   &file,
	}
}

func printBanner(w io.Writer, sess transcript.Session) {
	name := "-"
	if sess.File != nil {
		name = sess.File.Filename
	}
	fmt.Fprintf(w, "\n  %s %s %s\n",
		cliui.KeyStyle.Render("Chatting about"),
		cliui.NameStyle.Render(name),
		cliui.DimStyle.Render("(session "+sess.ID+")"),
	)
	if n := len(sess.Messages); n > 0 {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d earlier messages, /history to show them", n)))
	}
	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Type /help for commands, Ctrl-D to quit."))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && cliui.IsTerminal(f)
}
