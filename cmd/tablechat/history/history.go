// Package historycmder provides the history command, which prints the
// transcript of a session as the server stored it.
package historycmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	"github.com/papercomputeco/tablechat/pkg/cliui"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

const historyLongDesc string = `Print the messages of a chat session.

Without a session id the session saved by the last "tablechat upload" is used.

Examples:
  tablechat history
  tablechat history 6f1c2a9e-... --thinking
  tablechat history --json`

const historyShortDesc string = "Print a session's messages"

type historyCommander struct {
	client   cmdutil.ClientOptions
	thinking bool
	asJSON   bool
	render   bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return cmder.run(cmd, id)
		},
	}

	cmdutil.RegisterClientFlags(cmd, &cmder.client)
	cmd.Flags().BoolVar(&cmder.thinking, "thinking", false, "Include the assistant's reasoning")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw history as JSON")
	cmd.Flags().BoolVar(&cmder.render, "render", cliui.IsTerminal(os.Stdout), "Render answers as markdown")

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command, explicitID string) error {
	id, err := cmdutil.ResolveSessionID(explicitID, cmdutil.ConfigDir(cmd))
	if err != nil {
		return err
	}

	cfg, err := cmdutil.ResolveClientConfig(cmd)
	if err != nil {
		return err
	}

	client, err := cmdutil.NewClient(cfg, cmdutil.NewLogger(cmdutil.Debug(cmd)), nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	history, err := client.History(ctx, id)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		return cmdutil.PrintJSON(out, history)
	}

	if history.FileInfo != nil {
		fmt.Fprintf(out, "\n  %s %s %s\n",
			cliui.KeyStyle.Render("File:"),
			cliui.NameStyle.Render(history.FileInfo.Filename),
			cliui.DimStyle.Render(fmt.Sprintf("(%d rows, %d columns)", history.FileInfo.Rows, history.FileInfo.Columns)),
		)
	}

	if len(history.Messages) == 0 {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No messages yet."))
		return nil
	}

	PrintMessages(out, history.Messages, Options{Thinking: c.thinking, Render: c.render})
	return nil
}

// Options controls how PrintMessages formats a transcript.
type Options struct {
	Thinking bool
	Render   bool
	Width    int
}

// PrintMessages writes msgs in order with role headers.
func PrintMessages(w io.Writer, msgs []transcript.Message, opts Options) {
	for _, m := range msgs {
		fmt.Fprintln(w)
		switch m.Role {
		case transcript.RoleUser:
			fmt.Fprintf(w, "%s %s\n", cliui.PromptStyle.Render("you>"), m.Content)

		case transcript.RoleAssistant:
			fmt.Fprintf(w, "%s %s\n",
				cliui.NameStyle.Render("assistant>"),
				cliui.DimStyle.Render(m.Timestamp.Local().Format("15:04:05")),
			)
			if opts.Thinking && m.ThinkingText() != "" {
				fmt.Fprintln(w, cliui.ThinkingStyle.Render(m.ThinkingText()))
			}
			fmt.Fprintln(w, formatAnswer(m.Content, opts))
		}
	}
	fmt.Fprintln(w)
}

func formatAnswer(content string, opts Options) string {
	if content == "" {
		return cliui.DimStyle.Render("(no answer)")
	}
	if !opts.Render {
		return content
	}

	width := opts.Width
	if width <= 0 {
		width = cliui.WrapWidth(os.Stdout)
	}
	rendered, err := cliui.RenderMarkdownWidth(content, width)
	if err != nil {
		return content
	}
	return rendered
}
