// Package sessionscmder provides the sessions command for listing and
// deleting server sessions.
package sessionscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/cliui"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
)

const sessionsLongDesc string = `List the sessions held by the server.

The session saved by the last "tablechat upload" is marked with *.

Examples:
  tablechat sessions
  tablechat sessions delete 6f1c2a9e-...`

const sessionsShortDesc string = "List and delete server sessions"

const maxFilenameWidth = 32

type sessionsCommander struct {
	client cmdutil.ClientOptions
	asJSON bool
}

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runList(cmd)
		},
	}

	cmdutil.RegisterClientFlags(cmd, &cmder.client)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print sessions as JSON")

	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func newClient(cmd *cobra.Command) (*chat.Client, context.Context, error) {
	cfg, err := cmdutil.ResolveClientConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	client, err := cmdutil.NewClient(cfg, cmdutil.NewLogger(cmdutil.Debug(cmd)), nil)
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return client, ctx, nil
}

func (c *sessionsCommander) runList(cmd *cobra.Command) error {
	client, ctx, err := newClient(cmd)
	if err != nil {
		return err
	}

	sessions, err := client.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		return cmdutil.PrintJSON(out, sessions)
	}

	var current string
	if state, err := dotdir.NewManager().LoadSessionState(cmdutil.ConfigDir(cmd)); err == nil && state != nil {
		current = state.SessionID
	}

	printSessions(out, sessions, current)
	return nil
}

func printSessions(w io.Writer, sessions []chat.SessionSummary, current string) {
	if len(sessions) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No sessions."))
		return
	}

	fmt.Fprintln(w)
	for _, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = cliui.SuccessMark
		}

		file := "-"
		if s.FileInfo != nil {
			file = cliui.TruncateWidth(s.FileInfo.Filename, maxFilenameWidth)
		}

		fmt.Fprintf(w, "  %s %s  %s  %s\n",
			marker,
			cliui.IDStyle.Render(s.ID),
			cliui.NameStyle.Render(file),
			cliui.DimStyle.Render(fmt.Sprintf("%d messages, updated %s", s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))),
		)
	}
	fmt.Fprintln(w)
}

func newDeleteCmd() *cobra.Command {
	var opts cmdutil.ClientOptions

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}

	cmdutil.RegisterClientFlags(cmd, &opts)
	return cmd
}

func runDelete(cmd *cobra.Command, id string) error {
	client, ctx, err := newClient(cmd)
	if err != nil {
		return err
	}

	if err := client.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	configDir := cmdutil.ConfigDir(cmd)
	ddm := dotdir.NewManager()
	if state, err := ddm.LoadSessionState(configDir); err == nil && state != nil && state.SessionID == id {
		if err := ddm.ClearSessionState(configDir); err != nil {
			return fmt.Errorf("clearing session state: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
	return nil
}
