// Package uploadcmder provides the upload command, which sends a table to the
// server and remembers the resulting session.
package uploadcmder

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/cliui"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
	"github.com/papercomputeco/tablechat/pkg/table"
)

const previewRows = 5

const uploadLongDesc string = `Upload a CSV or TSV file and start a chat session about it.

The session id is saved in the .tablechat/ directory so that "tablechat chat"
and "tablechat history" pick it up without arguments.

Examples:
  tablechat upload sales.csv
  tablechat upload metrics.tsv --api-target http://analytics:8000/api`

const uploadShortDesc string = "Upload a table and start a session"

type uploadCommander struct {
	client  cmdutil.ClientOptions
	noSave  bool
	preview int
}

func NewUploadCmd() *cobra.Command {
	cmder := &uploadCommander{}

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: uploadShortDesc,
		Long:  uploadLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmdutil.RegisterClientFlags(cmd, &cmder.client)
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false, "Do not remember the session in .tablechat/")
	cmd.Flags().IntVar(&cmder.preview, "preview", previewRows, "Number of preview rows to print")

	return cmd
}

func (c *uploadCommander) run(cmd *cobra.Command, path string) error {
	if !table.IsSupported(path) {
		return fmt.Errorf("%w: %s (supported: %v)", table.ErrUnsupportedFormat, filepath.Ext(path), table.SupportedExtensions())
	}

	cfg, err := cmdutil.ResolveClientConfig(cmd)
	if err != nil {
		return err
	}

	log := cmdutil.NewLogger(cmdutil.Debug(cmd))
	client, err := cmdutil.NewClient(cfg, log, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	resp, err := Upload(ctx, out, client, path)
	if err != nil {
		return err
	}

	if !c.noSave {
		if err := SaveSession(cmdutil.ConfigDir(cmd), client.Target(), path, resp); err != nil {
			return err
		}
	}

	PrintSummary(out, resp, c.preview)
	return nil
}

// Upload sends path to the server behind a spinner.
func Upload(ctx context.Context, w io.Writer, client *chat.Client, path string) (*chat.UploadResponse, error) {
	var resp *chat.UploadResponse
	err := cliui.Step(w, "Uploading "+filepath.Base(path), func() error {
		var err error
		resp, err = client.Upload(ctx, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", path, err)
	}
	return resp, nil
}

// SaveSession records resp as the current session.
func SaveSession(configDir, apiTarget, path string, resp *chat.UploadResponse) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	state := &dotdir.SessionState{
		SessionID:  resp.SessionID,
		APITarget:  apiTarget,
		Filename:   resp.FileInfo.Filename,
		SourcePath: abs,
		UploadedAt: time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveSessionState(state, configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	return nil
}

// PrintSummary prints the session id, table shape and the first rows.
func PrintSummary(w io.Writer, resp *chat.UploadResponse, rows int) {
	fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Session:"), cliui.IDStyle.Render(resp.SessionID))
	fmt.Fprintf(w, "  %s %s %s\n",
		cliui.KeyStyle.Render("File:"),
		cliui.NameStyle.Render(resp.FileInfo.Filename),
		cliui.DimStyle.Render(fmt.Sprintf("(%d rows, %d columns, %s)", resp.FileInfo.Rows, resp.FileInfo.Columns, resp.FileInfo.Size)),
	)

	if rows <= 0 || len(resp.ColumnNames) == 0 {
		fmt.Fprintln(w)
		return
	}

	preview := PreviewTable(resp)
	fmt.Fprintf(w, "\n%s\n", preview.Markdown(rows, 8))
}

// PreviewTable rebuilds the previewed rows in column order.
func PreviewTable(resp *chat.UploadResponse) *table.Table {
	t := &table.Table{Columns: resp.ColumnNames}
	for _, rec := range resp.PreviewData {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = rec[col]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
