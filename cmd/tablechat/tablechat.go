// Package tablechatcmder
package tablechatcmder

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/tablechat/cmd/tablechat/chat"
	configcmder "github.com/papercomputeco/tablechat/cmd/tablechat/config"
	historycmder "github.com/papercomputeco/tablechat/cmd/tablechat/history"
	initcmder "github.com/papercomputeco/tablechat/cmd/tablechat/init"
	servecmder "github.com/papercomputeco/tablechat/cmd/tablechat/serve"
	sessionscmder "github.com/papercomputeco/tablechat/cmd/tablechat/sessions"
	uploadcmder "github.com/papercomputeco/tablechat/cmd/tablechat/upload"
	versioncmder "github.com/papercomputeco/tablechat/cmd/version"
	"github.com/papercomputeco/tablechat/pkg/cliui"
)

const tablechatLongDesc string = `tablechat lets you ask questions about a CSV, TSV or XLSX file and watch the
answer stream in.

Run the server, then chat against it:
  tablechat serve                 Run the API server
  tablechat upload sales.csv      Upload a table and start a session
  tablechat chat                  Chat about the uploaded table
  tablechat chat sales.csv        Upload and chat in one step`

const tablechatShortDesc string = "tablechat - chat with your tables"

func NewTablechatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tablechat",
		Short:        tablechatShortDesc,
		Long:         tablechatLongDesc,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor || os.Getenv("NO_COLOR") != "" {
				cliui.DisableColor()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .tablechat/ config directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(uploadcmder.NewUploadCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
