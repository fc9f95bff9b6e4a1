package chatcmder

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/api"
	"github.com/papercomputeco/tablechat/cmd/tablechat/cmdutil"
	"github.com/papercomputeco/tablechat/pkg/assistant/echo"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
	"github.com/papercomputeco/tablechat/pkg/session"
	"github.com/papercomputeco/tablechat/pkg/table"
)

func newRoot(out *bytes.Buffer, stdin string, args ...string) *cobra.Command {
	root := &cobra.Command{Use: "tablechat"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(NewChatCmd())
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"chat"}, args...))
	return root
}

var _ = Describe("chat command", func() {
	var (
		target    string
		configDir string
		csvPath   string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		server, err := api.NewServer(api.Config{UploadDir: GinkgoT().TempDir()}, session.NewStore(), echo.NewAssistant(echo.Config{}), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		ts := httptest.NewServer(server.Handler())
		DeferCleanup(ts.Close)

		target = ts.URL + "/api"
		configDir = GinkgoT().TempDir()
		csvPath = filepath.Join(GinkgoT().TempDir(), "sales.csv")
		Expect(os.WriteFile(csvPath, []byte("region,revenue\nnorth,10\nsouth,20\n"), 0o600)).To(Succeed())
		out = &bytes.Buffer{}
	})

	It("uploads the file and answers questions from stdin", func() {
		cmd := newRoot(out, "What is in this file?\n/exit\n", csvPath, "--api-target", target, "--config-dir", configDir)
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Overview of sales.csv"))
		Expect(out.String()).To(ContainSubstring("Analyzing your question"))

		state, err := dotdir.NewManager().LoadSessionState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.Filename).To(Equal("sales.csv"))
	})

	It("answers a single question against the saved session", func() {
		Expect(newRoot(out, "", csvPath, "--api-target", target, "--config-dir", configDir).Execute()).To(Succeed())
		out.Reset()

		cmd := newRoot(out, "", "-m", "summarize", "--no-thinking", "--api-target", target, "--config-dir", configDir)
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Overview of sales.csv"))
		Expect(out.String()).NotTo(ContainSubstring("Analyzing your question"))
	})

	It("fails without a file or saved session", func() {
		err := newRoot(out, "", "--api-target", target, "--config-dir", configDir).Execute()
		Expect(err).To(MatchError(cmdutil.ErrNoSession))
	})

	It("rejects unsupported files before contacting the server", func() {
		err := newRoot(out, "", "report.xls", "--api-target", target, "--config-dir", configDir).Execute()
		Expect(err).To(MatchError(table.ErrUnsupportedFormat))
	})

	It("requires a file for --watch", func() {
		Expect(newRoot(out, "", csvPath, "--api-target", target, "--config-dir", configDir).Execute()).To(Succeed())

		state, err := dotdir.NewManager().LoadSessionState(configDir)
		Expect(err).NotTo(HaveOccurred())

		err = newRoot(out, "", "--session", state.SessionID, "--watch", "--api-target", target, "--config-dir", GinkgoT().TempDir()).Execute()
		Expect(err).To(MatchError(ContainSubstring("--watch needs a source file")))
	})

	It("writes the raw stream to the trace file", func() {
		tracePath := filepath.Join(GinkgoT().TempDir(), "trace.log")
		cmd := newRoot(out, "hi\n", csvPath, "--api-target", target, "--config-dir", configDir, "--trace", tracePath)
		Expect(cmd.Execute()).To(Succeed())

		data, err := os.ReadFile(tracePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("data: [DONE]"))
	})
})
