package uploadcmder_test

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tablechat/api"
	uploadcmder "github.com/papercomputeco/tablechat/cmd/tablechat/upload"
	"github.com/papercomputeco/tablechat/pkg/assistant/echo"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/dotdir"
	"github.com/papercomputeco/tablechat/pkg/session"
)

func newRoot(out *bytes.Buffer, args ...string) *cobra.Command {
	root := &cobra.Command{Use: "tablechat"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(uploadcmder.NewUploadCmd())
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"upload"}, args...))
	return root
}

var _ = Describe("upload command", func() {
	var (
		target    string
		configDir string
		dataFile  string
		out       *bytes.Buffer
	)

	BeforeEach(func() {
		server, err := api.NewServer(api.Config{UploadDir: GinkgoT().TempDir()}, session.NewStore(), echo.NewAssistant(echo.Config{}), nil, nil)
		Expect(err).NotTo(HaveOccurred())
		ts := httptest.NewServer(server.Handler())
		DeferCleanup(ts.Close)

		target = ts.URL + "/api"
		configDir = GinkgoT().TempDir()
		dataFile = filepath.Join(GinkgoT().TempDir(), "sales.csv")
		Expect(os.WriteFile(dataFile, []byte("region,revenue\nnorth,10\nsouth,30\n"), 0o644)).To(Succeed())
		out = &bytes.Buffer{}
	})

	It("uploads, prints a preview and saves the session", func() {
		Expect(newRoot(out, dataFile, "--api-target", target, "--config-dir", configDir).Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("sales.csv"))
		Expect(out.String()).To(ContainSubstring("| north | 10 |"))

		state, err := dotdir.NewManager().LoadSessionState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.SessionID).NotTo(BeEmpty())
		Expect(state.APITarget).To(Equal(target))
		Expect(state.SourcePath).To(Equal(dataFile))
	})

	It("skips saving with --no-save", func() {
		Expect(newRoot(out, dataFile, "--api-target", target, "--config-dir", configDir, "--no-save").Execute()).To(Succeed())

		state, err := dotdir.NewManager().LoadSessionState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("rejects unsupported files before contacting the server", func() {
		err := newRoot(out, "notes.pdf", "--api-target", target, "--config-dir", configDir).Execute()
		Expect(err).To(MatchError(ContainSubstring("unsupported")))
	})

	It("rebuilds the preview in column order", func() {
		t := uploadcmder.PreviewTable(&chat.UploadResponse{
			ColumnNames: []string{"b", "a"},
			PreviewData: []map[string]string{{"a": "1", "b": "2"}},
		})
		Expect(t.Rows).To(Equal([][]string{{"2", "1"}}))
	})
})
