package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session state", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no session was recorded", func() {
		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("saves and loads the session pointer", func() {
		uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		Expect(m.SaveSessionState(&dotdir.SessionState{
			SessionID:  "sess-1",
			APITarget:  "http://localhost:8000/api",
			Filename:   "sales.csv",
			UploadedAt: uploaded,
		}, tmpDir)).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, "session.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).To(Equal("sess-1"))
		Expect(state.Filename).To(Equal("sales.csv"))
		Expect(state.UploadedAt.Equal(uploaded)).To(BeTrue())
	})

	It("treats a state without a session id as absent", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(`{"filename":"x.csv"}`), 0o600)).To(Succeed())

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("returns an error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("refuses to save a nil state", func() {
		Expect(m.SaveSessionState(nil, tmpDir)).To(MatchError("cannot save nil session state"))
	})

	It("clears the recorded session", func() {
		Expect(m.SaveSessionState(&dotdir.SessionState{SessionID: "sess-1"}, tmpDir)).To(Succeed())
		Expect(m.ClearSessionState(tmpDir)).To(Succeed())

		state, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())

		// Clearing twice is fine.
		Expect(m.ClearSessionState(tmpDir)).To(Succeed())
	})
})
