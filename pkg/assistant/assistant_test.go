package assistant_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

var _ = Describe("Prompt", func() {
	Describe("SystemPrompt", func() {
		It("describes the file and columns", func() {
			t, err := table.ParseBytes("sales.csv", []byte("region,revenue\nnorth,10\nsouth,30\n"))
			Expect(err).NotTo(HaveOccurred())

			p := assistant.Prompt{
				Question: "total revenue?",
				File:     &transcript.FileInfo{Filename: "sales.csv", Size: "30B"},
				Table:    t,
			}

			out := p.SystemPrompt()
			Expect(out).To(ContainSubstring("File: sales.csv (30B)"))
			Expect(out).To(ContainSubstring("Rows: 2"))
			Expect(out).To(ContainSubstring("Columns: 2"))
			Expect(out).To(ContainSubstring("- revenue (integer, 2 non-empty, min 10, max 30, mean 20)"))
			Expect(out).To(ContainSubstring("| north | 10 |"))
		})

		It("omits the table sections without a table", func() {
			out := assistant.Prompt{Question: "hi"}.SystemPrompt()
			Expect(out).To(ContainSubstring("data analyst"))
			Expect(out).NotTo(ContainSubstring("Rows:"))
		})
	})
})
