package sse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/sse"
)

// feedAll feeds every chunk in order and returns all emitted lines, including
// the final flush.
func feedAll(d *sse.LineDecoder, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		lines, err := d.Feed([]byte(c))
		Expect(err).NotTo(HaveOccurred())
		out = append(out, lines...)
	}
	return append(out, d.Close()...)
}

var _ = Describe("LineDecoder", func() {
	var d *sse.LineDecoder

	BeforeEach(func() {
		d = sse.NewLineDecoder()
	})

	It("returns complete lines and keeps the tail", func() {
		lines, err := d.Feed([]byte("one\ntwo\nthr"))
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"one", "two"}))
		Expect(d.Buffered()).To(Equal(3))

		lines, err = d.Feed([]byte("ee\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"three"}))
		Expect(d.Buffered()).To(BeZero())
	})

	It("reassembles a line split across many chunks", func() {
		Expect(feedAll(d, "da", "ta: ", "hel", "lo", "\n")).To(Equal([]string{"data: hello"}))
	})

	It("emits many lines delivered in one chunk in order", func() {
		Expect(feedAll(d, "a\nb\n\nc\n")).To(Equal([]string{"a", "b", "", "c"}))
	})

	It("ignores empty chunks", func() {
		lines, err := d.Feed(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(BeEmpty())

		lines, err = d.Feed([]byte{})
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(BeEmpty())
	})

	It("rejoins a multi-byte character split across chunks", func() {
		raw := []byte("data: 数据\n")
		// Split inside the first three-byte character.
		first, second := raw[:8], raw[8:]

		lines, err := d.Feed(first)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(BeEmpty())

		lines, err = d.Feed(second)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"data: 数据"}))
	})

	It("strips carriage returns from CRLF framing", func() {
		Expect(feedAll(d, "a\r\nb\r", "\n")).To(Equal([]string{"a", "b"}))
	})

	Describe("Close", func() {
		It("flushes an unterminated final line", func() {
			Expect(feedAll(d, "data: [DONE]")).To(Equal([]string{"data: [DONE]"}))
		})

		It("returns nothing when no fragment is buffered", func() {
			_, err := d.Feed([]byte("a\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(BeEmpty())
		})

		It("never emits a flushed line twice", func() {
			_, err := d.Feed([]byte("tail"))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Close()).To(Equal([]string{"tail"}))
			Expect(d.Close()).To(BeEmpty())
		})
	})

	Describe("line size limit", func() {
		It("fails once the unterminated tail exceeds the limit", func() {
			d.SetMaxLineSize(4)
			lines, err := d.Feed([]byte("ok\ntoolong"))
			Expect(err).To(MatchError(sse.ErrLineTooLong))
			Expect(lines).To(Equal([]string{"ok"}))
		})

		It("allows long lines when the limit is disabled", func() {
			d.SetMaxLineSize(0)
			lines, err := d.Feed([]byte("0123456789\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"0123456789"}))
		})
	})
})
