package transcript_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

var _ = Describe("Accumulator", func() {
	var acc *transcript.Accumulator

	BeforeEach(func() {
		acc = transcript.NewAccumulator(transcript.NewAssistantPlaceholder())
	})

	It("mirrors the accumulated response into the message content", func() {
		msg, changed := acc.Apply(sse.Response("A"))
		Expect(changed).To(BeTrue())
		Expect(msg.Content).To(Equal("A"))

		msg, _ = acc.Apply(sse.Response("B"))
		Expect(msg.Content).To(Equal("AB"))

		msg, changed = acc.Apply(sse.Done())
		Expect(changed).To(BeTrue())
		Expect(msg.Content).To(Equal("AB"))

		turn := acc.Turn()
		Expect(turn.Finished).To(BeTrue())
		Expect(turn.Succeeded()).To(BeTrue())
		Expect(turn.Response).To(Equal("AB"))
	})

	It("mirrors the full thinking trace, not the delta", func() {
		acc.Apply(sse.Thinking("look"))
		msg, _ := acc.Apply(sse.Thinking("ing"))
		Expect(msg.Thinking).NotTo(BeNil())
		Expect(*msg.Thinking).To(Equal("looking"))
		Expect(msg.Content).To(BeEmpty())
	})

	It("grows thinking and response independently", func() {
		acc.Apply(sse.Thinking("t1"))
		acc.Apply(sse.Response("r1"))
		acc.Apply(sse.Thinking("t2"))
		msg, _ := acc.Apply(sse.Response("r2"))

		Expect(msg.ThinkingText()).To(Equal("t1t2"))
		Expect(msg.Content).To(Equal("r1r2"))
	})

	It("skips empty fragments", func() {
		_, changed := acc.Apply(sse.Response(""))
		Expect(changed).To(BeFalse())
		msg, changed := acc.Apply(sse.Thinking(""))
		Expect(changed).To(BeFalse())
		Expect(msg.Thinking).To(BeNil())
	})

	It("records a server error as a failed turn", func() {
		acc.Apply(sse.Response("partial"))
		msg, changed := acc.Apply(sse.Error("model unavailable"))
		Expect(changed).To(BeTrue())
		Expect(msg.Content).To(Equal("partial"))

		turn := acc.Turn()
		Expect(turn.Finished).To(BeTrue())
		Expect(turn.Outcome).To(Equal(transcript.OutcomeFailed))
		Expect(turn.Err).To(Equal("model unavailable"))
	})

	It("ignores every event after the first terminal event", func() {
		acc.Apply(sse.Response("final"))
		acc.Apply(sse.Done())

		for _, ev := range []sse.ChatEvent{sse.Response("late"), sse.Thinking("late"), sse.Error("late"), sse.Done()} {
			msg, changed := acc.Apply(ev)
			Expect(changed).To(BeFalse())
			Expect(msg.Content).To(Equal("final"))
			Expect(msg.Thinking).To(BeNil())
		}
		Expect(acc.Turn().Outcome).To(Equal(transcript.OutcomeSucceeded))
	})

	It("keeps only the first of two error events", func() {
		acc.Apply(sse.Error("first"))
		acc.Apply(sse.Error("second"))
		Expect(acc.Turn().Err).To(Equal("first"))
	})

	Describe("Finish", func() {
		It("marks a stream that ended without a terminal event incomplete", func() {
			acc.Apply(sse.Response("cut"))
			msg := acc.Finish(nil)
			Expect(msg.Content).To(Equal("cut"))
			Expect(acc.Turn().Outcome).To(Equal(transcript.OutcomeIncomplete))
			Expect(acc.Turn().Finished).To(BeTrue())
		})

		It("marks a transport failure as failed and keeps delivered text", func() {
			acc.Apply(sse.Response("kept"))
			msg := acc.Finish(errors.New("connection reset"))
			Expect(msg.Content).To(Equal("kept"))
			Expect(acc.Turn().Outcome).To(Equal(transcript.OutcomeFailed))
			Expect(acc.Turn().Err).To(Equal("connection reset"))
		})

		It("leaves a finished turn untouched", func() {
			acc.Apply(sse.Done())
			acc.Finish(errors.New("ignored"))
			Expect(acc.Turn().Outcome).To(Equal(transcript.OutcomeSucceeded))
			Expect(acc.Turn().Err).To(BeEmpty())
		})
	})

	It("hands out snapshots that later events do not mutate", func() {
		first, _ := acc.Apply(sse.Thinking("a"))
		acc.Apply(sse.Thinking("b"))
		Expect(*first.Thinking).To(Equal("a"))
	})
})

var _ = Describe("Outcome", func() {
	DescribeTable("String",
		func(o transcript.Outcome, want string) {
			Expect(o.String()).To(Equal(want))
		},
		Entry("pending", transcript.OutcomePending, "pending"),
		Entry("succeeded", transcript.OutcomeSucceeded, "succeeded"),
		Entry("failed", transcript.OutcomeFailed, "failed"),
		Entry("incomplete", transcript.OutcomeIncomplete, "incomplete"),
		Entry("unknown", transcript.Outcome(42), "unknown"),
	)
})
