package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/tablechat/pkg/eventstream"
	"github.com/papercomputeco/tablechat/pkg/eventstream/kafka"
)

type recordingWriter struct {
	msgs     []kafkago.Message
	err      error
	closed   bool
	deadline bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() *eventstream.TurnCompletedEvent {
	return &eventstream.TurnCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnCompleted,
		EventID:       "evt_1",
		EmittedAt:     time.Unix(1735689600, 0).UTC(),
		SessionID:     "sess-1",
	}
}

var _ = Describe("Publisher", func() {
	It("requires a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(MatchError(kafka.ErrNoTopic))
	})

	It("requires brokers when no writer is given", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(MatchError(kafka.ErrNoBrokers))
	})

	It("builds a kafka-go writer from brokers", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("writes events keyed by session id", func() {
		w := &recordingWriter{}
		p, err := kafka.NewPublisher(kafka.Config{Topic: "turns", Writer: w})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.PublishTurn(context.Background(), sampleEvent())).To(Succeed())
		Expect(w.deadline).To(BeTrue())
		Expect(w.msgs).To(HaveLen(1))

		msg := w.msgs[0]
		Expect(string(msg.Key)).To(Equal("sess-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key:   kafka.HeaderEventType,
			Value: []byte(eventstream.EventTypeTurnCompleted),
		}))

		var got eventstream.TurnCompletedEvent
		Expect(json.Unmarshal(msg.Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal("evt_1"))

		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("rejects nil events", func() {
		p, _ := kafka.NewPublisher(kafka.Config{Topic: "turns", Writer: &recordingWriter{}})
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("wraps writer failures", func() {
		boom := errors.New("leader not available")
		p, _ := kafka.NewPublisher(kafka.Config{Topic: "turns", Writer: &recordingWriter{err: boom}})
		err := p.PublishTurn(context.Background(), sampleEvent())
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("turns"))
	})
})
