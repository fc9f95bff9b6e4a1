package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/api/worker"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/eventstream"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

var _ = Describe("POST /api/chat/stream", func() {
	var server *Server

	BeforeEach(func() {
		server = newTestServer(nil, nil)
	})

	history := func(id string) chat.HistoryResponse {
		req, _ := http.NewRequest(http.MethodGet, "/api/chat/history/"+id, nil)
		resp := do(server, req)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out chat.HistoryResponse
		decode(resp, &out)
		return out
	}

	It("streams frames ending in done and stores the answer", func() {
		sess := upload(server, "sales.csv", salesCSV)

		resp := do(server, chatRequest(sess.SessionID, "describe the table"))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

		events := readEvents(resp.Body)
		Expect(events).NotTo(BeEmpty())
		Expect(events[len(events)-1]).To(Equal(sse.Done()))
		for _, ev := range events[:len(events)-1] {
			Expect(ev.IsTerminal()).To(BeFalse())
		}

		h := history(sess.SessionID)
		Expect(h.Messages).To(HaveLen(2))
		Expect(h.Messages[0].Role).To(Equal(transcript.RoleUser))
		Expect(h.Messages[0].Content).To(Equal("describe the table"))

		answer := h.Messages[1]
		Expect(answer.Role).To(Equal(transcript.RoleAssistant))
		Expect(answer.Content).To(Equal(joinText(events, sse.EventResponse)))
		Expect(answer.ThinkingText()).To(Equal(joinText(events, sse.EventThinking)))
	})

	It("ends with a single error frame when the assistant fails", func() {
		server = newTestServer(failingAssistant{}, nil)
		sess := upload(server, "sales.csv", salesCSV)

		events := readEvents(do(server, chatRequest(sess.SessionID, "sum revenue")).Body)
		Expect(events).To(Equal([]sse.ChatEvent{
			sse.Response("partial "),
			sse.Error("failed to process message: model crashed"),
		}))

		h := history(sess.SessionID)
		Expect(h.Messages[1].Content).To(Equal("partial "))
	})

	It("keeps earlier turns as history", func() {
		sess := upload(server, "sales.csv", salesCSV)
		readEvents(do(server, chatRequest(sess.SessionID, "first")).Body)
		readEvents(do(server, chatRequest(sess.SessionID, "second")).Body)

		h := history(sess.SessionID)
		Expect(h.Messages).To(HaveLen(4))
		Expect(h.Messages[2].Content).To(Equal("second"))
	})

	It("returns 404 for unknown sessions", func() {
		resp := do(server, chatRequest("missing", "hello"))
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("rejects blank messages and missing session ids", func() {
		sess := upload(server, "sales.csv", salesCSV)
		Expect(do(server, chatRequest(sess.SessionID, "   ")).StatusCode).To(Equal(http.StatusBadRequest))
		Expect(do(server, chatRequest("", "hello")).StatusCode).To(Equal(http.StatusBadRequest))

		Expect(history(sess.SessionID).Messages).To(BeEmpty())
	})

	It("publishes a turn event", func() {
		pub := &recordingPublisher{}
		pool, err := worker.NewPool(&worker.Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())

		server = newTestServer(nil, pool)
		sess := upload(server, "sales.csv", salesCSV)
		readEvents(do(server, chatRequest(sess.SessionID, "hello")).Body)
		Expect(pool.Close()).To(Succeed())

		Expect(pub.events).To(HaveLen(1))
		ev := pub.events[0]
		Expect(ev.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
		Expect(ev.SessionID).To(Equal(sess.SessionID))
		Expect(ev.Source.Provider).To(Equal("echo"))
		Expect(ev.RequestMeta.Path).To(Equal("/api/chat/stream"))
		Expect(ev.RequestMeta.Outcome).To(Equal("succeeded"))
		Expect(ev.Question.Content).To(Equal("hello"))
		Expect(ev.Answer.Content).NotTo(BeEmpty())
	})
})

var _ = Describe("Client against Server", func() {
	It("uploads, chats and reads history over HTTP", func() {
		server := newTestServer(nil, nil)
		ts := httptest.NewServer(server.Handler())
		DeferCleanup(ts.Close)

		ctx := context.Background()
		client := chat.NewClient(ts.URL + "/api")

		up, err := client.UploadReader(ctx, "sales.csv", strings.NewReader(salesCSV))
		Expect(err).NotTo(HaveOccurred())

		conv := transcript.NewConversation(client, transcript.Session{ID: up.SessionID})
		turn, err := conv.Send(ctx, "what is in the table?")
		Expect(err).NotTo(HaveOccurred())
		Expect(turn.Outcome).To(Equal(transcript.OutcomeSucceeded))
		Expect(turn.Response).To(ContainSubstring("sales.csv"))

		h, err := client.History(ctx, up.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Messages).To(HaveLen(2))
		Expect(h.Messages[1].Content).To(Equal(turn.Response))

		err = client.StartChat(ctx, "hi", "unknown", func(sse.ChatEvent) {
			Fail("no events expected")
		})
		Expect(chat.IsNotFound(err)).To(BeTrue())
	})
})
