package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/assistant/ollama"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/table"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Think    *bool  `json:"think"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// ndjsonServer answers /api/chat with the given lines and records the
// decoded request.
func ndjsonServer(captured *capturedRequest, lines ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.URL.Path).To(Equal("/api/chat"))
		Expect(json.NewDecoder(r.Body).Decode(captured)).To(Succeed())

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			fmt.Fprintln(w, l)
			w.(http.Flusher).Flush()
		}
	}))
}

func collect(a *ollama.Assistant, p assistant.Prompt) ([]sse.ChatEvent, error) {
	var events []sse.ChatEvent
	err := a.Stream(context.Background(), p, func(ev sse.ChatEvent) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

var _ = Describe("Assistant", func() {
	var prompt assistant.Prompt

	BeforeEach(func() {
		t, err := table.ParseBytes("a.csv", []byte("x\n1\n"))
		Expect(err).NotTo(HaveOccurred())
		prompt = assistant.Prompt{
			Question: "what is x?",
			History: []transcript.Message{
				transcript.NewUserMessage("hello"),
				{Role: transcript.RoleAssistant, Content: "hi"},
				{Role: transcript.RoleAssistant},
			},
			Table: t,
		}
	})

	It("applies defaults", func() {
		a, err := ollama.NewAssistant(ollama.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Name()).To(Equal("ollama"))
		Expect(a.Model()).To(Equal(ollama.DefaultModel))
	})

	It("streams thinking and content fields", func() {
		var req capturedRequest
		srv := ndjsonServer(&req,
			`{"message":{"role":"assistant","thinking":"let me see"},"done":false}`,
			`{"message":{"role":"assistant","content":"x is "},"done":false}`,
			`{"message":{"role":"assistant","content":"1"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
		)
		defer srv.Close()

		a, err := ollama.NewAssistant(ollama.Config{BaseURL: srv.URL, Model: "m", Think: true})
		Expect(err).NotTo(HaveOccurred())

		events, err := collect(a, prompt)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]sse.ChatEvent{
			sse.Thinking("let me see"),
			sse.Response("x is "),
			sse.Response("1"),
		}))

		Expect(req.Model).To(Equal("m"))
		Expect(req.Stream).To(BeTrue())
		Expect(req.Think).NotTo(BeNil())
		Expect(*req.Think).To(BeTrue())

		Expect(req.Messages).To(HaveLen(4))
		Expect(req.Messages[0].Role).To(Equal("system"))
		Expect(req.Messages[1].Content).To(Equal("hello"))
		Expect(req.Messages[2].Role).To(Equal("assistant"))
		Expect(req.Messages[3].Role).To(Equal("user"))
		Expect(req.Messages[3].Content).To(Equal("what is x?"))
	})

	It("splits inline think tags even across chunks", func() {
		var req capturedRequest
		srv := ndjsonServer(&req,
			`{"message":{"content":"<thi"},"done":false}`,
			`{"message":{"content":"nk>pondering</th"},"done":false}`,
			`{"message":{"content":"ink>answer <"},"done":false}`,
			`{"message":{"content":""},"done":true}`,
		)
		defer srv.Close()

		a, err := ollama.NewAssistant(ollama.Config{BaseURL: srv.URL})
		Expect(err).NotTo(HaveOccurred())

		events, err := collect(a, prompt)
		Expect(err).NotTo(HaveOccurred())
		Expect(req.Think).To(BeNil())
		Expect(events).To(Equal([]sse.ChatEvent{
			sse.Thinking("pondering"),
			sse.Response("answer "),
			sse.Response("<"),
		}))
	})

	It("skips malformed lines", func() {
		var req capturedRequest
		srv := ndjsonServer(&req,
			`not json`,
			`{"message":{"content":"ok"},"done":true}`,
		)
		defer srv.Close()

		a, _ := ollama.NewAssistant(ollama.Config{BaseURL: srv.URL})
		events, err := collect(a, prompt)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]sse.ChatEvent{sse.Response("ok")}))
	})

	It("returns in-stream errors", func() {
		var req capturedRequest
		srv := ndjsonServer(&req, `{"error":"model not found"}`)
		defer srv.Close()

		a, _ := ollama.NewAssistant(ollama.Config{BaseURL: srv.URL})
		_, err := collect(a, prompt)
		Expect(err).To(MatchError(ContainSubstring("model not found")))
	})

	It("returns an error for non-200 responses", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		a, _ := ollama.NewAssistant(ollama.Config{BaseURL: srv.URL})
		events, err := collect(a, prompt)
		Expect(err).To(MatchError(ContainSubstring("status 503")))
		Expect(events).To(BeEmpty())
	})
})
