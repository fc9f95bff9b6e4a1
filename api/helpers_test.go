package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/api/worker"
	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/assistant/echo"
	"github.com/papercomputeco/tablechat/pkg/chat"
	"github.com/papercomputeco/tablechat/pkg/eventstream"
	"github.com/papercomputeco/tablechat/pkg/session"
	"github.com/papercomputeco/tablechat/pkg/sse"
)

const salesCSV = "region,revenue\nnorth,10\nsouth,30\neast,20\n"

// failingAssistant emits one response fragment and then fails.
type failingAssistant struct{}

func (failingAssistant) Name() string  { return "failing" }
func (failingAssistant) Model() string { return "" }

func (failingAssistant) Stream(_ context.Context, _ assistant.Prompt, emit assistant.EmitFunc) error {
	if err := emit(sse.Response("partial ")); err != nil {
		return err
	}
	return errors.New("model crashed")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnCompletedEvent
}

func (r *recordingPublisher) PublishTurn(_ context.Context, ev *eventstream.TurnCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func newTestServer(asst assistant.Assistant, pool *worker.Pool, mutate ...func(*Config)) *Server {
	cfg := Config{ListenAddr: ":0", UploadDir: GinkgoT().TempDir()}
	for _, m := range mutate {
		m(&cfg)
	}
	if asst == nil {
		asst = echo.NewAssistant(echo.Config{})
	}

	s, err := NewServer(cfg, session.NewStore(), asst, pool, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { s.cancel() })
	return s
}

func do(s *Server, req *http.Request) *http.Response {
	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func uploadRequest(filename, content string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(chat.UploadField, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = io.WriteString(part, content)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, "/api/upload", &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func upload(s *Server, filename, content string) chat.UploadResponse {
	resp := do(s, uploadRequest(filename, content))
	Expect(resp.StatusCode).To(Equal(http.StatusOK))

	var out chat.UploadResponse
	decode(resp, &out)
	return out
}

func chatRequest(sessionID, message string) *http.Request {
	body, err := json.Marshal(chat.ChatRequest{Message: message, SessionID: sessionID})
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, "/api/chat/stream", bytes.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readEvents(r io.Reader) []sse.ChatEvent {
	var events []sse.ChatEvent
	reader := sse.NewReader(r, nil)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
}

func decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
}

func joinText(events []sse.ChatEvent, typ sse.EventType) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == typ {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}
