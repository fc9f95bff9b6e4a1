package session_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/session"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *session.Store
		now   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		store = session.NewStore(session.WithClock(func() time.Time { return now }))
	})

	It("creates an active session bound to a copy of the file info", func() {
		file := &transcript.FileInfo{Filename: "sales.csv", Rows: 3}
		sess, err := store.Create(ctx, file)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.ID).NotTo(BeEmpty())
		Expect(sess.Status).To(Equal(transcript.StatusActive))
		Expect(sess.CreatedAt).To(Equal(now))
		Expect(sess.Messages).To(BeEmpty())

		file.Filename = "changed.csv"
		got, err := store.Get(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.File.Filename).To(Equal("sales.csv"))
	})

	It("returns NotFoundError for unknown sessions", func() {
		_, err := store.Get(ctx, "nope")
		Expect(err).To(MatchError(session.NotFoundError{ID: "nope"}))
		Expect(session.IsNotFound(err)).To(BeTrue())

		Expect(store.Append(ctx, "nope", transcript.Message{})).To(MatchError("session not found: nope"))
		_, err = store.Delete(ctx, "nope")
		Expect(session.IsNotFound(err)).To(BeTrue())
	})

	It("appends messages and replaces the in-flight one by ID", func() {
		sess, _ := store.Create(ctx, nil)

		user := transcript.NewUserMessage("q")
		placeholder := transcript.NewAssistantPlaceholder()
		Expect(store.Append(ctx, sess.ID, user)).To(Succeed())
		Expect(store.Append(ctx, sess.ID, placeholder)).To(Succeed())

		now = now.Add(time.Minute)
		placeholder.Content = "answer"
		Expect(store.ReplaceMessage(ctx, sess.ID, placeholder)).To(Succeed())

		got, _ := store.Get(ctx, sess.ID)
		Expect(got.Messages).To(HaveLen(2))
		Expect(got.Messages[0].Content).To(Equal("q"))
		Expect(got.Messages[1].Content).To(Equal("answer"))
		Expect(got.UpdatedAt).To(Equal(now))
	})

	It("refuses to replace a message it does not hold", func() {
		sess, _ := store.Create(ctx, nil)
		err := store.ReplaceMessage(ctx, sess.ID, transcript.Message{ID: "ghost"})
		Expect(err).To(MatchError(session.ErrMessageNotFound))
	})

	It("hands out copies that do not alias the store", func() {
		sess, _ := store.Create(ctx, nil)
		Expect(store.Append(ctx, sess.ID, transcript.NewUserMessage("q"))).To(Succeed())

		got, _ := store.Get(ctx, sess.ID)
		got.Messages[0].Content = "mutated"

		again, _ := store.Get(ctx, sess.ID)
		Expect(again.Messages[0].Content).To(Equal("q"))
	})

	It("lists sessions oldest first", func() {
		a, _ := store.Create(ctx, nil)
		now = now.Add(time.Second)
		b, _ := store.Create(ctx, nil)

		list, err := store.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))
		Expect(list[0].ID).To(Equal(a.ID))
		Expect(list[1].ID).To(Equal(b.ID))
	})

	It("deletes sessions", func() {
		sess, _ := store.Create(ctx, &transcript.FileInfo{Filepath: "/tmp/x.csv"})
		removed, err := store.Delete(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed.File.Filepath).To(Equal("/tmp/x.csv"))

		_, err = store.Get(ctx, sess.ID)
		Expect(session.IsNotFound(err)).To(BeTrue())
	})

	It("cleans up sessions idle longer than the max age", func() {
		old, _ := store.Create(ctx, nil)
		now = now.Add(2 * time.Hour)
		fresh, _ := store.Create(ctx, nil)
		now = now.Add(30 * time.Minute)

		removed := store.Cleanup(ctx, time.Hour)
		Expect(removed).To(HaveLen(1))
		Expect(removed[0].ID).To(Equal(old.ID))

		_, err := store.Get(ctx, fresh.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is safe for concurrent appends", func() {
		sess, _ := store.Create(ctx, nil)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(store.Append(ctx, sess.ID, transcript.NewUserMessage("q"))).To(Succeed())
			}()
		}
		wg.Wait()

		got, _ := store.Get(ctx, sess.ID)
		Expect(got.Messages).To(HaveLen(50))
	})
})

var _ = Describe("Janitor", func() {
	It("removes idle sessions on each sweep and reports them", func() {
		store := session.NewStore()
		sess, _ := store.Create(context.Background(), &transcript.FileInfo{Filepath: "gone.csv"})

		removed := make(chan transcript.Session, 1)
		j := &session.Janitor{
			Store:    store,
			MaxAge:   time.Nanosecond,
			Interval: 5 * time.Millisecond,
			OnRemove: func(s transcript.Session) { removed <- s },
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- j.Run(ctx) }()

		var got transcript.Session
		Eventually(removed).Should(Receive(&got))
		Expect(got.ID).To(Equal(sess.ID))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("returns immediately when cleanup is disabled", func() {
		j := &session.Janitor{Store: session.NewStore()}
		Expect(j.Run(context.Background())).To(Succeed())
	})
})
