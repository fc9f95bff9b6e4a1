package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	historycmder "github.com/papercomputeco/tablechat/cmd/tablechat/history"
	"github.com/papercomputeco/tablechat/pkg/cliui"
	"github.com/papercomputeco/tablechat/pkg/logger"
	"github.com/papercomputeco/tablechat/pkg/sse"
	"github.com/papercomputeco/tablechat/pkg/transcript"
)

const helpText = `Commands:
  /history   show the conversation so far
  /reset     upload the file again and start a fresh session
  /help      show this help
  /exit      leave the chat`

// replOptions configures a repl.
type replOptions struct {
	Out    io.Writer
	Logger *slog.Logger

	// Interactive prints a prompt before reading each line.
	Interactive bool

	// Live writes response fragments as they arrive instead of rendering the
	// complete answer once the turn finishes.
	Live bool

	// Render formats finished answers as terminal markdown.
	Render bool
	Width  int

	ShowThinking bool

	// Reupload sends the source file again and returns the new session. Nil
	// when the chat was started without a local file.
	Reupload func(ctx context.Context) (transcript.Session, error)

	// TurnContext derives the context a single Send runs under, typically one
	// cancelled by Ctrl-C. Nil uses the parent context.
	TurnContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

// repl reads questions line by line and prints streamed replies.
type repl struct {
	conv *transcript.Conversation
	opts replOptions
	log  *slog.Logger

	// outMu serializes writes from the turn and the file watcher.
	outMu sync.Mutex
	out   io.Writer

	sawThinking bool
	sawResponse bool
	sawError    bool

	pendingMu sync.Mutex
	pending   *transcript.Session
}

func newRepl(conv *transcript.Conversation, opts replOptions) *repl {
	r := &repl{
		conv: conv,
		opts: opts,
		log:  logger.OrNop(opts.Logger),
		out:  opts.Out,
	}
	if r.out == nil {
		r.out = io.Discard
	}
	conv.Subscribe(r.observe)
	return r
}

// Run processes lines from in until EOF or /exit.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), sse.DefaultMaxLineSize)

	for {
		r.prompt()
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			r.printf("\n")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printError(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.Ask(ctx, line); err != nil {
			r.printError(err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Ask sends one question and waits for the reply to finish.
func (r *repl) Ask(ctx context.Context, question string) error {
	turnCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.opts.TurnContext != nil {
		turnCtx, cancel = r.opts.TurnContext(ctx)
	}
	defer cancel()

	_, err := r.conv.Send(turnCtx, question)
	r.applyPendingReset()

	if errors.Is(err, context.Canceled) {
		r.printf("%s\n", cliui.DimStyle.Render("(cancelled)"))
		return nil
	}
	return err
}

func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, _, _ := strings.Cut(line, " ")
	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		r.printf("%s\n", helpText)

	case "/history":
		snap := r.conv.Snapshot()
		if len(snap.Messages) == 0 {
			r.printf("%s\n", cliui.DimStyle.Render("No messages yet."))
			return false, nil
		}
		r.outMu.Lock()
		historycmder.PrintMessages(r.out, snap.Messages, historycmder.Options{
			Thinking: r.opts.ShowThinking,
			Render:   r.opts.Render,
			Width:    r.opts.Width,
		})
		r.outMu.Unlock()

	case "/reset":
		return false, r.reset(ctx)

	default:
		r.printf("%s %s\n", cliui.ErrorStyle.Render("unknown command"), name)
		r.printf("%s\n", helpText)
	}
	return false, nil
}

func (r *repl) reset(ctx context.Context) error {
	if r.opts.Reupload == nil {
		current := r.conv.Snapshot()
		if err := r.conv.Reset(transcript.Session{ID: current.ID, File: current.File, Status: current.Status}); err != nil {
			return err
		}
		r.printf("%s\n", cliui.DimStyle.Render("Cleared the local view. Start the chat with a file to get a fresh server session."))
		return nil
	}

	sess, err := r.opts.Reupload(ctx)
	if err != nil {
		return err
	}
	if err := r.conv.Reset(sess); err != nil {
		return err
	}
	r.printf("  %s New session %s\n", cliui.SuccessMark, cliui.IDStyle.Render(sess.ID))
	return nil
}

// FileChanged re-uploads the source file and rebinds the conversation. A
// reply still streaming keeps its session; the switch happens after it ends.
func (r *repl) FileChanged(ctx context.Context) {
	if r.opts.Reupload == nil {
		return
	}

	r.printf("\n  %s\n", cliui.DimStyle.Render("Source file changed, uploading again"))
	sess, err := r.opts.Reupload(ctx)
	if err != nil {
		r.printError(err)
		return
	}

	err = r.conv.Reset(sess)
	switch {
	case errors.Is(err, transcript.ErrInFlight):
		r.pendingMu.Lock()
		r.pending = &sess
		r.pendingMu.Unlock()
		r.log.Debug("deferring session switch until the reply finishes", "session_id", sess.ID)
	case err != nil:
		r.printError(err)
	default:
		r.printf("  %s New session %s\n", cliui.SuccessMark, cliui.IDStyle.Render(sess.ID))
		r.prompt()
	}
}

func (r *repl) applyPendingReset() {
	r.pendingMu.Lock()
	sess := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	if sess == nil {
		return
	}
	if err := r.conv.Reset(*sess); err != nil {
		r.printError(err)
		return
	}
	r.printf("  %s New session %s\n", cliui.SuccessMark, cliui.IDStyle.Render(sess.ID))
}

// observe prints conversation updates. It runs on the goroutine calling Send.
func (r *repl) observe(u transcript.Update) {
	switch u.Kind {
	case transcript.UpdateMessageAdded:
		if u.Message.Role == transcript.RoleAssistant {
			r.sawThinking, r.sawResponse, r.sawError = false, false, false
			r.printf("%s\n", cliui.NameStyle.Render("assistant>"))
		}

	case transcript.UpdateMessageChanged:
		switch u.Delta.Type {
		case sse.EventThinking:
			if !r.opts.ShowThinking {
				return
			}
			r.sawThinking = true
			r.printf("%s", styleLines(cliui.ThinkingStyle.Render, u.Delta.Text))

		case sse.EventResponse:
			if !r.opts.Live {
				return
			}
			if r.sawThinking && !r.sawResponse {
				r.printf("\n\n")
			}
			r.sawResponse = true
			r.printf("%s", u.Delta.Text)
		}

	case transcript.UpdateError:
		r.sawError = true
		if r.sawThinking || r.sawResponse {
			r.printf("\n")
		}
		r.printf("%s %s\n", cliui.ErrorStyle.Render("error:"), u.Turn.Err)

	case transcript.UpdateTurnFinished:
		r.finishTurn(u.Turn)
	}
}

func (r *repl) finishTurn(turn transcript.Turn) {
	if turn.Outcome == transcript.OutcomeFailed {
		// Server errors were printed by UpdateError; transport errors come
		// back from Send and are printed by the caller.
		if !r.sawError && (r.sawThinking || r.sawResponse) {
			r.printf("\n")
		}
		return
	}

	switch {
	case r.opts.Live:
		if r.sawThinking || r.sawResponse {
			r.printf("\n")
		}
	case turn.Response != "":
		if r.sawThinking {
			r.printf("\n")
		}
		r.printf("%s\n", r.renderAnswer(turn.Response))
	}

	if turn.Outcome == transcript.OutcomeIncomplete {
		r.printf("%s\n", cliui.DimStyle.Render("(the stream ended before the reply finished)"))
	}
}

func (r *repl) renderAnswer(content string) string {
	if !r.opts.Render {
		return content
	}
	rendered, err := cliui.RenderMarkdownWidth(content, r.opts.Width)
	if err != nil {
		r.log.Debug("rendering markdown", "error", err)
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (r *repl) prompt() {
	if r.opts.Interactive {
		r.printf("\n%s ", cliui.PromptStyle.Render("you>"))
	}
}

func (r *repl) printError(err error) {
	r.printf("%s %v\n", cliui.ErrorStyle.Render("error:"), err)
}

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// styleLines applies render to each line separately so multi-line fragments
// are not padded into a block.
func styleLines(render func(...string) string, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = render(line)
		}
	}
	return strings.Join(lines, "\n")
}
