package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/shipsight/internal/ai"
	"github.com/KaramelBytes/shipsight/internal/analysis"
	"github.com/KaramelBytes/shipsight/internal/utils"
	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// Assistant answers questions about a snapshot through a completion service.
type Assistant struct {
	completer  ai.Completer
	tokenLimit int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAssistant wires a completer. tokenLimit caps the prompt size and
// timeout bounds each completion call.
func NewAssistant(c ai.Completer, tokenLimit int, timeout time.Duration, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{completer: c, tokenLimit: tokenLimit, timeout: timeout, logger: logger.Named("assistant")}
}

// ErrorReply is the assistant turn recorded when a completion fails.
func ErrorReply(err error) string {
	return fmt.Sprintf("❌ Sorry, I encountered an error: %v\n\nPlease try rephrasing your question.", err)
}

// Ask records the question, asks the completion service and records the
// answer. A failed completion is recorded as an apology turn and does not
// end the session, so the returned error covers only invalid input and
// ErrBusy while another question on sess is pending.
func (a *Assistant) Ask(ctx context.Context, sess *Session, snap *analysis.Snapshot, question string) (Message, error) {
	return a.ask(ctx, sess, snap, question, nil)
}

// AskStream is Ask with the answer handed to onDelta as the completion
// service produces it. A failure after partial output is reported through
// onDelta as the apology text.
func (a *Assistant) AskStream(ctx context.Context, sess *Session, snap *analysis.Snapshot, question string, onDelta func(string)) (Message, error) {
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return a.ask(ctx, sess, snap, question, onDelta)
}

func (a *Assistant) ask(ctx context.Context, sess *Session, snap *analysis.Snapshot, question string, onDelta func(string)) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}
	if !sess.IsOpen() {
		return Message{}, ErrClosed
	}
	if !sess.begin() {
		return Message{}, ErrBusy
	}
	defer sess.end()
	sess.Append(RoleUser, question)

	prompt := BuildContext(snap, question, a.tokenLimit)
	var (
		answer  string
		err     error
		emitted bool
	)
	if onDelta == nil {
		answer, err = a.complete(ctx, prompt)
	} else {
		answer, err = a.stream(ctx, prompt, func(d string) {
			emitted = true
			onDelta(d)
		})
	}
	if err != nil {
		fields := []zap.Field{zap.String("session", sess.ID), zap.Error(err)}
		if hint := ai.Hint(err); hint != "" {
			fields = append(fields, zap.String("hint", hint))
		}
		if ai.Transient(err) {
			a.logger.Warn("completion failed", fields...)
		} else {
			a.logger.Error("completion failed", fields...)
		}
		reply := ErrorReply(err)
		if onDelta != nil {
			if emitted {
				onDelta("\n\n")
			}
			onDelta(reply)
		}
		return sess.Append(RoleAssistant, reply), nil
	}
	return sess.Append(RoleAssistant, answer), nil
}

// detach bounds a completion by the configured timeout instead of the
// caller's cancellation.
func (a *Assistant) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return ctx, func() {}
}

// stream runs one completion through the streaming path when the completer
// has one, and returns the assembled answer.
func (a *Assistant) stream(ctx context.Context, prompt string, onDelta func(string)) (string, error) {
	sc, ok := a.completer.(ai.StreamCompleter)
	if !ok {
		out, err := a.complete(ctx, prompt)
		if err != nil {
			return "", err
		}
		onDelta(out)
		return out, nil
	}
	ctx, cancel := a.detach(ctx)
	defer cancel()
	start := time.Now()
	var sb strings.Builder
	err := sc.CompleteStream(ctx, prompt, func(d string) {
		sb.WriteString(d)
		onDelta(d)
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("the completion service returned an empty response")
	}
	a.logger.Debug("streamed completion done",
		zap.Int("prompt_tokens_est", utils.CountTokens(prompt)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// complete runs one completion. The call is detached from the caller's
// cancellation and bounded only by the configured timeout.
func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	if a.completer == nil {
		return "", errors.New("no AI provider configured")
	}
	ctx, cancel := a.detach(ctx)
	defer cancel()
	start := time.Now()
	out, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("the completion service returned an empty response")
	}
	a.logger.Debug("completion done",
		zap.Int("prompt_tokens_est", utils.CountTokens(prompt)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}
