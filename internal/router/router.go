// ABOUTME: Routes incoming Telegram messages through history, prompt assembly, and the AI backend.
// ABOUTME: Owns dedupe, the /reset command, reply formatting fallback, and user-facing error apologies.

package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/coven-relay/internal/backend"
	"github.com/2389/coven-relay/internal/dedupe"
	"github.com/2389/coven-relay/internal/markdown"
	"github.com/2389/coven-relay/internal/prompt"
	"github.com/2389/coven-relay/internal/store"
	"github.com/2389/coven-relay/internal/telegram"
)

// replyLimit stays under Telegram's 4096-character message cap with headroom
// for HTML tags added by formatting.
const replyLimit = 3500

// Sender is the outbound slice of the Telegram API the router needs.
// *telegram.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// Backend produces a completion for a prompt. *backend.Dispatcher satisfies it.
type Backend interface {
	Dispatch(ctx context.Context, prompt string) (string, error)
}

// Router turns each incoming message into one AI exchange: read history,
// build the prompt, dispatch, persist the exchange, and send the reply.
// It implements poller.Handler. Failures are reported to the user as an
// apology and never propagate to the poll loop.
type Router struct {
	store        store.Store
	backend      Backend
	sender       Sender
	seen         *dedupe.Cache
	historyLimit int
	logger       *slog.Logger
}

// New creates a router. The dedupe cache is owned by the caller.
func New(st store.Store, be Backend, sender Sender, seen *dedupe.Cache) *Router {
	return &Router{
		store:        st,
		backend:      be,
		sender:       sender,
		seen:         seen,
		historyLimit: store.DefaultHistoryLimit,
		logger:       slog.Default().With("component", "router"),
	}
}

// OnMessage handles one incoming message. It is called on its own goroutine
// by the poller and must never panic.
func (r *Router) OnMessage(ctx context.Context, msg *telegram.Message) {
	if msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	logger := r.logger.With("chat_id", msg.Chat.ID, "user_id", msg.From.ID, "message_id", msg.MessageID)

	if strings.HasPrefix(text, "/") {
		r.handleCommand(ctx, logger, msg, text)
		return
	}

	if r.seen.Seen(dedupe.MessageKey(msg.Chat.ID, msg.MessageID)) {
		logger.Debug("skipping duplicate message")
		return
	}

	if err := r.sender.SendTyping(ctx, msg.Chat.ID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	history, err := r.store.History(ctx, msg.From.ID, r.historyLimit)
	if err != nil {
		logger.Error("reading history failed", "error", err)
		r.apologize(ctx, logger, msg.Chat.ID, nil)
		return
	}

	reply, err := r.backend.Dispatch(ctx, prompt.Build(msg.From.ID, text, history))
	if err != nil {
		logger.Warn("dispatch failed", "error", err)
		r.apologize(ctx, logger, msg.Chat.ID, err)
		return
	}

	// The exchange enters history only once the backend has answered, so a
	// failed request never leaves a dangling user turn. A turn that cannot
	// be persisted aborts the exchange: the user gets the apology, not a
	// reply that history will never reflect.
	if _, err := r.store.Append(ctx, msg.From.ID, store.RoleUser, text); err != nil {
		logger.Error("persisting user turn failed", "error", err)
		r.apologize(ctx, logger, msg.Chat.ID, nil)
		return
	}
	if _, err := r.store.Append(ctx, msg.From.ID, store.RoleAssistant, reply); err != nil {
		logger.Error("persisting assistant turn failed", "error", err)
		r.apologize(ctx, logger, msg.Chat.ID, nil)
		return
	}

	r.send(ctx, logger, msg.Chat.ID, reply)
	logger.Info("exchange complete", "reply_chars", len(reply))
}

// handleCommand processes bot commands. Only /reset is recognized; everything
// else is left for other bots in the chat to claim.
func (r *Router) handleCommand(ctx context.Context, logger *slog.Logger, msg *telegram.Message, text string) {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	if cmd != "/reset" {
		logger.Debug("ignoring command", "command", cmd)
		return
	}

	if err := r.store.Clear(ctx, msg.From.ID); err != nil {
		logger.Error("clearing history failed", "error", err)
		r.apologize(ctx, logger, msg.Chat.ID, nil)
		return
	}
	logger.Info("conversation history cleared")
	if err := r.sender.SendMessage(ctx, msg.Chat.ID, "Conversation history cleared. Starting fresh.", ""); err != nil {
		logger.Warn("sending reset confirmation failed", "error", err)
	}
}

// send delivers a reply, formatting markdown as Telegram HTML. When Telegram
// rejects the formatting, or the reply exceeds the message cap, it falls back
// to plain text chunks.
func (r *Router) send(ctx context.Context, logger *slog.Logger, chatID int64, reply string) {
	if len(reply) <= replyLimit {
		err := r.sender.SendMessage(ctx, chatID, markdown.ToTelegramHTML(reply), "HTML")
		if err == nil {
			return
		}
		if !telegram.IsParseError(err) {
			logger.Warn("sending reply failed", "error", err)
			return
		}
		logger.Debug("formatted send rejected, retrying plain", "error", err)
	}

	for _, chunk := range chunkText(reply, replyLimit) {
		if err := r.sender.SendMessage(ctx, chatID, chunk, ""); err != nil {
			logger.Warn("sending reply chunk failed", "error", err)
			return
		}
	}
}

// apologize tells the user something went wrong, tailored to the failure
// kind when one is known. err may be nil for storage failures.
func (r *Router) apologize(ctx context.Context, logger *slog.Logger, chatID int64, err error) {
	text := "Sorry, I ran into a problem processing your message. Please try again."
	if kind, ok := backend.KindOf(err); ok {
		switch kind {
		case backend.KindTimeout:
			text = "Sorry, the AI took too long to respond. Please try again."
		case backend.KindRateLimit:
			text = "Sorry, the AI backend is rate limiting me right now. Please try again in a moment."
		case backend.KindAuth:
			text = "Sorry, the AI backend rejected my credentials. Please check the relay configuration."
		}
	}
	if serr := r.sender.SendMessage(ctx, chatID, text, ""); serr != nil {
		logger.Warn("sending apology failed", "error", serr)
	}
}

// chunkText splits s into pieces of at most limit bytes, breaking at the last
// newline inside the window when there is one. Splits land on rune boundaries.
func chunkText(s string, limit int) []string {
	var chunks []string
	for len(s) > limit {
		cut := limit
		if i := strings.LastIndexByte(s[:limit], '\n'); i > 0 {
			cut = i
		} else {
			for cut > 0 && !isRuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, strings.TrimRight(s[:cut], "\n"))
		s = strings.TrimLeft(s[cut:], "\n")
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

func isRuneStart(b byte) bool {
	return b&0xc0 != 0x80
}
