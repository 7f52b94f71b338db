// ABOUTME: Long-poll session manager for the Telegram update stream.
// ABOUTME: Owns webhook reset, conflict recovery, and dispatch of incoming messages to a handler.

package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2389/coven-relay/internal/telegram"
)

// State describes where the poller is in its lifecycle.
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateResettingWebhook
	StatePolling
	StateRecovering
	StateFailed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateResettingWebhook:
		return "resetting_webhook"
	case StatePolling:
		return "polling"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Transport is the slice of the Telegram API the poller needs.
// *telegram.Client satisfies it.
type Transport interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context) error
	GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]telegram.Update, int64, error)
}

// Handler receives each incoming message. Implementations must not panic;
// dispatch is fire-and-forget and a slow handler never blocks the poll loop.
type Handler interface {
	OnMessage(ctx context.Context, msg *telegram.Message)
}

// Options tunes the poller's timing. Zero values take production defaults;
// tests shrink them.
type Options struct {
	ConnectTimeout  time.Duration // getMe budget at startup
	LockReleaseWait time.Duration // pause after webhook reset before first poll
	PollTimeout     time.Duration // long-poll wait per getUpdates call
	ErrorSleep      time.Duration // pause after a transient poll error
	ConflictWait    time.Duration // pause inside a recovery attempt
	RecoveryBackoff time.Duration // pause between failed recovery attempts
	MaxRecoveries   int           // consecutive conflict recoveries before giving up
	DrainLimit      int           // batch size when flushing the backlog
	DrainWait       time.Duration // server-side wait when flushing the backlog
}

func (o *Options) fillDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.LockReleaseWait <= 0 {
		o.LockReleaseWait = 5 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 30 * time.Second
	}
	if o.ErrorSleep <= 0 {
		o.ErrorSleep = time.Second
	}
	if o.ConflictWait <= 0 {
		o.ConflictWait = 3 * time.Second
	}
	if o.RecoveryBackoff <= 0 {
		o.RecoveryBackoff = 5 * time.Second
	}
	if o.MaxRecoveries <= 0 {
		o.MaxRecoveries = 3
	}
	if o.DrainLimit <= 0 {
		o.DrainLimit = 100
	}
	if o.DrainWait <= 0 {
		o.DrainWait = 30 * time.Second
	}
}

// Poller runs the long-poll loop against a Transport and hands messages to a
// Handler. Only one poller may run per bot token; a second consumer shows up
// as a 409 conflict, which the poller recovers from by resetting the webhook
// and restarting the stream.
type Poller struct {
	transport Transport
	handler   Handler
	opts      Options
	logger    *slog.Logger

	state  atomic.Int32
	offset int64
}

// New creates a poller. opts fields left zero take production defaults.
func New(transport Transport, handler Handler, opts Options) *Poller {
	opts.fillDefaults()
	return &Poller{
		transport: transport,
		handler:   handler,
		opts:      opts,
		logger:    slog.Default().With("component", "poller"),
	}
}

// State reports the current lifecycle state. Safe for concurrent use.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	old := State(p.state.Swap(int32(s)))
	if old != s {
		p.logger.Debug("state transition", "from", old.String(), "to", s.String())
	}
}

// Run connects, clears any webhook left by a previous deployment, drains the
// backlog, and polls until ctx is cancelled. It returns ctx.Err() on a clean
// shutdown and a non-nil error when startup or recovery fails. When recovery
// is exhausted the poller parks in the failed state until ctx is done rather
// than fighting the competing session.
func (p *Poller) Run(ctx context.Context) error {
	p.setState(StateConnecting)
	connectCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	me, err := p.transport.GetMe(connectCtx)
	cancel()
	if err != nil {
		p.setState(StateFailed)
		return fmt.Errorf("connecting to telegram: %w", err)
	}
	p.logger.Info("connected", "bot", me.Username, "bot_id", me.ID)

	p.setState(StateResettingWebhook)
	p.resetWebhook(ctx)
	if err := sleep(ctx, p.opts.LockReleaseWait); err != nil {
		p.setState(StateTerminated)
		return err
	}
	p.drain(ctx)

	p.setState(StatePolling)
	for {
		if ctx.Err() != nil {
			p.setState(StateTerminated)
			return ctx.Err()
		}

		updates, next, err := p.transport.GetUpdates(ctx, p.offset, p.opts.DrainLimit, p.opts.PollTimeout)
		switch {
		case ctx.Err() != nil:
			p.setState(StateTerminated)
			return ctx.Err()
		case telegram.IsConflict(err):
			if rerr := p.recover(ctx); rerr != nil {
				if ctx.Err() != nil {
					p.setState(StateTerminated)
					return ctx.Err()
				}
				p.setState(StateFailed)
				p.logger.Error("recovery exhausted, polling stopped", "error", rerr)
				<-ctx.Done()
				return rerr
			}
			p.setState(StatePolling)
			continue
		case telegram.IsPollTimeout(err):
			p.logger.Debug("poll window elapsed with no updates")
			continue
		case err != nil:
			p.logger.Warn("poll failed", "error", err)
			if serr := sleep(ctx, p.opts.ErrorSleep); serr != nil {
				p.setState(StateTerminated)
				return serr
			}
			continue
		}

		p.offset = next
		for i := range updates {
			msg := updates[i].Message
			if msg == nil {
				continue
			}
			go p.handler.OnMessage(ctx, msg)
		}
	}
}

// resetWebhook clears any webhook registration so long polling can take over.
// Both calls are individually bounded and best-effort; a failure here surfaces
// later as a poll error.
func (p *Poller) resetWebhook(ctx context.Context) {
	setCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	if err := p.transport.SetWebhook(setCtx, ""); err != nil {
		p.logger.Warn("clearing webhook url failed", "error", err)
	}
	cancel()

	delCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	if err := p.transport.DeleteWebhook(delCtx); err != nil {
		p.logger.Warn("deleting webhook failed", "error", err)
	}
	cancel()
}

// drain flushes the pending backlog without handling it, so messages sent
// while the bot was down are acknowledged rather than replayed.
func (p *Poller) drain(ctx context.Context) {
	updates, next, err := p.transport.GetUpdates(ctx, p.offset, p.opts.DrainLimit, p.opts.DrainWait)
	if err != nil {
		p.logger.Warn("draining backlog failed", "error", err)
		return
	}
	p.offset = next
	if len(updates) > 0 {
		p.logger.Info("drained stale updates", "count", len(updates))
	}
}

// recover handles a 409 conflict: another consumer holds the update stream.
// Each attempt deletes the webhook, waits for Telegram to release the session
// lock, and drains. A drain that comes back without a conflict means the
// stream is ours again.
func (p *Poller) recover(ctx context.Context) error {
	p.setState(StateRecovering)
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxRecoveries; attempt++ {
		p.logger.Warn("session conflict, recovering", "attempt", attempt, "max", p.opts.MaxRecoveries)

		if err := p.transport.DeleteWebhook(ctx); err != nil {
			p.logger.Warn("deleting webhook during recovery failed", "error", err)
		}
		if err := sleep(ctx, p.opts.ConflictWait); err != nil {
			return err
		}

		updates, next, err := p.transport.GetUpdates(ctx, p.offset, p.opts.DrainLimit, p.opts.DrainWait)
		if err == nil || telegram.IsPollTimeout(err) {
			if err == nil {
				p.offset = next
				if len(updates) > 0 {
					p.logger.Info("drained updates during recovery", "count", len(updates))
				}
			}
			p.logger.Info("recovered from session conflict", "attempt", attempt)
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleep(ctx, p.opts.RecoveryBackoff); err != nil {
			return err
		}
	}
	return fmt.Errorf("session conflict persisted after %d recovery attempts: %w", p.opts.MaxRecoveries, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
