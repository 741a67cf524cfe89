// Package telegram is the transport layer of the bot: it polls the Bot API
// for updates, answers commands, and feeds media messages into the
// transcription pipeline while editing a progress message along the way.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/govorun-bot/govorun/internal/observe"
	"github.com/govorun-bot/govorun/internal/pipeline"
)

// Runner is the pipeline capability the bot needs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

// Config holds the transport settings.
type Config struct {
	// Token is the Bot API token.
	Token string

	// PollTimeout is the long-polling timeout for getUpdates.
	PollTimeout time.Duration

	// RestartDelay is how long to wait before restarting the polling loop
	// after it fails.
	RestartDelay time.Duration

	// Languages lists the advertised recognition languages in priority
	// order, for the welcome message.
	Languages []string
}

// Option is a functional option for configuring a Bot.
type Option func(*Bot)

// WithMetrics sets the metrics instance used for update recording.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bot) {
		if m != nil {
			b.metrics = m
		}
	}
}

// Bot polls Telegram and dispatches messages. One goroutine runs per media
// message so a slow pipeline run never blocks the update loop.
type Bot struct {
	api     *tgbotapi.BotAPI
	pipe    Runner
	cfg     Config
	metrics *observe.Metrics
}

// New authenticates against the Bot API and returns a ready Bot.
func New(cfg Config, pipe Runner, opts ...Option) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token must not be empty")
	}
	if pipe == nil {
		return nil, fmt.Errorf("telegram: pipeline runner must not be nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}

	b := &Bot{api: api, pipe: pipe, cfg: cfg}
	for _, o := range opts {
		o(b)
	}
	if b.metrics == nil {
		b.metrics = observe.DefaultMetrics()
	}

	slog.Info("telegram bot authenticated", "username", api.Self.UserName)
	return b, nil
}

// Run polls for updates until ctx is cancelled. A failed polling round is
// restarted after the configured delay instead of taking the process down.
func (b *Bot) Run(ctx context.Context) error {
	for {
		err := b.poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("telegram polling stopped, restarting",
			"err", err, "delay", b.cfg.RestartDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.cfg.RestartDelay):
		}
	}
}

// poll runs one polling round: it consumes the update channel until ctx is
// cancelled or the channel closes.
func (b *Bot) poll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telegram: update handling panicked: %v", r)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.cfg.PollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(u)

	stop := context.AfterFunc(ctx, b.api.StopReceivingUpdates)
	defer stop()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		b.handleMessage(ctx, update.Message)
	}
	return nil
}

// handleMessage dispatches one inbound message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.metrics.RecordTelegramUpdate(ctx, "command")
		b.handleCommand(msg)
		return
	}

	media, ok := mediaFrom(msg)
	if !ok {
		return
	}
	b.metrics.RecordTelegramUpdate(ctx, string(media.kind))

	go b.process(ctx, msg, media)
}

// handleCommand answers the known bot commands. Unknown commands are
// ignored.
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "start", "help":
		text = renderWelcome(b.cfg.Languages)
	case "status", "ping":
		text = renderStatus()
	default:
		return
	}
	b.reply(msg, text)
}

// process runs one media message through the pipeline, editing a progress
// message as the run advances and replacing it with the result.
func (b *Bot) process(ctx context.Context, msg *tgbotapi.Message, media mediaRef) {
	progress := b.reply(msg, renderStage(pipeline.StageFetching))
	if progress == 0 {
		return
	}

	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: media.fileID})
	if err != nil {
		slog.Error("telegram file lookup failed", "media_kind", media.kind, "err", err)
		b.edit(msg.Chat.ID, progress, renderOutcome(pipeline.Outcome{
			Status: pipeline.StatusStageFailed,
			Stage:  pipeline.StageFetching,
		}))
		return
	}

	out := b.pipe.Run(ctx, pipeline.Request{
		URL:  file.Link(b.api.Token),
		Kind: media.kind,
		Hint: media.hint,
		Notify: func(s pipeline.Stage) {
			// The progress message already shows the fetching text.
			if s == pipeline.StageFetching {
				return
			}
			b.edit(msg.Chat.ID, progress, renderStage(s))
		},
	})

	b.edit(msg.Chat.ID, progress, renderOutcome(out))
}

// reply sends text as a reply to msg and returns the sent message ID, or 0
// when sending failed.
func (b *Bot) reply(msg *tgbotapi.Message, text string) int {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyToMessageID = msg.MessageID
	sent, err := b.api.Send(m)
	if err != nil {
		slog.Error("telegram send failed", "chat", msg.Chat.ID, "err", err)
		return 0
	}
	return sent.MessageID
}

// edit replaces the text of a previously sent message.
func (b *Bot) edit(chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		slog.Warn("telegram edit failed", "chat", chatID, "err", err)
	}
}
