package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/modbot/internal/config"
	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

const baseContextKey = "base_context"

type Bot struct {
	bot      *tele.Bot
	notifier *Notifier
	router   core.CmdRouter
	ownerID  int64
}

func NewBot(ctx context.Context, cfg *config.TelegramConfig) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		notifier: NewNotifier(b),
		ownerID:  cfg.OwnerID,
	}

	// Carry the process context into handlers so they log through it.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: only the owner may drive the bot.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender().ID != bot.ownerID {
				return nil // Ignore unauthorized users
			}
			return next(c)
		}
	})

	return bot, nil
}

// Notifier is the outbound notice channel of this transport.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// HandleCommands registers the command router for incoming text. Must be
// called before Start.
func (b *Bot) HandleCommands(router core.CmdRouter) {
	b.router = router
	b.bot.Handle(tele.OnText, b.handleMessage)
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

// replyTarget picks where notices for this message go. Group traffic is
// answered in the group, direct messages go back to the sender.
func replyTarget(c tele.Context) string {
	if c.Chat().Type == tele.ChatPrivate {
		return strconv.FormatInt(c.Sender().ID, 10)
	}
	return strconv.FormatInt(c.Chat().ID, 10)
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	target := replyTarget(c)

	_ = c.Notify(tele.Typing)

	reply, handled := b.router.Execute(ctx, target, c.Text())
	if !handled {
		// Plain group chatter stays unanswered, a direct message gets a hint.
		if c.Chat().Type == tele.ChatPrivate {
			b.notifier.Notice(ctx, target, fmt.Sprintf("Type /help to see what %s can do.", core.BotName))
		}
		return nil
	}

	if reply != "" {
		b.notifier.Notice(ctx, target, reply)
	}
	return nil
}
