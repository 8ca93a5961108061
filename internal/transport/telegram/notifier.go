package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
	"golang.org/x/time/rate"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/conv"
	"github.com/sandevgo/modbot/pkg/log"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

var _ core.Notifier = (*Notifier)(nil)

// Notifier delivers notices as Telegram messages. Sends share one limiter,
// a burst of per-mod search lines would otherwise trip flood control.
type Notifier struct {
	bot     *tele.Bot
	limiter *rate.Limiter
}

func NewNotifier(bot *tele.Bot) *Notifier {
	return &Notifier{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
	}
}

// Notice converts the text to Telegram HTML and sends it, chunked when it
// exceeds the message limit. Delivery problems are logged, never returned.
func (n *Notifier) Notice(ctx context.Context, target, text string) {
	logger := log.FromCtx(ctx)

	recipient, err := parseTarget(target)
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("invalid telegram target")
		return
	}

	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(text)))
	if html == "" {
		return
	}

	for i, chunk := range splitHTML(html, maxTelegramMsgLen) {
		if err := n.limiter.Wait(ctx); err != nil {
			return
		}
		if _, err := n.bot.Send(recipient, chunk, tele.ModeHTML); err != nil {
			logger.Error().Err(err).Int("chunk", i).Int("len", len(chunk)).Msg("failed to send telegram notice")
			return
		}
	}
}

func parseTarget(target string) (tele.Recipient, error) {
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram target must be a chat id: %w", err)
	}
	return tele.ChatID(id), nil
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the second half of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
