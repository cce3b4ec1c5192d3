package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// maxMessageLen es el límite de Telegram por mensaje.
const maxMessageLen = 4096

// sender es lo que Telegram necesita del bot. *tgbotapi.BotAPI lo cumple.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram implementa ports.Notifier enviando el ranking a un chat.
type Telegram struct {
	bot     sender
	chatID  int64
	limiter *rate.Limiter
	top     int
}

// NewTelegram conecta con la API de Telegram y valida el token.
func NewTelegram(token string, chatID int64, top int) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	me, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: get me: %w", err)
	}
	slog.Info("telegram notifier ready", "bot", me.UserName, "chat_id", chatID)
	return NewTelegramSender(bot, chatID, top), nil
}

// NewTelegramSender crea el notificador sobre un sender ya construido (tests).
func NewTelegramSender(bot sender, chatID int64, top int) *Telegram {
	if top <= 0 {
		top = 10
	}
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		top:     top,
	}
}

// Notify envía los mejores candidatos. Un ranking vacío no genera mensaje.
func (t *Telegram) Notify(ctx context.Context, r domain.Ranking) error {
	if len(r.Candidates) == 0 {
		slog.Debug("telegram: empty ranking, nothing sent", "run_id", r.RunID)
		return nil
	}

	for _, text := range splitMessage(FormatTelegram(r, t.top), maxMessageLen) {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("notify.Telegram.Notify: %w", err)
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("notify.Telegram.Notify: send: %w", err)
		}
	}
	return nil
}

// FormatTelegram construye el texto Markdown de un ranking con hasta top candidatos.
func FormatTelegram(r domain.Ranking, top int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Value bets* (%d)\n", len(r.Candidates))
	if r.Diagnostics.Partial {
		sb.WriteString("_partial pass_\n")
	}

	for i, c := range r.Candidates {
		if i >= top {
			fmt.Fprintf(&sb, "\n…and %d more", len(r.Candidates)-top)
			break
		}
		fmt.Fprintf(&sb, "\n%d. *%s*\n", i+1, escapeMarkdown(c.Event.Label()))
		fmt.Fprintf(&sb, "   %s | %s\n",
			escapeMarkdown(c.MarketLabel), c.Event.StartTime.UTC().Format("02 Jan 15:04 UTC"))
		fmt.Fprintf(&sb, "   @%.2f (%s) edge %+.1f%% return %.1f%%\n",
			c.ReferencePrice, escapeMarkdown(c.ReferenceSource), c.Edge*100, c.ReturnPct)
		fmt.Fprintf(&sb, "   model %.1f%% vs implied %.1f%%, %d books\n",
			c.ModelProbability*100, c.ImpliedProbability*100, c.Aggregation.Sources)
	}
	return sb.String()
}

// splitMessage parte el texto en trozos de como mucho maxLen bytes, cortando por líneas.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) > maxLen && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// escapeMarkdown escapa los caracteres especiales del Markdown legacy de Telegram.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}
