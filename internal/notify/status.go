// Package notify edits a single per-request status message in Telegram as
// the pipeline advances. Edits are throttled so the chat API is not
// hammered, and every failure is swallowed: progress is cosmetic.
package notify

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/you/ytb2mp3/internal/logx"
	"github.com/you/ytb2mp3/internal/pipeline"
)

// Sender is the slice of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StatusMessage edits one existing message in place for every update.
type StatusMessage struct {
	bot       Sender
	chatID    int64
	messageID int
	limiter   *rate.Limiter
}

// NewStatusMessage wraps an already-sent message. minInterval bounds how
// often intermediate edits go out (0 = unthrottled); terminal stages always
// go out.
func NewStatusMessage(bot Sender, chatID int64, messageID int, minInterval time.Duration) *StatusMessage {
	return &StatusMessage{
		bot:       bot,
		chatID:    chatID,
		messageID: messageID,
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func stageText(st pipeline.Stage) string {
	switch st {
	case pipeline.StageDownloading:
		return "⬇️ Downloading audio…"
	case pipeline.StageConverting:
		return "🎵 Converting to MP3…"
	case pipeline.StageUploading:
		return "☁️ Uploading to pCloud…"
	case pipeline.StageDone:
		return "✅ Done!"
	default:
		return "Processing your request…"
	}
}

// Update implements pipeline.Notifier.
func (s *StatusMessage) Update(ctx context.Context, st pipeline.Stage) {
	if st != pipeline.StageDone && st != pipeline.StageFailed && !s.limiter.Allow() {
		return
	}
	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, stageText(st))
	if _, err := s.bot.Send(edit); err != nil {
		l := logx.FromCtx(ctx)
		l.Warn().Err(err).Str("stage", st.String()).Msg("status edit failed")
	}
}

// Fail replaces the status message with the final error text.
func (s *StatusMessage) Fail(ctx context.Context, text string) {
	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, text)
	if _, err := s.bot.Send(edit); err != nil {
		l := logx.FromCtx(ctx)
		l.Warn().Err(err).Msg("failure edit failed")
	}
}
