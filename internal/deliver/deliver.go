// Package deliver builds and sends the final reply for a finished request:
// the MP3 itself when it fits under the Telegram ceiling, or the pCloud
// link message when it does not.
package deliver

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/you/ytb2mp3/internal/media"
	"github.com/you/ytb2mp3/internal/pcloud"
	"github.com/you/ytb2mp3/internal/pipeline"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	Bot     Sender
	Bitrate int
}

// Direct attaches the MP3 to the chat.
func (t *Telegram) Direct(_ context.Context, req pipeline.Request, info *media.VideoInfo, audioPath string, size int64) error {
	audio := tgbotapi.NewAudio(req.ChatID, tgbotapi.FilePath(audioPath))
	audio.Title = info.Title
	audio.Performer = info.Uploader
	audio.Duration = int(info.DurationSec)
	audio.Caption = fmt.Sprintf("%s\n%s @ %dkbps", info.Title, FormatSize(size), t.Bitrate)
	if _, err := t.Bot.Send(audio); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// CloudLink replies with the shareable link and its expiry.
func (t *Telegram) CloudLink(_ context.Context, req pipeline.Request, info *media.VideoInfo, size int64, res *pcloud.Result) error {
	text := fmt.Sprintf(
		"🎵 %s\nDuration: %s\nSize: %s @ %dkbps\n\nToo big to attach, download it here:\n%s\n\nLink expires %s.",
		info.Title,
		FormatDuration(info.DurationSec),
		FormatSize(size),
		t.Bitrate,
		res.Link,
		res.Expiry.Format("2006-01-02 15:04 MST"),
	)
	msg := tgbotapi.NewMessage(req.ChatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("send link message: %w", err)
	}
	return nil
}
