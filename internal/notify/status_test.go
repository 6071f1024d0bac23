package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/you/ytb2mp3/internal/notify"
	"github.com/you/ytb2mp3/internal/pipeline"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func editTexts(t *testing.T, sent []tgbotapi.Chattable) []string {
	t.Helper()
	var texts []string
	for _, c := range sent {
		edit, ok := c.(tgbotapi.EditMessageTextConfig)
		require.True(t, ok, "expected every update to be an edit, not a new message")
		texts = append(texts, edit.Text)
	}
	return texts
}

func TestUpdate_EditsSingleMessage(t *testing.T) {
	bot := &fakeSender{}
	s := notify.NewStatusMessage(bot, 10, 55, 0)

	ctx := context.Background()
	s.Update(ctx, pipeline.StageDownloading)
	s.Update(ctx, pipeline.StageConverting)
	s.Update(ctx, pipeline.StageDone)

	texts := editTexts(t, bot.sent)
	require.Len(t, texts, 3)
	require.Contains(t, texts[0], "Downloading")
	require.Contains(t, texts[1], "Converting")
	require.Contains(t, texts[2], "Done")

	for _, c := range bot.sent {
		edit := c.(tgbotapi.EditMessageTextConfig)
		require.Equal(t, int64(10), edit.ChatID)
		require.Equal(t, 55, edit.MessageID)
	}
}

func TestUpdate_ThrottlesIntermediateStages(t *testing.T) {
	bot := &fakeSender{}
	// one edit per hour: only the first intermediate update passes
	s := notify.NewStatusMessage(bot, 10, 55, time.Hour)

	ctx := context.Background()
	s.Update(ctx, pipeline.StageDownloading)
	s.Update(ctx, pipeline.StageConverting) // suppressed
	s.Update(ctx, pipeline.StageDone)       // terminal, always sent

	texts := editTexts(t, bot.sent)
	require.Len(t, texts, 2)
	require.Contains(t, texts[0], "Downloading")
	require.Contains(t, texts[1], "Done")
}

func TestUpdate_SendFailureIsSwallowed(t *testing.T) {
	bot := &fakeSender{err: errors.New("telegram: 429")}
	s := notify.NewStatusMessage(bot, 10, 55, 0)

	require.NotPanics(t, func() {
		s.Update(context.Background(), pipeline.StageDownloading)
	})
}

func TestFail_ReplacesStatusText(t *testing.T) {
	bot := &fakeSender{}
	s := notify.NewStatusMessage(bot, 10, 55, time.Hour)

	s.Fail(context.Background(), "Could not download the video.")

	texts := editTexts(t, bot.sent)
	require.Len(t, texts, 1)
	require.Equal(t, "Could not download the video.", texts[0])
}
