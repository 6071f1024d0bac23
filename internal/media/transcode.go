package media

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/you/ytb2mp3/internal/logx"
)

// Transcoder turns a downloaded source file into an MP3 at a fixed bitrate.
type Transcoder struct {
	FfmpegPath string
	Log        zerolog.Logger
}

func transcodeArgs(src, dst string, kbps int) []string {
	return []string{
		"-y",
		"-i", src,
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", kbps),
		dst,
	}
}

func (t *Transcoder) Transcode(ctx context.Context, src, dst string, kbps int) error {
	cmd := exec.CommandContext(ctx, t.FfmpegPath, transcodeArgs(src, dst, kbps)...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	logx.NewLineWriter(t.Log, "ffmpeg", zerolog.DebugLevel).Pipe(stderr)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return nil
}
