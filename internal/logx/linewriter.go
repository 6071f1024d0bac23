package logx

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"
)

// LineWriter turns stream output (yt-dlp / ffmpeg stderr) into per-line
// zerolog events at a given level.
type LineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func NewLineWriter(logger zerolog.Logger, tool string, level zerolog.Level) *LineWriter {
	return &LineWriter{logger: logger.With().Str("tool", tool).Logger(), level: level}
}

func (lw *LineWriter) Pipe(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lw.logger.WithLevel(lw.level).Msg(sc.Text())
	}
}
