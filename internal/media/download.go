// Package media wraps the external tools this bot delegates to: yt-dlp for
// retrieval and metadata, ffmpeg for the MP3 transcode. Both are invoked as
// subprocesses; their stderr is piped into the structured log.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/you/ytb2mp3/internal/logx"
)

// Downloader fetches the best available audio stream into a caller-owned
// directory.
type Downloader struct {
	YtdlpPath string
	Log       zerolog.Logger
}

func downloadArgs(url, destDir string) []string {
	return []string{
		"-f", "bestaudio/best",
		"-o", filepath.Join(destDir, "source.%(ext)s"),
		"--no-warnings",
		"--no-playlist",
		"--print", "after_move:filepath",
		url,
	}
}

// Download runs yt-dlp and returns the path of the fetched source file.
func (d *Downloader) Download(ctx context.Context, url, destDir string) (string, error) {
	cmd := exec.CommandContext(ctx, d.YtdlpPath, downloadArgs(url, destDir)...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	// Drain stderr into the log before Wait closes the pipe.
	logx.NewLineWriter(d.Log, "yt-dlp", zerolog.DebugLevel).Pipe(stderr)
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}

	// yt-dlp prints the final path thanks to --print after_move:filepath;
	// take the last non-empty line.
	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("download audio: yt-dlp reported no output file")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("download audio: reported file missing: %w", err)
	}
	return path, nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
