package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// VideoInfo is the metadata subset we need before downloading anything.
type VideoInfo struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Uploader       string  `json:"uploader"`
	DurationSec    float64 `json:"duration"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// Probe asks yt-dlp for video metadata without downloading.
func (d *Downloader) Probe(ctx context.Context, url string) (*VideoInfo, error) {
	args := []string{"--dump-json", "--no-warnings", "--no-playlist", url}
	cmd := exec.CommandContext(ctx, d.YtdlpPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("probe video: %w: %s", err, s)
		}
		return nil, fmt.Errorf("probe video: %w", err)
	}

	var info VideoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse video metadata: %w", err)
	}
	return &info, nil
}

// EstimateMP3Size predicts the transcoded size from duration and bitrate,
// with 1% overhead for headers and tags. The estimate is approximate for
// adaptive-format sources and must never drive delivery routing.
func EstimateMP3Size(durationSec float64, kbps int) int64 {
	return int64(float64(kbps) * 1000 / 8 * durationSec * 1.01)
}
