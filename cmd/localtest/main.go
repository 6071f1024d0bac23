package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/you/ytb2mp3/internal/config"
	"github.com/you/ytb2mp3/internal/deliver"
	"github.com/you/ytb2mp3/internal/logx"
	"github.com/you/ytb2mp3/internal/media"
	"github.com/you/ytb2mp3/internal/pcloud"
	"github.com/you/ytb2mp3/internal/pipeline"
	"github.com/you/ytb2mp3/internal/youtube"
)

// localtest runs the conversion pipeline on a URL without Telegram. The
// result stays in OUT_DIR (default ./out) instead of being delivered.

type printNotifier struct{}

func (printNotifier) Update(_ context.Context, st pipeline.Stage) {
	fmt.Println("stage:", st)
}

type printDeliverer struct{}

func (printDeliverer) Direct(_ context.Context, _ pipeline.Request, info *media.VideoInfo, audioPath string, size int64) error {
	fmt.Printf("done: %s (%s) -> %s\n", info.Title, deliver.FormatSize(size), audioPath)
	// keep the file around for inspection
	return os.Rename(audioPath, youtube.SafeFilename(info.Title)+".mp3")
}

func (printDeliverer) CloudLink(_ context.Context, _ pipeline.Request, info *media.VideoInfo, size int64, res *pcloud.Result) error {
	fmt.Printf("uploaded: %s (%s)\nlink: %s\nexpires: %s\n", info.Title, deliver.FormatSize(size), res.Link, res.Expiry)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/localtest <youtube-url>")
		return
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logx.Setup(logx.FromEnv("localtest"))

	pc := pcloud.New(cfg.PCloudUsername, cfg.PCloudPassword, cfg.PCloudBaseFolder, cfg.LinkExpireDays)
	p := &pipeline.Pipeline{
		TempDir:     cfg.TempDir,
		Bitrate:     cfg.BitrateKbps,
		AttachLimit: cfg.AttachLimitBytes,
		MaxEstimate: cfg.MaxEstimatedBytes,
		Prober:      &media.Downloader{YtdlpPath: cfg.YtdlpPath, Log: logger},
		Downloader:  &media.Downloader{YtdlpPath: cfg.YtdlpPath, Log: logger},
		Transcoder:  &media.Transcoder{FfmpegPath: cfg.FfmpegPath, Log: logger},
		Cloud:       pc,
		Deliver:     printDeliverer{},
	}

	req := pipeline.Request{ID: "localtest", ChatID: 0, UserID: 0, URL: os.Args[1], ReceivedAt: time.Now()}
	if err := p.Run(context.Background(), req, printNotifier{}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, "user reply would be:", pipeline.UserMessage(err))
		os.Exit(1)
	}
}
