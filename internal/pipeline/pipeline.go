// Package pipeline orchestrates one conversion request from validated URL to
// delivered MP3: probe, download, transcode, size check, route, deliver,
// cleanup. One Run per request; runs share nothing but the temp directory,
// which is partitioned per WorkItem.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/you/ytb2mp3/internal/janitor"
	"github.com/you/ytb2mp3/internal/logx"
	"github.com/you/ytb2mp3/internal/media"
	"github.com/you/ytb2mp3/internal/pcloud"
	"github.com/you/ytb2mp3/internal/youtube"
)

// Request is one inbound message that passed the gate and the URL check.
type Request struct {
	ID         string
	ChatID     int64
	UserID     int64
	URL        string
	ReceivedAt time.Time
}

type Prober interface {
	Probe(ctx context.Context, url string) (*media.VideoInfo, error)
}

type Downloader interface {
	Download(ctx context.Context, url, destDir string) (string, error)
}

type Transcoder interface {
	Transcode(ctx context.Context, src, dst string, kbps int) error
}

// Cloud relays an oversized file to remote storage and returns the link.
type Cloud interface {
	Store(ctx context.Context, localPath string, now time.Time) (*pcloud.Result, error)
}

// Deliverer sends the final reply, either the file itself or the link text.
type Deliverer interface {
	Direct(ctx context.Context, req Request, info *media.VideoInfo, audioPath string, size int64) error
	CloudLink(ctx context.Context, req Request, info *media.VideoInfo, size int64, res *pcloud.Result) error
}

type Pipeline struct {
	TempDir     string
	Bitrate     int
	AttachLimit int64
	MaxEstimate int64 // 0 disables the pre-flight ceiling

	Prober     Prober
	Downloader Downloader
	Transcoder Transcoder
	Cloud      Cloud
	Deliver    Deliverer
	Registry   *janitor.Registry // optional
}

// Run executes the full pipeline for one request. Whatever happens, every
// file the request created is gone when Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request, n Notifier) error {
	log := logx.FromCtx(ctx)

	info, err := p.Prober.Probe(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	log.Info().Str("title", info.Title).Float64("duration_s", info.DurationSec).Msg("video probed")

	// Fast-path rejection on the estimate only. Routing later uses the
	// measured file, never this number.
	if p.MaxEstimate > 0 {
		if est := media.EstimateMP3Size(info.DurationSec, p.Bitrate); est > p.MaxEstimate {
			return fmt.Errorf("%w: estimated %d bytes, ceiling %d", ErrTooLarge, est, p.MaxEstimate)
		}
	}

	wi, err := NewWorkItem(p.TempDir, req.ID, p.Bitrate)
	if err != nil {
		return err
	}
	if p.Registry != nil {
		p.Registry.Add(req.ID, wi.Cleanup)
		defer p.Registry.Remove(req.ID)
	}
	defer func() {
		if cerr := wi.Cleanup(); cerr != nil {
			log.Warn().Err(cerr).Str("dir", wi.Dir).Msg("workitem cleanup failed")
		}
	}()

	n.Update(ctx, StageDownloading)
	src, err := p.Downloader.Download(ctx, req.URL, wi.Dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	wi.SourcePath = src

	n.Update(ctx, StageConverting)
	out := filepath.Join(wi.Dir, youtube.SafeFilename(info.Title)+".mp3")
	if err := p.Transcoder.Transcode(ctx, src, out, p.Bitrate); err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	wi.AudioPath = out
	if err := wi.RemoveSource(); err != nil {
		log.Warn().Err(err).Msg("could not remove source file")
	}

	fi, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("%w: output missing: %v", ErrConversionFailed, err)
	}
	wi.Size = fi.Size()
	log.Info().Int64("bytes", wi.Size).Msg("mp3 produced")

	switch Route(wi.Size, p.AttachLimit) {
	case ModeDirect:
		if err := p.Deliver.Direct(ctx, req, info, out, wi.Size); err != nil {
			return fmt.Errorf("send attachment: %w", err)
		}
	case ModeCloudLink:
		n.Update(ctx, StageUploading)
		res, err := p.Cloud.Store(ctx, out, time.Now())
		if err != nil {
			var le *pcloud.LinkError
			if errors.As(err, &le) {
				return fmt.Errorf("%w: %w", ErrLinkGeneration, err)
			}
			if errors.Is(err, pcloud.ErrAuth) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		if err := p.Deliver.CloudLink(ctx, req, info, wi.Size, res); err != nil {
			return fmt.Errorf("send link: %w", err)
		}
	}

	n.Update(ctx, StageDone)
	return nil
}
