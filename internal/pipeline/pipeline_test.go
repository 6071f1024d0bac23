package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/you/ytb2mp3/internal/media"
	"github.com/you/ytb2mp3/internal/pcloud"
	"github.com/you/ytb2mp3/internal/pipeline"
)

/* ---------------------- fakes ---------------------- */

type fakeProber struct {
	info *media.VideoInfo
	err  error
}

func (f *fakeProber) Probe(context.Context, string) (*media.VideoInfo, error) {
	return f.info, f.err
}

type fakeDownloader struct {
	err    error
	called bool
}

func (f *fakeDownloader) Download(_ context.Context, _ string, destDir string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(destDir, "source.webm")
	if err := os.WriteFile(p, []byte("video-bytes"), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

type fakeTranscoder struct {
	outBytes int
	err      error
}

func (f *fakeTranscoder) Transcode(_ context.Context, _, dst string, _ int) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, make([]byte, f.outBytes), 0o644)
}

type fakeCloud struct {
	res    *pcloud.Result
	err    error
	called bool
}

func (f *fakeCloud) Store(context.Context, string, time.Time) (*pcloud.Result, error) {
	f.called = true
	return f.res, f.err
}

type fakeDeliverer struct {
	directPath string
	directSize int64
	linkRes    *pcloud.Result
}

func (f *fakeDeliverer) Direct(_ context.Context, _ pipeline.Request, _ *media.VideoInfo, audioPath string, size int64) error {
	f.directPath = audioPath
	f.directSize = size
	return nil
}

func (f *fakeDeliverer) CloudLink(_ context.Context, _ pipeline.Request, _ *media.VideoInfo, _ int64, res *pcloud.Result) error {
	f.linkRes = res
	return nil
}

type stageRecorder struct{ stages []pipeline.Stage }

func (s *stageRecorder) Update(_ context.Context, st pipeline.Stage) {
	s.stages = append(s.stages, st)
}

/* ---------------------- helpers ---------------------- */

func testInfo() *media.VideoInfo {
	return &media.VideoInfo{ID: "dQw4w9WgXcQ", Title: "Test Video", DurationSec: 60}
}

func newPipeline(t *testing.T, tc *fakeTranscoder, cloud *fakeCloud, limit int64) (*pipeline.Pipeline, *fakeDownloader, *fakeDeliverer, string) {
	t.Helper()
	tempDir := t.TempDir()
	dl := &fakeDownloader{}
	del := &fakeDeliverer{}
	p := &pipeline.Pipeline{
		TempDir:     tempDir,
		Bitrate:     128,
		AttachLimit: limit,
		Prober:      &fakeProber{info: testInfo()},
		Downloader:  dl,
		Transcoder:  tc,
		Cloud:       cloud,
		Deliver:     del,
	}
	return p, dl, del, tempDir
}

func req() pipeline.Request {
	return pipeline.Request{ID: "01TESTREQUEST", ChatID: 10, UserID: 20, URL: "https://youtu.be/dQw4w9WgXcQ", ReceivedAt: time.Now()}
}

func residualFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

/* ---------------------- scenarios ---------------------- */

func TestRun_SmallFileGoesDirect(t *testing.T) {
	// given: a 10MB output under a 49MB ceiling
	cloud := &fakeCloud{}
	p, _, del, tempDir := newPipeline(t, &fakeTranscoder{outBytes: 10 << 20}, cloud, 49<<20)
	rec := &stageRecorder{}

	// when
	err := p.Run(context.Background(), req(), rec)

	// then
	require.NoError(t, err)
	require.Equal(t, int64(10<<20), del.directSize)
	require.Contains(t, del.directPath, "Test_Video.mp3")
	require.False(t, cloud.called)
	require.Empty(t, residualFiles(t, tempDir), "no temp files may survive the run")
	require.Equal(t, []pipeline.Stage{pipeline.StageDownloading, pipeline.StageConverting, pipeline.StageDone}, rec.stages)
}

func TestRun_LargeFileGoesToCloud(t *testing.T) {
	// given: an 80MB output over a 49MB ceiling
	expiry := time.Now().AddDate(0, 0, 7)
	cloud := &fakeCloud{res: &pcloud.Result{RemotePath: "/b/2026-09-01/Test_Video.mp3", Link: "https://u.pcloud.link/x", Expiry: expiry}}
	p, _, del, tempDir := newPipeline(t, &fakeTranscoder{outBytes: 80 << 20}, cloud, 49<<20)
	rec := &stageRecorder{}

	err := p.Run(context.Background(), req(), rec)

	require.NoError(t, err)
	require.True(t, cloud.called)
	require.NotNil(t, del.linkRes)
	require.Equal(t, "https://u.pcloud.link/x", del.linkRes.Link)
	require.Equal(t, expiry, del.linkRes.Expiry)
	require.Empty(t, residualFiles(t, tempDir))
	require.Contains(t, rec.stages, pipeline.StageUploading)
}

func TestRun_BoundaryGoesDirect(t *testing.T) {
	// exactly at the ceiling → direct attachment
	cloud := &fakeCloud{}
	limit := int64(1 << 20)
	p, _, del, _ := newPipeline(t, &fakeTranscoder{outBytes: 1 << 20}, cloud, limit)

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.NoError(t, err)
	require.False(t, cloud.called)
	require.Equal(t, limit, del.directSize)
}

func TestRun_TranscodeFailureCleansEverything(t *testing.T) {
	// given: ffmpeg missing
	p, _, _, tempDir := newPipeline(t, &fakeTranscoder{err: errors.New("exec: ffmpeg: not found")}, &fakeCloud{}, 49<<20)

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrConversionFailed)
	// the downloaded source must not leak either
	require.Empty(t, residualFiles(t, tempDir))
}

func TestRun_DownloadFailure(t *testing.T) {
	p, dl, _, tempDir := newPipeline(t, &fakeTranscoder{}, &fakeCloud{}, 49<<20)
	dl.err = errors.New("network unreachable")

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrDownloadFailed)
	require.Empty(t, residualFiles(t, tempDir))
}

func TestRun_ProbeFailureCreatesNoFiles(t *testing.T) {
	p, dl, _, tempDir := newPipeline(t, &fakeTranscoder{}, &fakeCloud{}, 49<<20)
	p.Prober = &fakeProber{err: errors.New("video unavailable")}

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrDownloadFailed)
	require.False(t, dl.called)
	entries, rerr := os.ReadDir(tempDir)
	require.NoError(t, rerr)
	require.Empty(t, entries, "no WorkItem directory may be allocated")
}

func TestRun_TooLargeEstimateRejectsBeforeDownload(t *testing.T) {
	p, dl, _, tempDir := newPipeline(t, &fakeTranscoder{}, &fakeCloud{}, 49<<20)
	p.MaxEstimate = 1024 // 60s at 128kbps estimates far above this

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrTooLarge)
	require.False(t, dl.called)
	entries, rerr := os.ReadDir(tempDir)
	require.NoError(t, rerr)
	require.Empty(t, entries)
}

func TestRun_UploadFailure(t *testing.T) {
	cloud := &fakeCloud{err: errors.New("connection reset")}
	p, _, _, tempDir := newPipeline(t, &fakeTranscoder{outBytes: 80 << 20}, cloud, 49<<20)

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrUploadFailed)
	require.Empty(t, residualFiles(t, tempDir))
}

func TestRun_LinkFailureIsSurfacedDistinctly(t *testing.T) {
	cloud := &fakeCloud{err: &pcloud.LinkError{RemotePath: "/b/d/f.mp3", Err: errors.New("quota")}}
	p, _, _, _ := newPipeline(t, &fakeTranscoder{outBytes: 80 << 20}, cloud, 49<<20)

	err := p.Run(context.Background(), req(), pipeline.NopNotifier{})

	require.ErrorIs(t, err, pipeline.ErrLinkGeneration)
	require.Contains(t, pipeline.UserMessage(err), "/b/d/f.mp3")
}

func TestUserMessage_Taxonomy(t *testing.T) {
	require.Contains(t, pipeline.UserMessage(pipeline.ErrInvalidURL), "valid YouTube URL")
	require.Contains(t, pipeline.UserMessage(pipeline.ErrAccessDenied), "not authorized")
	require.Contains(t, pipeline.UserMessage(pipeline.ErrTooLarge), "too long")
	require.Contains(t, pipeline.UserMessage(errors.New("wat")), "Something went wrong")
}
