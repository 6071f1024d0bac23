package pipeline

import "context"

// Stage is the pipeline position reported to the requester.
type Stage int

const (
	StagePending Stage = iota
	StageDownloading
	StageConverting
	StageSizeChecked
	StageUploading
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageDownloading:
		return "downloading"
	case StageConverting:
		return "converting"
	case StageSizeChecked:
		return "size-checked"
	case StageUploading:
		return "uploading"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Notifier receives stage transitions. Implementations are best-effort; a
// failed notification must never abort the run.
type Notifier interface {
	Update(ctx context.Context, stage Stage)
}

// NopNotifier discards updates. Used in tests and the local CLI.
type NopNotifier struct{}

func (NopNotifier) Update(context.Context, Stage) {}
