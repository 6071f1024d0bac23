package pipeline

// Mode is the delivery decision for a finished MP3.
type Mode int

const (
	ModeDirect Mode = iota
	ModeCloudLink
)

// Route picks the delivery mode from the measured size. A file at exactly
// the ceiling still goes as a direct attachment.
func Route(size, attachLimit int64) Mode {
	if size <= attachLimit {
		return ModeDirect
	}
	return ModeCloudLink
}
