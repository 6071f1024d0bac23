package pipeline

import (
	"errors"
	"fmt"

	"github.com/you/ytb2mp3/internal/pcloud"
)

// Terminal per-request failures. None of these trigger a retry of the whole
// pipeline; the user has to resubmit.
var (
	ErrAccessDenied     = errors.New("access denied")
	ErrInvalidURL       = errors.New("invalid video url")
	ErrTooLarge         = errors.New("estimated size over ceiling")
	ErrDownloadFailed   = errors.New("download failed")
	ErrConversionFailed = errors.New("conversion failed")
	ErrUploadFailed     = errors.New("upload failed")
	ErrLinkGeneration   = errors.New("link generation failed")
)

// UserMessage maps a pipeline error to the single plain-language reply the
// requester sees.
func UserMessage(err error) string {
	var le *pcloud.LinkError
	switch {
	case errors.As(err, &le):
		return fmt.Sprintf("The MP3 was uploaded to pCloud (%s), but creating a share link failed. You can fetch it from your pCloud account.", le.RemotePath)
	case errors.Is(err, ErrAccessDenied):
		return "Sorry, you are not authorized to use this bot."
	case errors.Is(err, ErrInvalidURL):
		return "Please send a valid YouTube URL."
	case errors.Is(err, ErrTooLarge):
		return "This video is too long to convert — the estimated MP3 would exceed the configured limit."
	case errors.Is(err, ErrDownloadFailed):
		return "Could not download the video. It may be private, removed, or region-locked."
	case errors.Is(err, ErrConversionFailed):
		return "Downloaded fine, but converting to MP3 failed. Please try again later."
	case errors.Is(err, pcloud.ErrAuth):
		return "Cloud storage rejected the bot's credentials. The file was not uploaded."
	case errors.Is(err, ErrUploadFailed):
		return "Uploading the MP3 to pCloud failed. Please try again later."
	default:
		return "Something went wrong while processing your request. Please try again."
	}
}
