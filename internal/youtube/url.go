// Package youtube validates submitted links and derives filenames from
// video titles. Validation is purely syntactic; no network calls happen here.
package youtube

import (
	"regexp"
	"strings"
)

var (
	urlRe = regexp.MustCompile(
		`^(?:https?://)?(?:www\.|m\.)?(?:youtube|youtube-nocookie)\.com/(?:watch\?v=|embed/|v/|shorts/|.+\?v=)([0-9A-Za-z_-]{11})` +
			`|^(?:https?://)?youtu\.be/([0-9A-Za-z_-]{11})`)

	unsafeRe  = regexp.MustCompile(`[<>:"/\\|?*]`)
	squeezeRe = regexp.MustCompile(`[\s.]+`)
)

// IsValidURL reports whether s looks like a YouTube video link.
func IsValidURL(s string) bool {
	_, ok := VideoID(s)
	return ok
}

// VideoID extracts the 11-character video identifier from a YouTube URL.
func VideoID(s string) (string, bool) {
	m := urlRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}

// SafeFilename strips characters that are invalid in filenames and
// collapses whitespace/dot runs, keeping the result portable.
func SafeFilename(title string) string {
	s := unsafeRe.ReplaceAllString(title, "")
	s = squeezeRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "audio"
	}
	return s
}
