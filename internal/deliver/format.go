package deliver

import "fmt"

// FormatSize renders a byte count for humans, e.g. "1.23 MB".
func FormatSize(b int64) string {
	if b <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	val := float64(b)
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}

// FormatDuration renders seconds as h:mm:ss or m:ss.
func FormatDuration(seconds float64) string {
	s := int(seconds)
	h, m := s/3600, s/60%60
	s %= 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
