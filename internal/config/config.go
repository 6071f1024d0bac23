// Package config loads the immutable process configuration from the
// environment. It is constructed once in main and passed explicitly into
// every component.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken string

	PCloudUsername   string
	PCloudPassword   string
	PCloudBaseFolder string
	LinkExpireDays   int

	AllowedUserIDs []int64 // empty = allow everyone

	TempDir          string
	CleanupOlderThan time.Duration
	SweepInterval    time.Duration

	YtdlpPath   string
	FfmpegPath  string
	BitrateKbps int

	AttachLimitBytes  int64 // Telegram upload ceiling
	MaxEstimatedBytes int64 // 0 = no pre-flight size ceiling

	NotifyMinInterval time.Duration

	RedisAddr   string
	Concurrency int
	DailyMax    int // 0 = unlimited
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func mustFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	}
	return def
}

// Load reads the configuration from the environment. Required variables
// missing or malformed values yield an error rather than a half-built config.
func Load() (Config, error) {
	var missing []string
	for _, k := range []string{"BOT_TOKEN", "PCLOUD_USERNAME", "PCLOUD_PASSWORD", "PCLOUD_BASE_FOLDER"} {
		if os.Getenv(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	allowed, err := parseUserIDs(os.Getenv("ALLOWED_USER_IDS"))
	if err != nil {
		return Config{}, err
	}

	c := Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		PCloudUsername:    os.Getenv("PCLOUD_USERNAME"),
		PCloudPassword:    os.Getenv("PCLOUD_PASSWORD"),
		PCloudBaseFolder:  os.Getenv("PCLOUD_BASE_FOLDER"),
		LinkExpireDays:    mustInt("PCLOUD_LINK_EXPIRE_DAYS", 7),
		AllowedUserIDs:    allowed,
		TempDir:           getenv("TEMP_DIR", "/tmp/ytbtomp3"),
		CleanupOlderThan:  time.Duration(mustInt("CLEANUP_OLDER_THAN", 24)) * time.Hour,
		SweepInterval:     time.Duration(mustInt("SWEEP_INTERVAL_MIN", 60)) * time.Minute,
		YtdlpPath:         getenv("YTDLP_PATH", "yt-dlp"),
		FfmpegPath:        getenv("FFMPEG_PATH", "/usr/bin/ffmpeg"),
		BitrateKbps:       mustInt("AUDIO_KBPS", 128),
		AttachLimitBytes:  int64(mustInt("TG_UPLOAD_LIMIT_MB", 49)) * 1024 * 1024,
		MaxEstimatedBytes: int64(mustInt("MAX_ESTIMATED_MB", 0)) * 1024 * 1024,
		NotifyMinInterval: time.Duration(mustFloat("NOTIFY_MIN_SECONDS", 1.0) * float64(time.Second)),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		Concurrency:       mustInt("CONCURRENCY", 2),
		DailyMax:          mustInt("DAILY_MAX", 0),
	}

	if c.LinkExpireDays < 1 {
		return Config{}, fmt.Errorf("PCLOUD_LINK_EXPIRE_DAYS must be >= 1, got %d", c.LinkExpireDays)
	}
	if c.CleanupOlderThan < time.Hour {
		return Config{}, fmt.Errorf("CLEANUP_OLDER_THAN must be >= 1 hour")
	}
	if c.BitrateKbps <= 0 {
		return Config{}, fmt.Errorf("AUDIO_KBPS must be positive")
	}
	if c.NotifyMinInterval < 0 {
		return Config{}, fmt.Errorf("NOTIFY_MIN_SECONDS must be >= 0")
	}
	return c, nil
}

func parseUserIDs(csv string) ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_USER_IDS entry %q is not a user id", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
