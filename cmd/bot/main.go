package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/you/ytb2mp3/internal/config"
	"github.com/you/ytb2mp3/internal/deliver"
	"github.com/you/ytb2mp3/internal/gate"
	"github.com/you/ytb2mp3/internal/janitor"
	"github.com/you/ytb2mp3/internal/jobs"
	"github.com/you/ytb2mp3/internal/logx"
	"github.com/you/ytb2mp3/internal/media"
	"github.com/you/ytb2mp3/internal/notify"
	"github.com/you/ytb2mp3/internal/pcloud"
	"github.com/you/ytb2mp3/internal/pipeline"
	"github.com/you/ytb2mp3/internal/youtube"
)

var rctx = context.Background()

func newULID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

type server struct {
	cfg   config.Config
	bot   *tgbotapi.BotAPI
	rdb   *redis.Client
	asynq *asynq.Client
	gate  *gate.Gate
	pipe  *pipeline.Pipeline
	jan   *janitor.Janitor
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logx.Setup(logx.FromEnv("bot"))
	logger.Info().Msg("bot starting")

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.TempDir).Msg("cannot create temp dir")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}
	bot.Debug = false
	log.Info().Str("username", bot.Self.UserName).Msg("bot authorized")

	pc := pcloud.New(cfg.PCloudUsername, cfg.PCloudPassword, cfg.PCloudBaseFolder, cfg.LinkExpireDays)
	if err := pc.Login(rctx); err != nil {
		log.Fatal().Err(err).Msg("pcloud login failed")
	}
	if _, err := pc.EnsureFolder(rctx, "/"+strings.Trim(cfg.PCloudBaseFolder, "/")); err != nil {
		log.Fatal().Err(err).Msg("pcloud base folder unavailable")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	asClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asClient.Close()

	reg := janitor.NewRegistry()
	jan := &janitor.Janitor{
		Dir:      cfg.TempDir,
		MaxAge:   cfg.CleanupOlderThan,
		Interval: cfg.SweepInterval,
		Log:      logger,
	}

	s := &server{
		cfg:   cfg,
		bot:   bot,
		rdb:   rdb,
		asynq: asClient,
		gate:  gate.New(cfg.AllowedUserIDs),
		jan:   jan,
		pipe: &pipeline.Pipeline{
			TempDir:     cfg.TempDir,
			Bitrate:     cfg.BitrateKbps,
			AttachLimit: cfg.AttachLimitBytes,
			MaxEstimate: cfg.MaxEstimatedBytes,
			Prober:      &media.Downloader{YtdlpPath: cfg.YtdlpPath, Log: logger},
			Downloader:  &media.Downloader{YtdlpPath: cfg.YtdlpPath, Log: logger},
			Transcoder:  &media.Transcoder{FfmpegPath: cfg.FfmpegPath, Log: logger},
			Cloud:       pc,
			Deliver:     &deliver.Telegram{Bot: bot, Bitrate: cfg.BitrateKbps},
			Registry:    reg,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// health endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
		log.Info().Msg("bot health on :8080/health")
		log.Err(http.ListenAndServe(":8080", nil)).Msg("health endpoint stopped")
	}()

	go jan.Run(ctx)

	// The conversion worker runs embedded: one process hosts both the
	// listener and the asynq consumers.
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.Concurrency,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskConvert, s.handleConvert)
	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("worker start failed")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case upd, ok := <-updates:
			if !ok {
				break loop
			}
			if upd.Message != nil {
				s.onMessage(upd.Message)
			}
		}
	}

	log.Info().Msg("shutting down")
	bot.StopReceivingUpdates()
	srv.Shutdown()
	// Best-effort reclaim of files owned by runs that were cut short.
	reg.CleanupAll(logger)
}

/* ---------------------- handlers ---------------------- */

func (s *server) onMessage(m *tgbotapi.Message) {
	if m.From == nil {
		return
	}
	logger := log.With().Int64("chat_id", m.Chat.ID).Int64("user_id", m.From.ID).Logger()
	logger.Info().Msg("message received")

	if !s.gate.Allowed(m.From.ID) {
		logger.Info().Msg("rejected by allow-list")
		s.reply(m.Chat.ID, pipeline.UserMessage(pipeline.ErrAccessDenied))
		return
	}

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			s.reply(m.Chat.ID, "Welcome! Send me a YouTube link and I'll convert it to MP3.\nLarge files will be shared via pCloud link.")
		case "help":
			s.reply(m.Chat.ID, "Just send me a YouTube link and I'll convert it to MP3.\nCommands:\n/start - Start the bot\n/help - Show this help message\n/cleanup - Clean up temporary files")
		case "cleanup":
			n := s.jan.Sweep()
			s.reply(m.Chat.ID, fmt.Sprintf("Cleanup completed, removed %d stale file(s).", n))
		default:
			s.reply(m.Chat.ID, "Unknown command. Send a YouTube link to start.")
		}
		return
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	if !youtube.IsValidURL(text) {
		s.reply(m.Chat.ID, pipeline.UserMessage(pipeline.ErrInvalidURL))
		return
	}

	if s.cfg.DailyMax > 0 && s.remainingToday(m.From.ID) <= 0 {
		s.reply(m.Chat.ID, fmt.Sprintf("Daily limit of %d conversions reached. Try again tomorrow.", s.cfg.DailyMax))
		return
	}

	status, err := s.bot.Send(tgbotapi.NewMessage(m.Chat.ID, "Processing your request…"))
	if err != nil {
		logger.Error().Err(err).Msg("cannot send status message")
		return
	}

	payload := jobs.ConvertPayload{
		RequestID:   newULID(),
		ChatID:      m.Chat.ID,
		UserID:      m.From.ID,
		URL:         text,
		StatusMsgID: status.MessageID,
		ReceivedAt:  time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err = s.asynq.Enqueue(asynq.NewTask(jobs.TaskConvert, b), asynq.MaxRetry(0), asynq.Timeout(30*time.Minute))
	if err != nil {
		logger.Error().Err(err).Msg("enqueue failed")
		edit := tgbotapi.NewEditMessageText(m.Chat.ID, status.MessageID, "Internal queue error. Please try again.")
		_, _ = s.bot.Send(edit)
		return
	}
	logger.Info().Str("req", payload.RequestID).Msg("conversion enqueued")
}

// handleConvert is the asynq handler for one conversion request. Errors are
// terminal: they are reported to the user here and never returned to asynq,
// so nothing is retried behind the user's back.
func (s *server) handleConvert(ctx context.Context, t *asynq.Task) error {
	var p jobs.ConvertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	ctx = logx.WithRequest(ctx, p.RequestID, p.UserID)
	logger := logx.FromCtx(ctx)

	status := notify.NewStatusMessage(s.bot, p.ChatID, p.StatusMsgID, s.cfg.NotifyMinInterval)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("pipeline panic")
			status.Fail(ctx, "Something went wrong while processing your request. Please try again.")
		}
	}()

	req := pipeline.Request{
		ID:         p.RequestID,
		ChatID:     p.ChatID,
		UserID:     p.UserID,
		URL:        p.URL,
		ReceivedAt: p.ReceivedAt,
	}
	if err := s.pipe.Run(ctx, req, status); err != nil {
		logger.Error().Err(err).Str("url", p.URL).Msg("pipeline failed")
		status.Fail(ctx, pipeline.UserMessage(err))
		return nil
	}
	s.chargeDaily(p.UserID)
	return nil
}

func (s *server) reply(chatID int64, text string) {
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

/* ---------------------- daily quota (Redis) ---------------------- */

func keyQuota(user int64, ymd string) string { return fmt.Sprintf("quota:%d:%s", user, ymd) }

func today() string { return time.Now().Format("20060102") }

func untilMidnight() time.Duration {
	now := time.Now()
	tom := now.Add(24 * time.Hour)
	mid := time.Date(tom.Year(), tom.Month(), tom.Day(), 0, 0, 0, 0, now.Location())
	return time.Until(mid)
}

func (s *server) remainingToday(user int64) int {
	key := keyQuota(user, today())
	used, _ := s.rdb.Get(rctx, key).Int()
	rem := s.cfg.DailyMax - used
	if rem < 0 {
		rem = 0
	}
	return rem
}

func (s *server) chargeDaily(user int64) {
	if s.cfg.DailyMax <= 0 {
		return
	}
	key := keyQuota(user, today())
	if err := s.rdb.Incr(rctx, key).Err(); err != nil {
		log.Warn().Err(err).Msg("quota charge failed")
		return
	}
	_ = s.rdb.Expire(rctx, key, untilMidnight()).Err()
}
