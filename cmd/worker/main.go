package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/config"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/notify"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	var sender common.EmailSender
	if cfg.SMTPHost != "" {
		sender = notify.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
	} else {
		logger.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		sender = notify.LogSender{}
	}

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 10),
		Queues: map[string]int{
			queue.QueueCritical: 6,
			queue.QueueDefault:  3,
		},
	})

	mux := asynq.NewServeMux()
	notify.Handlers{Sender: sender, BaseURL: cfg.BaseURL}.Register(mux)

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
