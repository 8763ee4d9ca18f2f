package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/config"
	"github.com/logward/logward/internal/detection/api"
	"github.com/logward/logward/internal/detection/database"
	"github.com/logward/logward/internal/detection/service"
	"github.com/logward/logward/internal/detection/service/alertcheck"
	"github.com/logward/logward/internal/detection/service/notify"
	"github.com/logward/logward/internal/middleware"
)

func main() {
	// load config first
	log.Info().Msg("Starting logward api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := database.New(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	sigmaRules := database.NewSigmaRuleRepo(db)
	alertRules := database.NewAlertRuleRepo(db)
	history := database.NewAlertHistoryRepo(db)
	logs := database.NewLogRepo(db)

	// optional redis for the per-rule trigger lock; single-instance deployments
	// fall through to the no-op lock
	var lock alertcheck.TriggerLock = alertcheck.NoopLock{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		lock = alertcheck.NewRedisTriggerLock(rdb, parseDuration(cfg.Detection.LockTTL, 30*time.Second))
	}

	cache := service.NewRuleCache(parseDuration(cfg.Detection.RuleCacheTTL, 30*time.Second))
	detection := service.NewDetection(sigmaRules, cache)
	evaluator := alertcheck.NewEvaluator(alertRules, history, logs, lock)

	var email notify.EmailSender
	if cfg.Notify.SMTPAddr != "" {
		email = notify.NewSMTPEmail(cfg.Notify.SMTPAddr, cfg.Notify.SMTPFrom)
	}
	webhook := notify.NewHTTPWebhook(parseDuration(cfg.Notify.WebhookTimeout, 10*time.Second))
	notifier := notify.NewDispatcher(email, webhook, history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go alertcheck.StartScheduler(ctx, alertcheck.Deps{
		Evaluator: evaluator,
		Notifier:  notifier,
		Interval:  parseDuration(cfg.Detection.ScanInterval, time.Minute),
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Use(middleware.Authentication(cfg.Server.AuthToken))
	if _, err := api.NewApi(sigmaRules, alertRules, history, logs, detection, evaluator, notifier, router); err != nil {
		log.Fatal().Err(err).Msg("bind detection api failed.")
	}

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start logward api server failed.")
	}
	log.Info().Msg("logward api server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
