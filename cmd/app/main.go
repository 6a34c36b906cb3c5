package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miniprogram-ai-chat/internal/config"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/domain/ports/repository"
	aiAdapters "miniprogram-ai-chat/internal/infra/adapters/ai"
	"miniprogram-ai-chat/internal/infra/adapters/wxcloud"
	httpapi "miniprogram-ai-chat/internal/infra/http"
	"miniprogram-ai-chat/internal/infra/logging"
	"miniprogram-ai-chat/internal/infra/memstore"
	"miniprogram-ai-chat/internal/infra/metrics"
	red "miniprogram-ai-chat/internal/infra/redis"
	"miniprogram-ai-chat/internal/infra/worker"
	"miniprogram-ai-chat/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "development mode (console logging)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- AI adapter (Gemini -> OpenAI-compatible) ----
	var ai adapter.AIServiceAdapter
	if cfg.AI.GeminiKey != "" {
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	} else {
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI-compatible")
	}

	// ---- Object storage (optional: jobs degrade to text-only without it) ----
	var storage adapter.ObjectStorage
	if cfg.WxCloud.AppID != "" && cfg.WxCloud.AppSecret != "" && cfg.WxCloud.Env != "" {
		creds, err := wxcloud.NewCredentials(cfg.WxCloud.AppID, cfg.WxCloud.AppSecret, cfg.WxCloud.APIBase, logger)
		if err != nil {
			log.Fatalf("wxcloud credentials: %v", err)
		}
		storage, err = wxcloud.NewStorage(cfg.WxCloud.Env, cfg.WxCloud.APIBase, creds, logger)
		if err != nil {
			log.Fatalf("wxcloud storage: %v", err)
		}
		logger.Info().
			Str("env", cfg.WxCloud.Env).
			Str("app_id", logging.Redact(cfg.WxCloud.AppID, cfg.Runtime.Dev)).
			Msg("object storage: wxcloud")
	} else {
		logger.Warn().Msg("wxcloud not configured; generated images will not be persisted")
	}

	// ---- Job store ----
	var store repository.ChatJobStore
	if cfg.Jobs.Store == "redis" {
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		store = red.NewJobStore(client, cfg.Redis.TTL)
		logger.Info().Dur("ttl", cfg.Redis.TTL).Msg("job store: redis")
	} else {
		store = memstore.NewJobStore()
		logger.Info().Msg("job store: memory")
	}

	// ---- Worker pool + use case ----
	pool := worker.NewPool(cfg.Jobs.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	jobsUC := usecase.NewChatJobUseCase(store, ai, storage, pool, logger)

	// ---- HTTP server ----
	srv := httpapi.NewServer(cfg.Server.Port, jobsUC, ai, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
