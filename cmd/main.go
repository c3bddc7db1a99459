package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/aggregator"
	"github.com/ekaterinavolkova/budget-sync-app/internal/cache"
	"github.com/ekaterinavolkova/budget-sync-app/internal/database"
	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/routes"
	"github.com/ekaterinavolkova/budget-sync-app/internal/store"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/ekaterinavolkova/budget-sync-app/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// cacheConfigFromEnv позволяет переопределить TTL кэша без пересборки.
func cacheConfigFromEnv() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.AccountsTTL = envDuration("CACHE_TTL_ACCOUNTS", cfg.AccountsTTL)
	cfg.TransactionsTTL = envDuration("CACHE_TTL_TRANSACTIONS", cfg.TransactionsTTL)
	cfg.GoalsTTL = envDuration("CACHE_TTL_GOALS", cfg.GoalsTTL)
	return cfg
}

func retryConfigFromEnv() syncer.RetryConfig {
	cfg := syncer.DefaultRetryConfig()
	if v := os.Getenv("SYNC_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Attempts = n
		}
	}
	cfg.BaseDelay = envDuration("SYNC_RETRY_BASE_DELAY", cfg.BaseDelay)
	return cfg
}

// scheduleBackgroundSync раз в час прогоняет синхронизацию по всем
// сохраненным привязкам к агрегатору. Сбой одного пользователя только
// логируется и не трогает остальных.
func scheduleBackgroundSync(pool *pgxpool.Pool, orch *syncer.Orchestrator, log zerolog.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		ctx := context.Background()
		items, err := database.GetUserItems(ctx, pool)
		if err != nil {
			log.Error().Err(err).Msg("ошибка получения привязок для фоновой синхронизации")
			return
		}
		for _, item := range items {
			if _, err := orch.SyncUser(ctx, item.UserID, item.AccessToken); err != nil {
				log.Error().Err(err).Str("user_id", item.UserID).Msg("фоновая синхронизация не удалась")
			}
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка настройки CRON-задачи синхронизации")
	}
	c.Start()
	return c
}

func main() {
	log := logger.New()
	ctx := context.Background()

	pool, err := database.ConnectPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка подключения к БД")
	}
	defer pool.Close()

	if err := database.InitSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("ошибка инициализации схемы")
	}

	st := store.New(pool, cache.New(cacheConfigFromEnv()), log)

	// Клиент настоящего агрегатора живет за интерфейсом syncer.Aggregator.
	// Пока сервис работает с фейковой выгрузкой: либо из JSON-файла, либо
	// сгенерированной — достаточно для локальной разработки и демонстрации
	// всего пути синхронизации.
	demoToken := os.Getenv("AGGREGATOR_TOKEN")
	if demoToken == "" {
		demoToken = "demo-access-token"
	}
	var agg *aggregator.Fake
	if path := os.Getenv("AGGREGATOR_DATA_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("ошибка чтения выгрузки агрегатора")
		}
		agg, err = aggregator.FromJSON(demoToken, data)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("ошибка разбора выгрузки агрегатора")
		}
	} else {
		agg = utils.GenerateAggregatorData(demoToken, 3, 40)
	}

	engine := syncer.NewEngine(st, st, log)
	orch := syncer.NewOrchestrator(agg, engine, st, log)
	orch.Retry = retryConfigFromEnv()
	changes := syncer.NewChangesService(st)
	updater := syncer.NewProgressUpdater(st, log)

	syncCron := scheduleBackgroundSync(pool, orch, log)
	defer syncCron.Stop()

	r := routes.SetupRouter(pool, st, orch, changes, updater, log)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("сервис синхронизации запущен")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("ошибка HTTP-сервера")
	}
}
