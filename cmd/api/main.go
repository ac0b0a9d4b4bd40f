package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/userhub/internal/console/handler"
	"github.com/xela07ax/userhub/internal/console/server"
	"github.com/xela07ax/userhub/internal/console/service"
	"github.com/xela07ax/userhub/internal/infra"
	"github.com/xela07ax/userhub/internal/infra/auth"
	"github.com/xela07ax/userhub/internal/monitor"
	"github.com/xela07ax/userhub/internal/obs"
	"github.com/xela07ax/userhub/internal/repository/postgres"
	"go.uber.org/zap"
)

const sessionCleanupInterval = time.Hour

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	// При завершении main() или срабатывании SIGTERM, cancel() остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	store, err := postgres.NewStore(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to init postgres pool", zap.Error(err))
	}
	defer store.Close()

	// Проверяем соединение с таймаутом
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("Database unreachable", zap.Error(err))
	}
	pingCancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 3. Лог-пайплайн: console всегда, file/store по конфигу, opensearch опционально
	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	sinks := []obs.Sink{obs.NewConsoleSink(logger)}

	if cfg.Sinks.File.Path != "" {
		fileSink, err := obs.NewFileSink(cfg.Sinks.File.Path, cfg.Sinks.File.MaxSize, cfg.Sinks.File.Retention)
		if err != nil {
			logger.Fatal("Failed to open log file sink", zap.Error(err))
		}
		sinks = append(sinks, fileSink)
	}

	sinks = append(sinks, obs.NewStoreSink(store,
		obs.Level(cfg.Sinks.Store.MinLevel),
		cfg.Sinks.Store.BatchSize,
		cfg.Sinks.Store.FlushInterval))

	if len(cfg.Sinks.OpenSearch.Addresses) > 0 {
		searchSink, err := obs.NewSearchSink(cfg.Sinks.OpenSearch.Addresses, cfg.Sinks.OpenSearch.IndexPrefix)
		if err != nil {
			logger.Fatal("Failed to init opensearch sink", zap.Error(err))
		}
		sinks = append(sinks, searchSink)
	}

	writer := obs.NewWriter(logger, metrics, cfg.Sinks.WriteTimeout, sinks...)
	writer.Start()

	interceptor := obs.NewInterceptor(writer, metrics, "userhub-api")

	// 4. Auth: RSA ключи и кэш отозванных сессий
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("Failed to parse public key", zap.Error(err))
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("Failed to parse private key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(publicKey)

	revocations := service.NewRevocationCache(rdb, logger)
	if err := revocations.Init(appCtx); err != nil {
		logger.Fatal("Failed to warm revocation cache", zap.Error(err))
	}
	go revocations.StartListener(appCtx)

	// 5. Инициализация слоев (Dependency Injection)
	authService := service.NewAuthService(store, store, validator, privateKey, cfg.Auth.TokenTTL)
	userService := service.NewUserService(store, cfg.Auth.BcryptCost, logger)
	profileService := service.NewProfileService(store, store)
	addressService := service.NewAddressService(store)
	sessionService := service.NewSessionService(store, rdb, revocations, logger)

	evaluator, err := monitor.NewEvaluator(cfg.Alerts)
	if err != nil {
		logger.Fatal("Invalid alert thresholds", zap.Error(err))
	}
	monitorService := service.NewMonitorService(store, evaluator, cfg.Analyzer, logger)

	srv := server.NewAPIServer(
		cfg, logger, interceptor, authService, revocations,
		handler.NewAuthHandler(authService, cfg.Auth.LoginRatePerSec, cfg.Auth.LoginBurst),
		handler.NewUserHandler(userService),
		handler.NewProfileHandler(profileService),
		handler.NewAddressHandler(addressService),
		handler.NewSessionHandler(sessionService),
		handler.NewLogsHandler(monitorService),
	)

	// Периодическая зачистка просроченных сессий
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sessionService.Cleanup(appCtx); err != nil {
					logger.Error("session cleanup failed", zap.Error(err))
				}
			case <-appCtx.Done():
				return
			}
		}
	}()

	// 6. HTTP Server + Graceful Shutdown
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("UserHub API started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("UserHub API stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	// Писатель логов — последним: дренируем очереди, чтобы события
	// завершенных запросов не пропали
	cancel()
	writer.Stop()
	logger.Info("UserHub API exited properly")
}
