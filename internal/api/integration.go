package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/annel0/tower-stacker/internal/auth"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/eventbus"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/annel0/tower-stacker/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// ServerIntegration собирает сервис таблицы лидеров из конфигурации:
// хранилище, кеш, шина событий, телеметрия и REST сервер.
type ServerIntegration struct {
	restServer *RestServer
	repo       leaderboard.Repository
	bus        eventbus.EventBus
	subs       []eventbus.Subscription
	exporter   *eventbus.MetricsExporter
	telemetry  observability.Shutdown
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *logging.Logger
}

// IntegrationOptions - зависимости, которые можно подменить (тесты, встраивание).
type IntegrationOptions struct {
	Repo     leaderboard.Repository // nil - leaderboard.Open по конфигу
	Bus      eventbus.EventBus      // nil - по cfg.EventBus
	Registry *prometheus.Registry   // nil - дефолтный регистр
}

// NewServerIntegration создает сервис по конфигурации
func NewServerIntegration(cfg *config.Config, opts IntegrationOptions) (*ServerIntegration, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := logging.GetAPILogger()

	si := &ServerIntegration{ctx: ctx, cancel: cancel, logger: logger}
	fail := func(err error) (*ServerIntegration, error) {
		si.shutdownDeps()
		return nil, err
	}

	if cfg.Auth.JWTSecret != "" {
		if err := auth.SetJWTSecret(cfg.Auth.JWTSecret); err != nil {
			return fail(fmt.Errorf("auth.jwt_secret: %w", err))
		}
	} else {
		logger.Warn("⚠️ auth.jwt_secret не задан: токены станут недействительны после перезапуска")
	}

	shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		// трассировка необязательна
		logger.Warn("⚠️ OpenTelemetry не инициализирован: %v", err)
		shutdown = nil
	}
	si.telemetry = shutdown

	si.repo = opts.Repo
	if si.repo == nil {
		repo, err := leaderboard.Open(ctx, cfg.Storage, cfg.Cache)
		if err != nil {
			return fail(fmt.Errorf("хранилище таблицы лидеров: %w", err))
		}
		si.repo = repo
	}

	si.bus = opts.Bus
	if si.bus == nil {
		bus, err := openBus(cfg.EventBus)
		if err != nil {
			return fail(err)
		}
		si.bus = bus
	}

	if sub, err := eventbus.StartLoggingListener(ctx, si.bus); err == nil {
		si.subs = append(si.subs, sub)
	}
	if inv, ok := si.repo.(eventbus.Invalidator); ok {
		sub, err := eventbus.StartCacheInvalidation(ctx, si.bus, inv)
		if err != nil {
			return fail(fmt.Errorf("подписка на сброс кеша: %w", err))
		}
		si.subs = append(si.subs, sub)
	}

	var reg prometheus.Registerer
	if opts.Registry != nil {
		reg = opts.Registry
	}
	si.exporter = eventbus.NewMetricsExporter(si.bus, reg)
	si.exporter.Start(ctx)

	hostname, _ := os.Hostname()
	si.restServer = NewRestServer(Config{
		Port:           fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Repo:           si.repo,
		Bus:            si.bus,
		Admin:          auth.AdminAuthenticator{Username: cfg.Auth.AdminUser, PasswordHash: cfg.Auth.AdminPassword},
		NodeID:         fmt.Sprintf("stacker-api@%s", hostname),
		RequestTimeout: cfg.Server.GetRequestTimeout(),
		Mode:           cfg.Server.Mode,
		Layout:         cfg.Game.Layout,
		Registry:       opts.Registry,
		Logger:         logger,
	})
	if !si.restServer.admin.Enabled() {
		logger.Warn("⚠️ auth.admin_password_hash не задан: модерация отключена")
	}

	return si, nil
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 EventBus в памяти процесса")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("шина событий: %w", err)
	}
	return bus, nil
}

// Start запускает REST API сервер
func (si *ServerIntegration) Start() error {
	port := si.restServer.port
	si.httpServer = &http.Server{
		Addr:              port,
		Handler:           si.restServer.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := si.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			si.logger.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	si.logger.Info("✅ REST API сервер запущен на http://localhost%s", port)
	si.logger.Info("📋 Доступные эндпоинты:")
	si.logger.Info("   GET    /api/scores?limit=N     - Таблица лидеров")
	si.logger.Info("   POST   /api/scores             - Сохранить результат победы")
	si.logger.Info("   GET    /api/scores/:id         - Результат по ID")
	si.logger.Info("   GET    /api/settings           - Пресеты сложности")
	si.logger.Info("   POST   /api/auth/login         - Вход администратора")
	si.logger.Info("   DELETE /api/admin/scores/:id   - Удалить результат (JWT)")
	si.logger.Info("   GET    /health, /metrics, /api/server")

	return nil
}

// Stop останавливает REST API сервер и освобождает зависимости
func (si *ServerIntegration) Stop() error {
	si.logger.Info("🛑 Остановка REST API сервера...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var firstErr error
	if si.httpServer != nil {
		if err := si.httpServer.Shutdown(ctx); err != nil {
			si.logger.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
			firstErr = err
		}
	}

	if err := si.shutdownDeps(); err != nil && firstErr == nil {
		firstErr = err
	}

	si.logger.Info("✅ REST API сервер остановлен")
	return firstErr
}

func (si *ServerIntegration) shutdownDeps() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, sub := range si.subs {
		sub.Unsubscribe()
	}
	si.subs = nil
	if si.bus != nil {
		keep(si.bus.Close())
	}
	// отмена контекста останавливает экспортер метрик шины
	si.cancel()
	if si.exporter != nil {
		<-si.exporter.Done()
	}
	if si.repo != nil {
		keep(si.repo.Close())
	}
	if si.telemetry != nil {
		keep(si.telemetry(context.Background()))
	}
	return firstErr
}

// GetRestServer возвращает REST сервер (для дополнительной настройки)
func (si *ServerIntegration) GetRestServer() *RestServer {
	return si.restServer
}

// IsHealthy проверяет состояние интеграции
func (si *ServerIntegration) IsHealthy() bool {
	select {
	case <-si.ctx.Done():
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(si.ctx, 2*time.Second)
	defer cancel()
	_, err := si.repo.ListTop(ctx, 1)
	return err == nil
}
