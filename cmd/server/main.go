package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/tower-stacker/internal/api"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $STACKER_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logOpts := logging.Options{
		Dir:             cfg.Logging.Dir,
		MinConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		MinFileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	}
	if err := logging.InitDefaultLoggerWithOptions("server", logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.GetLoggerManager().Configure(logOpts)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🏗️ Запуск сервера таблицы лидеров Tower Stacker...")
	logging.Info("📡 Конфигурация: REST=:%d, storage=%s, cache=%q, eventbus=%q",
		cfg.Server.GetRESTPort(), cfg.Storage.Backend, cfg.Cache.Addr, cfg.EventBus.URL)

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	logging.Debug("Создание REST API интеграции...")
	apiIntegration, err := api.NewServerIntegration(cfg, api.IntegrationOptions{})
	if err != nil {
		logging.Error("❌ Ошибка создания REST API интеграции: %v", err)
		log.Fatalf("❌ Ошибка создания REST API интеграции: %v", err)
	}

	if err := apiIntegration.Start(); err != nil {
		logging.Error("❌ Ошибка запуска REST API: %v", err)
		log.Fatalf("❌ Ошибка запуска REST API: %v", err)
	}

	port := cfg.Server.GetRESTPort()
	logging.Info("✅ Сервис запущен и готов принимать запросы")
	logging.Info("💡 Примеры использования REST API:")
	logging.Info("   curl http://localhost:%d/api/scores?limit=10", port)
	logging.Info("   curl -X POST http://localhost:%d/api/scores -H 'Content-Type: application/json' -d '{\"playerName\":\"Mehmon\",\"score\":87,\"discountEarned\":43,\"partsStacked\":6}'", port)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	if err := apiIntegration.Stop(); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
