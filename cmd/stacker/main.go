package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/tower-stacker/internal/api"
	"github.com/annel0/tower-stacker/internal/config"
	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/gesture"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/annel0/tower-stacker/internal/prefs"
	"github.com/annel0/tower-stacker/internal/tui"
	"github.com/gdamore/tcell/v2"
)

func main() {
	var (
		configPath  = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $STACKER_CONFIG)")
		name        = flag.String("name", "", "имя игрока в таблице лидеров")
		difficulty  = flag.String("difficulty", "", "сложность: easy, normal, hard")
		serverURL   = flag.String("server", "", "адрес сервера таблицы лидеров; пусто - локальная таблица")
		gestureFeed = flag.String("gesture-feed", "", "лента трекера рук (JSON lines), '-' - stdin")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Экран занят игрой: логи только в файл
	if err := logging.InitDefaultLoggerWithOptions("client", logging.Options{
		Dir:             cfg.Logging.Dir,
		MinConsoleLevel: logging.OFF,
		MinFileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg, *name, *difficulty, *serverURL, *gestureFeed); err != nil {
		logging.Error("❌ %v", err)
		log.Fatalf("❌ %v", err)
	}
}

func run(cfg *config.Config, nameFlag, difficultyFlag, serverFlag, feedPath string) error {
	pm, err := prefs.Open()
	if err != nil {
		logging.Warn("⚠️ %v", err)
	}
	p := pm.Get()

	// приоритет: флаг -> сохранённые настройки -> конфиг
	playerName := firstNonEmpty(nameFlag, p.PlayerName, cfg.Game.PlayerName)
	server := firstNonEmpty(serverFlag, p.ServerURL, cfg.Game.ServerURL)

	diffName := string(p.Difficulty)
	if !pm.Persistent() && cfg.Game.Difficulty != "" {
		diffName = cfg.Game.Difficulty
	}
	diff, err := game.ParseDifficulty(firstNonEmpty(difficultyFlag, diffName))
	if err != nil {
		return err
	}

	pm.SetPlayerName(playerName)
	pm.SetDifficulty(diff)
	pm.SetServerURL(server)
	if err := pm.Save(); err != nil {
		logging.Warn("⚠️ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	landingTimeout := time.Duration(cfg.Game.LandingTimeout) * time.Millisecond
	opts := tui.Options{
		Layout:         cfg.Game.Layout,
		Difficulty:     diff,
		PlayerName:     playerName,
		Prefs:          pm,
		LandingTimeout: &landingTimeout,
	}

	if server != "" {
		client, err := api.NewClient(server, nil)
		if err != nil {
			return err
		}
		opts.Submitter = client
		opts.Leaderboard = client
		logging.Info("🌐 Таблица лидеров: %s", server)
	} else {
		repo, err := leaderboard.Open(ctx, cfg.Storage, cfg.Cache)
		if err != nil {
			return fmt.Errorf("локальная таблица лидеров: %w", err)
		}
		defer repo.Close()
		opts.Submitter = leaderboard.GameSubmitter{Repo: repo}
		opts.Leaderboard = repo
		logging.Info("💾 Локальная таблица лидеров (%s)", cfg.Storage.Backend)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("терминал: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("терминал: %w", err)
	}
	defer screen.Fini()

	app := tui.NewApp(screen, opts)

	if feedPath != "" {
		src, closeFeed, err := openFeed(feedPath)
		if err != nil {
			return err
		}
		defer closeFeed()

		rec := gesture.NewRecognizer(gesture.DefaultCooldown, app.RequestDrop)
		reader := gesture.NewFeedReader(src, rec)
		go func() {
			if err := reader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("⚠️ Лента жестов остановлена: %v", err)
			}
			frames, skipped := reader.Stats()
			logging.Info("✋ Лента жестов: %d кадров, %d пропущено", frames, skipped)
		}()
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openFeed(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("лента жестов: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
