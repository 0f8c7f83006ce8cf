package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/tower-stacker/internal/api"
	"github.com/annel0/tower-stacker/internal/eventbus"
)

const (
	defaultNatsURL   = "nats://localhost:4222"
	defaultServerURL = "http://localhost:8088"
	timeFormat       = "15:04:05"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNatsURL, "NATS server URL")
		stream     = flag.String("stream", "STACKER_EVENTS", "JetStream stream name")
		serverURL  = flag.String("server", defaultServerURL, "Leaderboard REST server URL")
		command    = flag.String("cmd", "tail", "Command: tail, top, settings")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Source nodes filter (comma-separated)")
		limit      = flag.Int("limit", 10, "tail: stop after N events (0 - follow forever); top: rows")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *command {
	case "tail":
		if err := tailEvents(ctx, *natsURL, *stream, eventbus.Filter{
			Types:   parseStringList(*eventTypes),
			Sources: parseStringList(*sources),
		}, *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "top":
		if err := showTop(ctx, *serverURL, *limit); err != nil {
			log.Fatalf("❌ Top failed: %v", err)
		}

	case "settings":
		if err := showSettings(ctx, *serverURL); err != nil {
			log.Fatalf("❌ Settings failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, top, settings")
		os.Exit(1)
	}
}

// tailEvents выводит новые события таблицы лидеров из JetStream
func tailEvents(ctx context.Context, url, stream string, filter eventbus.Filter, limit int) error {
	bus, err := eventbus.NewJetStreamBus(url, stream, 0)
	if err != nil {
		return err
	}
	defer bus.Close()

	fmt.Printf("🎬 Tailing %s (limit: %d)\n", stream, limit)

	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", count)
			return nil
		case ev := <-events:
			printEvent(ev)
			count++
			if limit > 0 && count >= limit {
				fmt.Printf("\n📊 Total events: %d\n", count)
				return nil
			}
		}
	}
}

// showTop выводит рейтинг лучших через REST API
func showTop(ctx context.Context, serverURL string, limit int) error {
	client, err := api.NewClient(serverURL, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	records, err := client.ListTop(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("🏆 Top %d\n", limit)
	for i, rec := range records {
		fmt.Printf("%3d. %-32s %3d pts  %2d%%  %d floors  %s\n",
			i+1, rec.PlayerName, rec.Score, rec.DiscountEarned, rec.PartsStacked,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if len(records) == 0 {
		fmt.Println("   (empty)")
	}
	return nil
}

// showSettings выводит пресеты сложности сервера
func showSettings(ctx context.Context, serverURL string) error {
	client, err := api.NewClient(serverURL, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	settings, err := client.Settings(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("📋 Field %.0fpx, base %.0fpx, %d floors, max discount %d%%\n",
		settings.Layout.FieldWidth, settings.Layout.BaseWidth, settings.TotalParts, settings.MaxDiscount)
	for _, d := range settings.Difficulties {
		fmt.Printf("  %-8s speed=%.1f tolerance=%.1fpx\n", d.Name, d.MoveSpeed, d.Tolerance)
	}
	return nil
}

// printEvent выводит событие в читаемом формате
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n",
		ev.Timestamp.Local().Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.ID)

	if !eventbus.IsScoreEvent(ev.EventType) {
		return
	}
	var se eventbus.ScoreEvent
	if err := ev.Decode(&se); err != nil {
		fmt.Printf("  ⚠️ %v\n", err)
		return
	}
	switch ev.EventType {
	case eventbus.EventScoreSubmitted:
		fmt.Printf("  Player: %s Score: %d Discount: %d%% Record: %s\n",
			se.PlayerName, se.Score, se.DiscountEarned, se.RecordID)
	case eventbus.EventScoreDeleted:
		fmt.Printf("  Record: %s\n", se.RecordID)
	}
	if ev.CorrelationID != "" {
		fmt.Printf("  Trace: %s\n", ev.CorrelationID)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
