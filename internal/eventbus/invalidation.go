package eventbus

import (
	"context"

	"github.com/annel0/tower-stacker/internal/logging"
)

// Invalidator - кеш, который нужно сбрасывать при изменении рейтинга.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// StartCacheInvalidation сбрасывает кеш рейтинга на каждое событие о результатах,
// в том числе пришедшее от других узлов.
func StartCacheInvalidation(ctx context.Context, bus EventBus, inv Invalidator) (Subscription, error) {
	f := Filter{Types: []string{EventScoreSubmitted, EventScoreDeleted}}
	sub, err := bus.Subscribe(ctx, f, func(ctx context.Context, ev *Envelope) {
		if err := inv.Invalidate(ctx); err != nil {
			logging.Warn("⚠️ Сброс кеша рейтинга по %s (%s) не удался: %v", ev.EventType, ev.ID, err)
			return
		}
		logging.Debug("[EventBus] кеш рейтинга сброшен по %s от %s", ev.EventType, ev.Source)
	})
	if err != nil {
		return nil, err
	}
	logging.Info("♻️ Подписка на сброс кеша рейтинга активирована")
	return sub, nil
}
