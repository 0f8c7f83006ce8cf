package leaderboard

import (
	"context"
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrClosed         = errors.New("repository closed")
)

// Repository хранит результаты и отдаёт рейтинг.
type Repository interface {
	// Submit нормализует, валидирует и сохраняет результат.
	// Ошибка валидации возвращается как *ValidationError.
	Submit(ctx context.Context, s Submission) (*Record, error)

	// ListTop возвращает лучшие результаты в порядке рейтинга (см. Less).
	ListTop(ctx context.Context, limit int) ([]Record, error)

	// Get возвращает запись по ID или ErrRecordNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete удаляет запись; ErrRecordNotFound, если её нет.
	Delete(ctx context.Context, id string) error

	Close() error
}
