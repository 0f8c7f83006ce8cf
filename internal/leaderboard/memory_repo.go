package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo реализует Repository в памяти.
// Используется для локальной разработки и тестов.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
	closed  bool
}

// NewMemoryRepo создаёт пустой репозиторий.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record), now: time.Now}
}

// Submit сохраняет результат в памяти.
func (r *MemoryRepo) Submit(ctx context.Context, s Submission) (*Record, error) {
	s, err := Prepare(s)
	if err != nil {
		return nil, err
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	rec := newRecord(uuid.NewString(), s, r.now())
	r.records[rec.ID] = rec
	return &rec, nil
}

// ListTop возвращает копию рейтинга.
func (r *MemoryRepo) ListTop(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return Rank(out, NormalizeLimit(limit)), nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.records[id]; !ok {
		return ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}

// Count возвращает количество записей.
func (r *MemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *MemoryRepo) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
