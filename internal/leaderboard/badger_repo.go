package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const badgerPrefix = "score:"

// BadgerRepo хранит результаты во встроенной BadgerDB.
// Записи лежат JSON по ключу score:<id>, рейтинг строится при чтении.
type BadgerRepo struct {
	mu      sync.RWMutex
	db      *badger.DB
	isReady bool
}

// NewBadgerRepo открывает базу в каталоге dir; пустой dir - база в памяти.
func NewBadgerRepo(dir string) (*BadgerRepo, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	if dir != "" {
		logging.Info("🦡 BadgerDB leaderboard: %s", dir)
	}
	return &BadgerRepo{db: db, isReady: true}, nil
}

func badgerKey(id string) []byte { return []byte(badgerPrefix + id) }

// Submit сохраняет результат.
func (b *BadgerRepo) Submit(ctx context.Context, s Submission) (*Record, error) {
	s, err := Prepare(s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isReady {
		return nil, ErrClosed
	}

	rec := newRecord(uuid.NewString(), s, time.Now())
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации результата: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения результата в BadgerDB: %w", err)
	}
	return &rec, nil
}

// ListTop читает все записи и ранжирует их.
func (b *BadgerRepo) ListTop(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isReady {
		return nil, ErrClosed
	}

	var out []Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("ошибка десериализации %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рейтинга из BadgerDB: %w", err)
	}

	if out == nil {
		out = []Record{}
	}
	return Rank(out, NormalizeLimit(limit)), nil
}

// Get загружает запись по id.
func (b *BadgerRepo) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isReady {
		return nil, ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записи %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации записи %s: %w", id, err)
	}
	return &rec, nil
}

// Delete удаляет запись.
func (b *BadgerRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.isReady {
		return ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		return txn.Delete(badgerKey(id))
	})
}

// Close закрывает хранилище данных
func (b *BadgerRepo) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isReady {
		return nil
	}
	b.isReady = false
	return b.db.Close()
}
