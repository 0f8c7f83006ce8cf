package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/go-sql-driver/mysql"
)

// MariaRepo реализует Repository для MariaDB/MySQL.
// Использует таблицу game_scores.
type MariaRepo struct {
	db *sql.DB
}

// NewMariaRepo подключается к базе и создаёт таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname)
//
// parseTime включается принудительно, время хранится в UTC.
func NewMariaRepo(ctx context.Context, dsn string) (*MariaRepo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("некорректный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	return newMariaRepoWithDB(ctx, db)
}

func newMariaRepoWithDB(ctx context.Context, db *sql.DB) (*MariaRepo, error) {
	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	logging.Info("🐬 MariaDB leaderboard готов")
	return repo, nil
}

// createTable создаёт таблицу game_scores, если она не существует.
func (r *MariaRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS game_scores (
			id              BIGINT       AUTO_INCREMENT PRIMARY KEY,
			player_name     VARCHAR(128) NOT NULL,
			score           INT          NOT NULL,
			discount_earned INT          NOT NULL,
			parts_stacked   INT          NOT NULL,
			created_at      DATETIME(3)  NOT NULL,
			INDEX idx_rank (score DESC, created_at ASC)
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы game_scores: %w", err)
	}
	return nil
}

// Submit сохраняет результат.
func (r *MariaRepo) Submit(ctx context.Context, s Submission) (*Record, error) {
	s, err := Prepare(s)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `
		INSERT INTO game_scores (player_name, score, discount_earned, parts_stacked, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, s.PlayerName, s.Score, s.DiscountEarned, s.PartsStacked, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения результата %s: %w", s.PlayerName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения id записи: %w", err)
	}

	rec := newRecord(strconv.FormatInt(id, 10), s, now)
	return &rec, nil
}

// ListTop возвращает рейтинг.
func (r *MariaRepo) ListTop(ctx context.Context, limit int) ([]Record, error) {
	limit = NormalizeLimit(limit)
	query := `
		SELECT id, player_name, score, discount_earned, parts_stacked, created_at
		FROM game_scores
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рейтинга: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения рейтинга: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec Record
		id  int64
	)
	if err := row.Scan(&id, &rec.PlayerName, &rec.Score, &rec.DiscountEarned, &rec.PartsStacked, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Get загружает запись по id.
func (r *MariaRepo) Get(ctx context.Context, id string) (*Record, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, player_name, score, discount_earned, parts_stacked, created_at
		FROM game_scores WHERE id = ?
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, n))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки записи %s: %w", id, err)
	}
	return &rec, nil
}

// Delete удаляет запись.
func (r *MariaRepo) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrRecordNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM game_scores WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
