// Package leaderboard хранит результаты побед и отдаёт рейтинг лучших.
package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/annel0/tower-stacker/internal/game"
)

const (
	DefaultLimit      = 10
	MaxLimit          = 100
	MaxPlayerNameLen  = 32
	MaxScore          = 100
	MaxParts          = 6
	DefaultPlayerName = game.DefaultPlayerName
)

// Submission - входящий результат до сохранения.
type Submission struct {
	PlayerName     string `json:"playerName"`
	Score          int    `json:"score"`
	DiscountEarned int    `json:"discountEarned"`
	PartsStacked   int    `json:"partsStacked"`
}

// Record - сохранённый результат.
type Record struct {
	ID             string    `json:"id"`
	PlayerName     string    `json:"playerName"`
	Score          int       `json:"score"`
	DiscountEarned int       `json:"discountEarned"`
	PartsStacked   int       `json:"partsStacked"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidationError описывает некорректное поле результата.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FromResult переводит результат игровой сессии в Submission.
func FromResult(r game.Result) Submission {
	return Submission{
		PlayerName:     r.PlayerName,
		Score:          r.Score,
		DiscountEarned: r.DiscountEarned,
		PartsStacked:   r.PartsStacked,
	}
}

// Normalize обрезает пробелы в имени и подставляет имя по умолчанию.
func (s Submission) Normalize() Submission {
	s.PlayerName = strings.TrimSpace(s.PlayerName)
	if s.PlayerName == "" {
		s.PlayerName = DefaultPlayerName
	}
	return s
}

// Validate проверяет границы полей; ожидает уже нормализованный Submission.
func (s Submission) Validate() error {
	if utf8.RuneCountInString(s.PlayerName) > MaxPlayerNameLen {
		return &ValidationError{Field: "playerName", Message: fmt.Sprintf("must be at most %d characters", MaxPlayerNameLen)}
	}
	if s.Score < 0 || s.Score > MaxScore {
		return &ValidationError{Field: "score", Message: fmt.Sprintf("must be between 0 and %d", MaxScore)}
	}
	if s.DiscountEarned < 0 || s.DiscountEarned > game.MaxDiscount {
		return &ValidationError{Field: "discountEarned", Message: fmt.Sprintf("must be between 0 and %d", game.MaxDiscount)}
	}
	if s.PartsStacked < 0 || s.PartsStacked > MaxParts {
		return &ValidationError{Field: "partsStacked", Message: fmt.Sprintf("must be between 0 and %d", MaxParts)}
	}
	return nil
}

// Prepare нормализует и валидирует результат.
func Prepare(s Submission) (Submission, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func newRecord(id string, s Submission, now time.Time) Record {
	return Record{
		ID:             id,
		PlayerName:     s.PlayerName,
		Score:          s.Score,
		DiscountEarned: s.DiscountEarned,
		PartsStacked:   s.PartsStacked,
		CreatedAt:      now.UTC(),
	}
}

// NormalizeLimit: 0 и меньше - DefaultLimit, больше MaxLimit - MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Less задаёт порядок рейтинга: очки по убыванию, при равенстве раньше сохранённый выше.
func Less(a, b Record) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Rank сортирует записи по рейтингу и обрезает до limit.
func Rank(records []Record, limit int) []Record {
	sort.SliceStable(records, func(i, j int) bool { return Less(records[i], records[j]) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
