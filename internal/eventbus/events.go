package eventbus

import "errors"

var ErrBusClosed = errors.New("event bus closed")

// Типы событий таблицы лидеров.
const (
	EventScoreSubmitted = "ScoreSubmitted"
	EventScoreDeleted   = "ScoreDeleted"
)

// ScoreEvent - полезная нагрузка событий таблицы лидеров.
type ScoreEvent struct {
	RecordID       string `json:"record_id"`
	PlayerName     string `json:"player_name,omitempty"`
	Score          int    `json:"score,omitempty"`
	DiscountEarned int    `json:"discount_earned,omitempty"`
	PartsStacked   int    `json:"parts_stacked,omitempty"`
}

// IsScoreEvent сообщает, меняет ли событие рейтинг.
func IsScoreEvent(eventType string) bool {
	return eventType == EventScoreSubmitted || eventType == EventScoreDeleted
}
