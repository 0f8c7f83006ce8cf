package gesture

import (
	"sync"
	"time"
)

// DefaultCooldown - минимальный интервал между двумя срабатываниями.
const DefaultCooldown = 1000 * time.Millisecond

// Recognizer превращает поток кадров в команды сброса.
// Удержание кулака срабатывает не чаще одного раза за Cooldown.
type Recognizer struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
	fired    bool
	onDrop   func()
}

// NewRecognizer создаёт распознаватель; cooldown <= 0 - DefaultCooldown.
func NewRecognizer(cooldown time.Duration, onDrop func()) *Recognizer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Recognizer{cooldown: cooldown, onDrop: onDrop}
}

// Observe обрабатывает кадр с рукой. Возвращает true, если сработал сброс.
func (r *Recognizer) Observe(now time.Time, hand []Landmark) bool {
	if !IsFist(hand) {
		return false
	}

	r.mu.Lock()
	if r.fired && now.Sub(r.last) <= r.cooldown {
		r.mu.Unlock()
		return false
	}
	r.fired = true
	r.last = now
	cb := r.onDrop
	r.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}

// Reset забывает предыдущее срабатывание (новый раунд).
func (r *Recognizer) Reset() {
	r.mu.Lock()
	r.fired = false
	r.last = time.Time{}
	r.mu.Unlock()
}
