// Package gesture распознаёт жест "кулак" по ключевым точкам руки
// и превращает его в команду сброса блока.
package gesture

import "math"

// Индексы ключевых точек руки в модели MediaPipe Hands (21 точка).
const (
	Wrist     = 0
	ThumbTip  = 4
	IndexTip  = 8
	MiddleTip = 12
	RingTip   = 16
	PinkyTip  = 20

	LandmarkCount = 21
)

// FistThreshold - максимальное расстояние от запястья до кончика пальца
// в нормализованных координатах кадра.
const FistThreshold = 0.3

// Landmark - точка руки в нормализованных координатах [0,1].
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

func distance(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// IsFist сообщает, сжата ли рука в кулак: кончики указательного, среднего,
// безымянного пальцев и мизинца ближе FistThreshold к запястью.
// Большой палец не учитывается. Неполная рука - не кулак.
func IsFist(hand []Landmark) bool {
	if len(hand) < LandmarkCount {
		return false
	}
	wrist := hand[Wrist]
	for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
		if distance(wrist, hand[tip]) >= FistThreshold {
			return false
		}
	}
	return true
}
