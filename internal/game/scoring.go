package game

import "math"

// Границы скидки.
const (
	MaxDiscount     = 50
	MinWinDiscount  = 30
	MaxLossDiscount = 30
)

// Outcome - итог раунда.
type Outcome struct {
	FloorsCompleted int       `json:"floors_completed"`
	Widths          []float64 `json:"widths"` // ширины этажей без основания
	Won             bool      `json:"won"`
}

// Stats - итоговые показатели, которые видит игрок.
type Stats struct {
	Score    int  `json:"score"`
	Parts    int  `json:"parts"`
	Discount int  `json:"discount"`
	Won      bool `json:"won"`
}

// Scorer переводит итог раунда в очки и скидку.
type Scorer struct {
	BaseWidth float64
	MaxFloors int
}

// NewScorer создаёт Scorer для раскладки.
func NewScorer(layout Layout) Scorer {
	layout = layout.Normalize()
	return Scorer{BaseWidth: layout.BaseWidth, MaxFloors: layout.MaxFloors}
}

// AvgWidthRatio - средняя доля ширины основания по уложенным этажам; 1.0 если этажей нет.
func (s Scorer) AvgWidthRatio(widths []float64) float64 {
	if len(widths) == 0 || s.BaseWidth <= 0 {
		return 1
	}
	var sum float64
	for _, w := range widths {
		sum += w
	}
	return sum / float64(len(widths)) / s.BaseWidth
}

// LevelRatio - доля пройденных этажей.
func (s Scorer) LevelRatio(floors int) float64 {
	if s.MaxFloors <= 0 {
		return 0
	}
	return float64(floors) / float64(s.MaxFloors)
}

// Score считает очки и скидку.
//
//	win:  clamp(floor(avg*50), 30, 50)
//	loss: clamp(floor(level*20 + avg*10), 0, 30)
//	score = floor(avg*100)
func (s Scorer) Score(o Outcome) Stats {
	avg := s.AvgWidthRatio(o.Widths)

	var discount int
	if o.Won {
		discount = clamp(int(math.Floor(avg*MaxDiscount)), MinWinDiscount, MaxDiscount)
	} else {
		level := s.LevelRatio(o.FloorsCompleted)
		discount = clamp(int(math.Floor(level*20+avg*10)), 0, MaxLossDiscount)
	}

	return Stats{
		Score:    int(math.Floor(avg * 100)),
		Parts:    o.FloorsCompleted,
		Discount: discount,
		Won:      o.Won,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
