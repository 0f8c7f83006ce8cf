package game

import "math"

// DropKind - классификация результата сброса.
type DropKind int

const (
	DropPerfect DropKind = iota
	DropPartial
	DropMiss
)

func (k DropKind) String() string {
	switch k {
	case DropPerfect:
		return "perfect"
	case DropPartial:
		return "partial"
	case DropMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// DebrisHint подсказывает рендеру, как анимировать обломок.
type DebrisHint int

const (
	// DebrisSever - отрезанная часть при частичном перекрытии.
	DebrisSever DebrisHint = iota
	// DebrisDiscard - весь блок целиком при промахе.
	DebrisDiscard
)

// Debris - отброшенная часть блока. Влияния на симуляцию не имеет.
type Debris struct {
	CenterX float64    `json:"center_x"`
	Width   float64    `json:"width"`
	Floor   int        `json:"floor"`
	Hint    DebrisHint `json:"hint"`
}

// Resolution - результат Resolve.
// При DropMiss поля KeptCenterX/KeptWidth равны нулю.
type Resolution struct {
	Kind        DropKind
	KeptCenterX float64
	KeptWidth   float64
	Offset      float64 // fallCenterX - prevCenterX
	Debris      *Debris
}

// Resolve классифицирует сброс блока fall* на блок prev* и считает геометрию.
//
// Порядок проверок важен: сначала допуск (|diff| <= tol - perfect),
// затем промах (|diff| >= prevWidth - miss, граница относится к промаху),
// остальное - частичное перекрытие с обрезкой.
func Resolve(prevCenterX, prevWidth, fallCenterX, fallWidth, tolerancePx float64) Resolution {
	diff := fallCenterX - prevCenterX
	absDiff := math.Abs(diff)

	if absDiff <= tolerancePx {
		return Resolution{
			Kind:        DropPerfect,
			KeptCenterX: prevCenterX,
			KeptWidth:   fallWidth,
			Offset:      diff,
		}
	}

	if absDiff >= prevWidth {
		return Resolution{
			Kind:   DropMiss,
			Offset: diff,
			Debris: &Debris{CenterX: fallCenterX, Width: fallWidth, Hint: DebrisDiscard},
		}
	}

	newWidth := prevWidth - absDiff
	overlapCenter := prevCenterX + diff/2
	fallingWidth := absDiff
	fallingX := overlapCenter + sign(diff)*(newWidth/2+fallingWidth/2)

	return Resolution{
		Kind:        DropPartial,
		KeptCenterX: overlapCenter,
		KeptWidth:   newWidth,
		Offset:      diff,
		Debris:      &Debris{CenterX: fallingX, Width: fallingWidth, Hint: DebrisSever},
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
